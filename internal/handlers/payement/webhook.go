package payement

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"maelio_back_end/internal/engine"
	"maelio_back_end/internal/gateway"

	"github.com/gin-gonic/gin"
)

// RazorpayWebhook reçoit les évènements asynchrones de la passerelle.
// Le body est lu BRUT avant tout parsing : la signature porte sur les
// octets exacts reçus, une re-sérialisation JSON la casserait.
func (h *Handler) RazorpayWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload webhook échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Échec lecture body"})
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	if !gateway.VerifyWebhookSignature(payload, signature, h.webhookSecret) {
		log.Println("🚨 Signature webhook Razorpay invalide")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Signature invalide"})
		return
	}

	var event engine.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Println("❌ JSON webhook invalide:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
		return
	}

	log.Printf("📥 Évènement Razorpay reçu : %s", event.Event)

	// Un échec interne ne fait pas échouer l'acquittement : la passerelle
	// réessaierait puis désactiverait l'endpoint. On trace pour rejeu.
	if err := h.engine.HandleWebhook(c.Request.Context(), event); err != nil {
		log.Printf("❌ Erreur traitement webhook %s: %v", event.Event, err)
		h.anomalies.Record(c.Request.Context(), "echec_traitement",
			fmt.Sprintf("%s: %v", event.Event, err))
	}

	c.Status(http.StatusOK)
}
