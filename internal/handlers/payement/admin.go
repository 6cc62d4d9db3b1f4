package payement

import (
	"log"
	"net/http"
	"strconv"

	"maelio_back_end/internal/engine"
	"maelio_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// GetAllOrders liste les commandes (admin)
func (h *Handler) GetAllOrders(c *gin.Context) {
	limit := 100
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	orders, err := h.engine.ListOrders(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lecture commandes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"orders":  orders,
		"count":   len(orders),
	})
}

// GetOrder retourne une commande et son historique de notes (admin)
func (h *Handler) GetOrder(c *gin.Context) {
	orderUUID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "ID commande invalide"})
		return
	}

	order, err := h.engine.GetOrder(c.Request.Context(), gocql.UUID(orderUUID))
	if err != nil {
		respondError(c, err)
		return
	}

	notes, err := h.engine.OrderNotes(c.Request.Context(), order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lecture notes"})
		return
	}

	resp := gin.H{
		"success": true,
		"order":   order,
		"notes":   notes,
	}

	// État passerelle en best-effort : une passerelle indisponible ne doit
	// pas bloquer la consultation de la commande
	if order.PaymentID != "" {
		if snap, err := h.engine.RemotePaymentState(c.Request.Context(), order.ID); err == nil {
			resp["gateway_payment"] = snap
		} else {
			log.Printf("⚠️ État passerelle indisponible pour %s: %v", order.OrderNumber, err)
		}
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateOrderStatus fait évoluer le statut de préparation (admin).
// Le numéro de suivi est obligatoire pour passer en "shipped" — validé ici,
// avant d'atteindre le moteur.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	orderUUID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "ID commande invalide"})
		return
	}

	var req struct {
		Status         string `json:"status" binding:"required"`
		Notes          string `json:"notes"`
		TrackingNumber string `json:"tracking_number"`
		Carrier        string `json:"carrier"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Données invalides", "details": err.Error()})
		return
	}

	status := models.OrderStatus(req.Status)
	if status == models.OrderShipped && req.TrackingNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Numéro de suivi requis pour le statut 'shipped'"})
		return
	}

	order, err := h.engine.UpdateOrderStatus(c.Request.Context(), gocql.UUID(orderUUID), engine.StatusUpdateInput{
		Status:         status,
		Notes:          req.Notes,
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		Author:         c.GetString("email"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   order,
	})
}

// RefundOrder déclenche un remboursement (admin). Sans montant, le
// remboursement est total.
func (h *Handler) RefundOrder(c *gin.Context) {
	orderUUID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "ID commande invalide"})
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
		Reason string  `json:"reason"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Données invalides", "details": err.Error()})
		return
	}

	outcome, err := h.engine.Refund(c.Request.Context(), gocql.UUID(orderUUID), req.Amount, req.Reason, c.GetString("email"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"refund_id": outcome.RefundID,
		"amount":    outcome.Amount,
		"order_id":  outcome.OrderID,
	})
}

// GetAnomalies expose les webhooks acquittés sans traitement (admin)
func (h *Handler) GetAnomalies(c *gin.Context) {
	anomalies, err := h.anomalies.Recent(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lecture anomalies"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"anomalies": anomalies,
		"count":     len(anomalies),
	})
}
