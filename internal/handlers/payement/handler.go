package payement

import (
	"context"
	"errors"
	"net/http"

	"maelio_back_end/internal/engine"
	"maelio_back_end/internal/models"
	"maelio_back_end/internal/store"

	"github.com/gin-gonic/gin"
)

// AnomalySource expose le journal des webhooks non traités
type AnomalySource interface {
	Record(ctx context.Context, kind, detail string)
	Recent(ctx context.Context, n int64) ([]store.Anomaly, error)
}

type Handler struct {
	engine        *engine.Engine
	anomalies     AnomalySource
	webhookSecret string
}

func NewHandler(eng *engine.Engine, anomalies AnomalySource, webhookSecret string) *Handler {
	return &Handler{
		engine:        eng,
		anomalies:     anomalies,
		webhookSecret: webhookSecret,
	}
}

// respondError traduit les erreurs métier en statut HTTP. Le détail
// technique reste dans les logs, jamais dans la réponse.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Erreur interne"

	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, models.ErrSignatureInvalid):
		status = http.StatusBadRequest
		message = "Signature invalide"
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
		message = "Commande introuvable"
	case errors.Is(err, models.ErrInvalidStateTransition):
		status = http.StatusBadRequest
		message = "Transition de statut invalide"
	case errors.Is(err, models.ErrRefundRejected):
		status = http.StatusConflict
		message = "Remboursement refusé"
	case errors.Is(err, models.ErrGatewayUnavailable):
		status = http.StatusBadGateway
		message = "Passerelle de paiement indisponible, veuillez réessayer"
	}

	c.JSON(status, gin.H{"success": false, "message": message})
}
