package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"maelio_back_end/internal/models"

	razorpay "github.com/razorpay/razorpay-go"
	rzperrors "github.com/razorpay/razorpay-go/errors"
)

// RemoteOrder est la commande créée côté Razorpay
type RemoteOrder struct {
	ID  string
	Raw map[string]interface{}
}

// PaymentSnapshot est l'état d'un paiement tel que vu par la passerelle
type PaymentSnapshot struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"` // en paise
	Status           string `json:"status"`
	ErrorDescription string `json:"error_description,omitempty"`
}

type RefundResult struct {
	ID     string
	Amount int64 // en paise
	Status string
}

// Client est le contrat de la passerelle de paiement. Tous les montants
// qui traversent cette interface sont en paise (unités mineures).
type Client interface {
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]interface{}) (*RemoteOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*PaymentSnapshot, error)
	CreateRefund(ctx context.Context, paymentID string, amountPaise int64, reason string) (*RefundResult, error)
}

type razorpayClient struct {
	api     *razorpay.Client
	timeout time.Duration
}

// New construit le client Razorpay. À appeler une seule fois au démarrage,
// puis à injecter dans le moteur de réconciliation.
func New(keyID, keySecret string, timeout time.Duration) Client {
	return &razorpayClient{
		api:     razorpay.NewClient(keyID, keySecret),
		timeout: timeout,
	}
}

// call exécute un appel SDK sous délai borné. Le SDK ne prend pas de
// context, on borne donc le temps d'attente nous-mêmes : au-delà, la
// commande reste dans son état précédent et l'appelant peut réessayer.
func (g *razorpayClient) call(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		body map[string]interface{}
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		body, err := fn()
		ch <- result{body, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, ctx.Err())
	case res := <-ch:
		return res.body, res.err
	}
}

func (g *razorpayClient) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]interface{}) (*RemoteOrder, error) {
	data := map[string]interface{}{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	body, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.api.Order.Create(data, nil)
	})
	if err != nil {
		return nil, wrapGatewayError(err)
	}

	id, ok := body["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: réponse sans id de commande", models.ErrGatewayUnavailable)
	}

	return &RemoteOrder{ID: id, Raw: body}, nil
}

func (g *razorpayClient) FetchPayment(ctx context.Context, paymentID string) (*PaymentSnapshot, error) {
	body, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.api.Payment.Fetch(paymentID, nil, nil)
	})
	if err != nil {
		var badReq *rzperrors.BadRequestError
		if errors.As(err, &badReq) {
			return nil, fmt.Errorf("%w: paiement %s", models.ErrNotFound, paymentID)
		}
		return nil, wrapGatewayError(err)
	}

	snap := &PaymentSnapshot{ID: paymentID}
	if v, ok := body["id"].(string); ok {
		snap.ID = v
	}
	if v, ok := body["order_id"].(string); ok {
		snap.OrderID = v
	}
	if v, ok := body["status"].(string); ok {
		snap.Status = v
	}
	if v, ok := body["amount"].(float64); ok {
		snap.Amount = int64(v)
	}
	if v, ok := body["error_description"].(string); ok {
		snap.ErrorDescription = v
	}
	return snap, nil
}

func (g *razorpayClient) CreateRefund(ctx context.Context, paymentID string, amountPaise int64, reason string) (*RefundResult, error) {
	data := map[string]interface{}{}
	if reason != "" {
		data["notes"] = map[string]interface{}{"reason": reason}
	}

	body, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.api.Payment.Refund(paymentID, int(amountPaise), data, nil)
	})
	if err != nil {
		// Razorpay répond en 4xx quand le montant dépasse le capturé
		var badReq *rzperrors.BadRequestError
		if errors.As(err, &badReq) {
			return nil, fmt.Errorf("%w: %v", models.ErrRefundRejected, err)
		}
		return nil, wrapGatewayError(err)
	}

	res := &RefundResult{}
	if v, ok := body["id"].(string); ok {
		res.ID = v
	}
	if v, ok := body["amount"].(float64); ok {
		res.Amount = int64(v)
	}
	if v, ok := body["status"].(string); ok {
		res.Status = v
	}
	return res, nil
}

func wrapGatewayError(err error) error {
	return fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
}
