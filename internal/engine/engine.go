package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"maelio_back_end/internal/gateway"
	"maelio_back_end/internal/models"
	"maelio_back_end/internal/notifier"
	"maelio_back_end/internal/store"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// AnomalyRecorder trace les webhooks acquittés sans traitement
type AnomalyRecorder interface {
	Record(ctx context.Context, kind, detail string)
}

// Engine est le moteur de réconciliation : toutes les mutations de statut
// d'une commande passent par lui, qu'elles viennent de la vérification
// client, d'un webhook de la passerelle ou d'une action admin. Il applique
// chaque transition comme un compare-and-swap : l'évènement arrivé en
// premier fait la transition et l'effet de bord, le second est un no-op.
type Engine struct {
	store     store.OrderStore
	gateway   gateway.Client
	notifier  notifier.Notifier
	anomalies AnomalyRecorder
	keySecret string
}

func New(st store.OrderStore, gw gateway.Client, nt notifier.Notifier, an AnomalyRecorder, keySecret string) *Engine {
	return &Engine{
		store:     st,
		gateway:   gw,
		notifier:  nt,
		anomalies: an,
		keySecret: keySecret,
	}
}

var (
	pairPending   = models.StatusPair{Payment: models.PaymentPending, Order: models.OrderPending}
	pairConfirmed = models.StatusPair{Payment: models.PaymentSuccess, Order: models.OrderConfirmed}
	pairFailed    = models.StatusPair{Payment: models.PaymentFailed, Order: models.OrderFailed}
	pairRefunded  = models.StatusPair{Payment: models.PaymentRefunded, Order: models.OrderCancelled}
)

// =============================================
// CRÉATION DE COMMANDE
// =============================================

// PlaceOrder crée la commande côté Razorpay PUIS la persiste : un échec de
// la passerelle ne laisse donc jamais de commande orpheline en base.
func (e *Engine) PlaceOrder(ctx context.Context, customer models.Customer, items []models.OrderItem, discount float64) (*models.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: panier vide", models.ErrValidation)
	}
	for _, item := range items {
		if item.Quantity <= 0 || item.Price < 0 {
			return nil, fmt.Errorf("%w: article %s invalide", models.ErrValidation, item.Name)
		}
	}
	if discount < 0 {
		return nil, fmt.Errorf("%w: remise négative", models.ErrValidation)
	}

	subtotal := ComputeSubtotal(items)
	shipping := ShippingFor(subtotal)
	tax := TaxFor(subtotal)

	order := &models.Order{
		ID:              gocql.TimeUUID(),
		OrderNumber:     newOrderNumber(),
		Customer:        customer,
		Items:           items,
		Subtotal:        subtotal,
		ShippingCharges: shipping,
		TaxAmount:       tax,
		DiscountAmount:  discount,
		PaymentStatus:   models.PaymentPending,
		Status:          models.OrderPending,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	order.RecomputeTotal()

	remote, err := e.gateway.CreateOrder(ctx, ToPaise(order.TotalAmount), Currency, order.OrderNumber, map[string]interface{}{
		"order_number":   order.OrderNumber,
		"customer_email": customer.Email,
	})
	if err != nil {
		return nil, err
	}
	order.RemoteOrderID = remote.ID

	if err := e.store.Insert(ctx, order); err != nil {
		return nil, fmt.Errorf("erreur persistance commande: %v", err)
	}

	log.Printf("🛒 Commande %s créée (Razorpay: %s, ₹%.2f)", order.OrderNumber, remote.ID, order.TotalAmount)
	return order, nil
}

func newOrderNumber() string {
	return "CMD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString()[:13], "-", ""))
}

// =============================================
// VÉRIFICATION CLIENT
// =============================================

// VerifyPayment traite le callback navigateur post-paiement. Il peut
// arriver avant ou après le webhook payment.captured : le second des deux
// trouve la transition déjà faite et n'envoie pas de deuxième e-mail.
func (e *Engine) VerifyPayment(ctx context.Context, remoteOrderID, paymentID, signature string) (*models.Order, error) {
	if !gateway.VerifyPaymentSignature(remoteOrderID, paymentID, signature, e.keySecret) {
		log.Printf("🚨 Signature de paiement invalide pour %s", remoteOrderID)
		return nil, models.ErrSignatureInvalid
	}

	order, err := e.store.GetByRemoteOrderID(ctx, remoteOrderID)
	if err != nil {
		return nil, err
	}

	// Déjà capturé (par le webhook ou un appel précédent)
	if order.PaymentStatus == models.PaymentSuccess && order.PaymentID == paymentID {
		return order, nil
	}

	applied, err := e.store.ApplyTransition(ctx, order.ID, pairPending, pairConfirmed,
		store.TransitionUpdate{PaymentID: paymentID})
	if err != nil {
		return nil, err
	}

	if applied {
		order.PaymentStatus = models.PaymentSuccess
		order.Status = models.OrderConfirmed
		order.PaymentID = paymentID
		e.notify(e.notifier.PaymentSuccess, order, "confirmation")
		log.Printf("✅ Paiement vérifié pour %s (paiement: %s)", order.OrderNumber, paymentID)
		return order, nil
	}

	// Quelqu'un est passé avant nous : relire et décider
	order, err = e.store.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == models.PaymentSuccess && order.PaymentID == paymentID {
		return order, nil
	}
	return nil, fmt.Errorf("%w: commande %s en statut %s/%s", models.ErrInvalidStateTransition,
		order.OrderNumber, order.PaymentStatus, order.Status)
}

// =============================================
// WEBHOOKS
// =============================================

type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Status           string `json:"status"`
	ErrorDescription string `json:"error_description"`
}

type RefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

type WebhookPayload struct {
	Payment *struct {
		Entity PaymentEntity `json:"entity"`
	} `json:"payment"`
	Refund *struct {
		Entity RefundEntity `json:"entity"`
	} `json:"refund"`
}

// WebhookEvent est l'enveloppe Razorpay : {event, payload:{payment|refund:{entity:...}}}
type WebhookEvent struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

// HandleWebhook applique un évènement webhook déjà authentifié. Les cas
// "commande introuvable" ou "état incompatible" ne sont PAS des erreurs :
// on les enregistre comme anomalies et on acquitte, sinon la passerelle
// réessaierait en boucle puis couperait l'endpoint.
func (e *Engine) HandleWebhook(ctx context.Context, ev WebhookEvent) error {
	switch ev.Event {
	case "payment.captured":
		return e.handlePaymentCaptured(ctx, ev)
	case "payment.failed":
		return e.handlePaymentFailed(ctx, ev)
	case "refund.created":
		return e.handleRefundCreated(ctx, ev)
	case "refund.processed":
		return e.handleRefundProcessed(ctx, ev)
	default:
		// Contrat d'acceptation : les types futurs ne font pas échouer la livraison
		log.Printf("ℹ️ Évènement webhook ignoré : %s", ev.Event)
		return nil
	}
}

func (e *Engine) handlePaymentCaptured(ctx context.Context, ev WebhookEvent) error {
	if ev.Payload.Payment == nil {
		e.anomalies.Record(ctx, "payload_invalide", "payment.captured sans entité payment")
		return nil
	}
	p := ev.Payload.Payment.Entity

	order, err := e.store.GetByRemoteOrderID(ctx, p.OrderID)
	if errors.Is(err, models.ErrNotFound) {
		e.anomalies.Record(ctx, "commande_introuvable",
			fmt.Sprintf("payment.captured pour commande Razorpay %s (paiement %s)", p.OrderID, p.ID))
		return nil
	}
	if err != nil {
		return err
	}

	if order.PaymentStatus == models.PaymentSuccess {
		if order.PaymentID != p.ID {
			// Le payment_id est immuable une fois posé
			e.anomalies.Record(ctx, "paiement_divergent",
				fmt.Sprintf("commande %s déjà payée via %s, webhook reçu pour %s", order.OrderNumber, order.PaymentID, p.ID))
		}
		return nil
	}

	applied, err := e.store.ApplyTransition(ctx, order.ID, pairPending, pairConfirmed,
		store.TransitionUpdate{PaymentID: p.ID})
	if err != nil {
		return err
	}

	if applied {
		order.PaymentStatus = models.PaymentSuccess
		order.Status = models.OrderConfirmed
		order.PaymentID = p.ID
		e.notify(e.notifier.PaymentSuccess, order, "confirmation")
		log.Printf("✅ Webhook payment.captured appliqué pour %s", order.OrderNumber)
		return nil
	}

	// Course perdue contre la vérification client : relire pour vérifier
	order, err = e.store.GetByID(ctx, order.ID)
	if err != nil {
		return err
	}
	if order.PaymentStatus == models.PaymentSuccess && order.PaymentID == p.ID {
		return nil
	}
	e.anomalies.Record(ctx, "transition_impossible",
		fmt.Sprintf("payment.captured pour %s en statut %s/%s", order.OrderNumber, order.PaymentStatus, order.Status))
	return nil
}

func (e *Engine) handlePaymentFailed(ctx context.Context, ev WebhookEvent) error {
	if ev.Payload.Payment == nil {
		e.anomalies.Record(ctx, "payload_invalide", "payment.failed sans entité payment")
		return nil
	}
	p := ev.Payload.Payment.Entity

	order, err := e.store.GetByRemoteOrderID(ctx, p.OrderID)
	if errors.Is(err, models.ErrNotFound) {
		e.anomalies.Record(ctx, "commande_introuvable",
			fmt.Sprintf("payment.failed pour commande Razorpay %s", p.OrderID))
		return nil
	}
	if err != nil {
		return err
	}

	applied, err := e.store.ApplyTransition(ctx, order.ID, pairPending, pairFailed, store.TransitionUpdate{})
	if err != nil {
		return err
	}
	if !applied {
		// Déjà dans un état final : no-op idempotent
		return nil
	}

	reason := p.ErrorDescription
	if reason == "" {
		reason = "raison inconnue"
	}
	if err := e.store.AppendNote(ctx, order.ID, "passerelle", "Paiement échoué : "+reason); err != nil {
		return err
	}
	log.Printf("❌ Paiement échoué pour %s : %s", order.OrderNumber, reason)
	return nil
}

func (e *Engine) handleRefundCreated(ctx context.Context, ev WebhookEvent) error {
	if ev.Payload.Refund == nil {
		e.anomalies.Record(ctx, "payload_invalide", "refund.created sans entité refund")
		return nil
	}
	r := ev.Payload.Refund.Entity

	order, err := e.store.GetByPaymentID(ctx, r.PaymentID)
	if errors.Is(err, models.ErrNotFound) {
		e.anomalies.Record(ctx, "commande_introuvable",
			fmt.Sprintf("refund.created pour paiement inconnu %s", r.PaymentID))
		return nil
	}
	if err != nil {
		return err
	}

	if order.Pair() == pairRefunded {
		return nil
	}
	if order.PaymentStatus != models.PaymentSuccess {
		e.anomalies.Record(ctx, "transition_impossible",
			fmt.Sprintf("refund.created pour %s en statut %s/%s", order.OrderNumber, order.PaymentStatus, order.Status))
		return nil
	}

	applied, err := e.store.ApplyTransition(ctx, order.ID, order.Pair(), pairRefunded, store.TransitionUpdate{})
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	if err := e.store.AppendNote(ctx, order.ID, "passerelle",
		fmt.Sprintf("Remboursement %s créé par la passerelle", r.ID)); err != nil {
		return err
	}
	log.Printf("💰 Remboursement %s appliqué pour %s", r.ID, order.OrderNumber)
	return nil
}

func (e *Engine) handleRefundProcessed(ctx context.Context, ev WebhookEvent) error {
	if ev.Payload.Refund == nil {
		e.anomalies.Record(ctx, "payload_invalide", "refund.processed sans entité refund")
		return nil
	}
	r := ev.Payload.Refund.Entity

	order, err := e.store.GetByPaymentID(ctx, r.PaymentID)
	if errors.Is(err, models.ErrNotFound) {
		e.anomalies.Record(ctx, "commande_introuvable",
			fmt.Sprintf("refund.processed pour paiement inconnu %s", r.PaymentID))
		return nil
	}
	if err != nil {
		return err
	}

	// Pas de changement de statut : refund.created l'a déjà fait.
	// Déduplication par identifiant de remboursement, pas par livraison.
	notes, err := e.store.Notes(ctx, order.ID)
	if err != nil {
		return err
	}
	for _, note := range notes {
		if strings.Contains(note.Content, r.ID+" finalisé") {
			return nil
		}
	}

	return e.store.AppendNote(ctx, order.ID, "passerelle",
		fmt.Sprintf("Remboursement %s finalisé par la passerelle", r.ID))
}

// =============================================
// ACTIONS ADMIN
// =============================================

type StatusUpdateInput struct {
	Status         models.OrderStatus
	Notes          string
	TrackingNumber string
	Carrier        string
	Author         string
}

// UpdateOrderStatus fait évoluer le statut de préparation. La paire cible
// doit rester dans l'ensemble des paires valides : expédier une commande
// non payée, par exemple, est rejeté.
func (e *Engine) UpdateOrderStatus(ctx context.Context, orderID gocql.UUID, in StatusUpdateInput) (*models.Order, error) {
	if !models.ValidOrderStatus(in.Status) {
		return nil, fmt.Errorf("%w: statut '%s' inconnu", models.ErrValidation, in.Status)
	}

	order, err := e.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	target := models.StatusPair{Payment: order.PaymentStatus, Order: in.Status}
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %s/%s → %s/%s", models.ErrInvalidStateTransition,
			order.PaymentStatus, order.Status, target.Payment, target.Order)
	}

	upd := store.TransitionUpdate{}
	shipping := order.Shipping

	switch in.Status {
	case models.OrderShipped:
		shipping.Carrier = in.Carrier
		shipping.TrackingNumber = in.TrackingNumber
		estimated := time.Now().Add(5 * 24 * time.Hour)
		shipping.EstimatedDelivery = &estimated
		upd.Shipping = &shipping
	case models.OrderDelivered:
		delivered := time.Now()
		shipping.DeliveredAt = &delivered
		upd.Shipping = &shipping
	}

	applied, err := e.store.ApplyTransition(ctx, order.ID, order.Pair(), target, upd)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: la commande %s a changé de statut entre-temps",
			models.ErrInvalidStateTransition, order.OrderNumber)
	}

	if in.Notes != "" {
		if err := e.store.AppendNote(ctx, order.ID, in.Author, in.Notes); err != nil {
			log.Printf("⚠️ Erreur ajout note sur %s: %v", order.OrderNumber, err)
		}
	}

	order.Status = in.Status
	order.Shipping = shipping

	switch in.Status {
	case models.OrderShipped:
		e.notify(e.notifier.OrderShipped, order, "expédition")
	case models.OrderDelivered:
		e.notify(e.notifier.OrderDelivered, order, "livraison")
	}

	log.Printf("📦 Commande %s passée en %s", order.OrderNumber, in.Status)
	return order, nil
}

type RefundOutcome struct {
	RefundID string     `json:"refund_id"`
	Amount   float64    `json:"amount"`
	OrderID  gocql.UUID `json:"order_id"`
}

// Refund déclenche un remboursement admin. Le montant est validé AVANT tout
// appel passerelle ; absent, il vaut le total de la commande.
func (e *Engine) Refund(ctx context.Context, orderID gocql.UUID, amount float64, reason, author string) (*RefundOutcome, error) {
	order, err := e.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus != models.PaymentSuccess {
		return nil, fmt.Errorf("%w: la commande %s n'est pas payée (statut %s)",
			models.ErrRefundRejected, order.OrderNumber, order.PaymentStatus)
	}
	if amount < 0 {
		return nil, fmt.Errorf("%w: montant négatif", models.ErrValidation)
	}
	if amount == 0 {
		amount = order.TotalAmount
	}
	if amount > order.TotalAmount {
		return nil, fmt.Errorf("%w: montant ₹%.2f supérieur au total ₹%.2f",
			models.ErrRefundRejected, amount, order.TotalAmount)
	}

	res, err := e.gateway.CreateRefund(ctx, order.PaymentID, ToPaise(amount), reason)
	if err != nil {
		return nil, err
	}

	applied, err := e.store.ApplyTransition(ctx, order.ID, order.Pair(), pairRefunded, store.TransitionUpdate{})
	if err != nil {
		return nil, err
	}
	if !applied {
		// Le webhook refund.created est peut-être passé avant nous — le
		// remboursement distant a réussi, on continue.
		log.Printf("ℹ️ Transition remboursement déjà appliquée pour %s", order.OrderNumber)
	}

	note := fmt.Sprintf("Remboursement %s de ₹%.2f", res.ID, amount)
	if reason != "" {
		note += " — " + reason
	}
	if err := e.store.AppendNote(ctx, order.ID, author, note); err != nil {
		log.Printf("⚠️ Erreur ajout note remboursement sur %s: %v", order.OrderNumber, err)
	}

	log.Printf("💰 Remboursement %s (₹%.2f) traité pour %s", res.ID, amount, order.OrderNumber)
	return &RefundOutcome{RefundID: res.ID, Amount: amount, OrderID: orderID}, nil
}

// =============================================
// LECTURES
// =============================================

func (e *Engine) GetOrder(ctx context.Context, orderID gocql.UUID) (*models.Order, error) {
	return e.store.GetByID(ctx, orderID)
}

func (e *Engine) ListOrders(ctx context.Context, limit int) ([]models.Order, error) {
	return e.store.List(ctx, limit)
}

func (e *Engine) OrderNotes(ctx context.Context, orderID gocql.UUID) ([]models.OrderNote, error) {
	return e.store.Notes(ctx, orderID)
}

// RemotePaymentState interroge la passerelle pour l'état réel du paiement
// d'une commande : permet de recouper un statut local suspect avec la
// vérité de la passerelle.
func (e *Engine) RemotePaymentState(ctx context.Context, orderID gocql.UUID) (*gateway.PaymentSnapshot, error) {
	order, err := e.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentID == "" {
		return nil, fmt.Errorf("%w: aucun paiement lié à la commande %s", models.ErrNotFound, order.OrderNumber)
	}
	return e.gateway.FetchPayment(ctx, order.PaymentID)
}

// notify envoie l'e-mail en arrière-plan : un échec d'envoi ne doit jamais
// annuler la transition déjà committée.
func (e *Engine) notify(fn func(*models.Order) error, order *models.Order, what string) {
	snapshot := *order
	go func() {
		if err := fn(&snapshot); err != nil {
			log.Printf("❌ Erreur envoi e-mail %s pour %s: %v", what, snapshot.OrderNumber, err)
		}
	}()
}
