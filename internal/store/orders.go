package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"maelio_back_end/internal/models"

	"github.com/gocql/gocql"
)

// TransitionUpdate porte les colonnes optionnelles posées par une
// transition. PaymentID n'est accepté qu'une seule fois (au passage en
// paiement réussi) ; les champs d'expédition uniquement par les
// transitions de préparation.
type TransitionUpdate struct {
	PaymentID string
	Shipping  *models.ShippingInfo
}

// OrderStore est le contrat de persistance des commandes. ApplyTransition
// est un compare-and-swap : la mise à jour ne s'applique que si la paire de
// statuts courante est exactement celle attendue. applied == false signifie
// qu'un évènement concurrent est passé avant nous — jamais une erreur.
type OrderStore interface {
	Insert(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id gocql.UUID) (*models.Order, error)
	GetByRemoteOrderID(ctx context.Context, remoteOrderID string) (*models.Order, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	List(ctx context.Context, limit int) ([]models.Order, error)
	ApplyTransition(ctx context.Context, id gocql.UUID, from, to models.StatusPair, upd TransitionUpdate) (bool, error)
	AppendNote(ctx context.Context, orderID gocql.UUID, author, content string) error
	Notes(ctx context.Context, orderID gocql.UUID) ([]models.OrderNote, error)
}

type ScyllaOrderStore struct {
	session *gocql.Session
}

func NewScyllaOrderStore(session *gocql.Session) *ScyllaOrderStore {
	return &ScyllaOrderStore{session: session}
}

const orderColumns = `order_id, order_number, remote_order_id, payment_id,
	customer_name, customer_email, customer_phone, customer_address, items_json,
	subtotal, shipping_charges, tax_amount, discount_amount, total_amount,
	payment_status, status, carrier, tracking_number, estimated_delivery, delivered_at,
	created_at, updated_at`

func (s *ScyllaOrderStore) Insert(ctx context.Context, o *models.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("erreur sérialisation articles: %v", err)
	}

	query := `INSERT INTO orders (` + orderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if err := s.session.Query(query,
		o.ID, o.OrderNumber, o.RemoteOrderID, o.PaymentID,
		o.Customer.Name, o.Customer.Email, o.Customer.Phone, o.Customer.Address, string(itemsJSON),
		o.Subtotal, o.ShippingCharges, o.TaxAmount, o.DiscountAmount, o.TotalAmount,
		string(o.PaymentStatus), string(o.Status),
		o.Shipping.Carrier, o.Shipping.TrackingNumber, o.Shipping.EstimatedDelivery, o.Shipping.DeliveredAt,
		o.CreatedAt, o.UpdatedAt,
	).WithContext(ctx).Exec(); err != nil {
		return err
	}

	// Table de correspondance id Razorpay → id interne
	return s.session.Query(
		`INSERT INTO orders_by_remote (remote_order_id, order_id) VALUES (?, ?)`,
		o.RemoteOrderID, o.ID,
	).WithContext(ctx).Exec()
}

func (s *ScyllaOrderStore) GetByID(ctx context.Context, id gocql.UUID) (*models.Order, error) {
	var o models.Order
	var itemsJSON, paymentStatus, status string

	err := s.session.Query(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, id).
		WithContext(ctx).Scan(
		&o.ID, &o.OrderNumber, &o.RemoteOrderID, &o.PaymentID,
		&o.Customer.Name, &o.Customer.Email, &o.Customer.Phone, &o.Customer.Address, &itemsJSON,
		&o.Subtotal, &o.ShippingCharges, &o.TaxAmount, &o.DiscountAmount, &o.TotalAmount,
		&paymentStatus, &status,
		&o.Shipping.Carrier, &o.Shipping.TrackingNumber, &o.Shipping.EstimatedDelivery, &o.Shipping.DeliveredAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err == gocql.ErrNotFound {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	o.PaymentStatus = models.PaymentStatus(paymentStatus)
	o.Status = models.OrderStatus(status)
	if itemsJSON != "" {
		if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
			return nil, fmt.Errorf("erreur lecture articles: %v", err)
		}
	}
	return &o, nil
}

func (s *ScyllaOrderStore) GetByRemoteOrderID(ctx context.Context, remoteOrderID string) (*models.Order, error) {
	var id gocql.UUID
	err := s.session.Query(`SELECT order_id FROM orders_by_remote WHERE remote_order_id = ?`, remoteOrderID).
		WithContext(ctx).Scan(&id)
	if err == gocql.ErrNotFound {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *ScyllaOrderStore) GetByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	var id gocql.UUID
	err := s.session.Query(`SELECT order_id FROM orders_by_payment WHERE payment_id = ?`, paymentID).
		WithContext(ctx).Scan(&id)
	if err == gocql.ErrNotFound {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *ScyllaOrderStore) List(ctx context.Context, limit int) ([]models.Order, error) {
	iter := s.session.Query(`SELECT `+orderColumns+` FROM orders LIMIT ?`, limit).
		WithContext(ctx).Iter()

	var orders []models.Order
	var o models.Order
	var itemsJSON, paymentStatus, status string

	for iter.Scan(
		&o.ID, &o.OrderNumber, &o.RemoteOrderID, &o.PaymentID,
		&o.Customer.Name, &o.Customer.Email, &o.Customer.Phone, &o.Customer.Address, &itemsJSON,
		&o.Subtotal, &o.ShippingCharges, &o.TaxAmount, &o.DiscountAmount, &o.TotalAmount,
		&paymentStatus, &status,
		&o.Shipping.Carrier, &o.Shipping.TrackingNumber, &o.Shipping.EstimatedDelivery, &o.Shipping.DeliveredAt,
		&o.CreatedAt, &o.UpdatedAt,
	) {
		o.PaymentStatus = models.PaymentStatus(paymentStatus)
		o.Status = models.OrderStatus(status)
		if itemsJSON != "" {
			json.Unmarshal([]byte(itemsJSON), &o.Items)
		}
		orders = append(orders, o)
		o = models.Order{} // Reset pour la prochaine itération
	}

	if err := iter.Close(); err != nil {
		return nil, err
	}
	return orders, nil
}

// ApplyTransition exprime la transition comme une mise à jour
// conditionnelle (LWT ScyllaDB). Deux évènements concurrents pour la même
// commande ne peuvent donc pas appliquer tous les deux la transition.
func (s *ScyllaOrderStore) ApplyTransition(ctx context.Context, id gocql.UUID, from, to models.StatusPair, upd TransitionUpdate) (bool, error) {
	now := time.Now()

	var query string
	var args []interface{}

	switch {
	case upd.PaymentID != "":
		query = `UPDATE orders SET payment_status = ?, status = ?, payment_id = ?, updated_at = ?
			WHERE order_id = ? IF payment_status = ? AND status = ?`
		args = []interface{}{string(to.Payment), string(to.Order), upd.PaymentID, now, id, string(from.Payment), string(from.Order)}
	case upd.Shipping != nil:
		query = `UPDATE orders SET payment_status = ?, status = ?, carrier = ?, tracking_number = ?,
			estimated_delivery = ?, delivered_at = ?, updated_at = ?
			WHERE order_id = ? IF payment_status = ? AND status = ?`
		args = []interface{}{string(to.Payment), string(to.Order),
			upd.Shipping.Carrier, upd.Shipping.TrackingNumber, upd.Shipping.EstimatedDelivery, upd.Shipping.DeliveredAt,
			now, id, string(from.Payment), string(from.Order)}
	default:
		query = `UPDATE orders SET payment_status = ?, status = ?, updated_at = ?
			WHERE order_id = ? IF payment_status = ? AND status = ?`
		args = []interface{}{string(to.Payment), string(to.Order), now, id, string(from.Payment), string(from.Order)}
	}

	var prevPayment, prevStatus string
	applied, err := s.session.Query(query, args...).WithContext(ctx).ScanCAS(&prevPayment, &prevStatus)
	if err != nil {
		return false, err
	}

	// Correspondance payment_id → commande, posée au premier succès
	if applied && upd.PaymentID != "" {
		if err := s.session.Query(
			`INSERT INTO orders_by_payment (payment_id, order_id) VALUES (?, ?)`,
			upd.PaymentID, id,
		).WithContext(ctx).Exec(); err != nil {
			return true, err
		}
	}

	return applied, nil
}

func (s *ScyllaOrderStore) AppendNote(ctx context.Context, orderID gocql.UUID, author, content string) error {
	return s.session.Query(
		`INSERT INTO order_notes (order_id, note_id, author, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		orderID, gocql.TimeUUID(), author, content, time.Now(),
	).WithContext(ctx).Exec()
}

func (s *ScyllaOrderStore) Notes(ctx context.Context, orderID gocql.UUID) ([]models.OrderNote, error) {
	iter := s.session.Query(
		`SELECT note_id, author, content, created_at FROM order_notes WHERE order_id = ?`,
		orderID,
	).WithContext(ctx).Iter()

	var notes []models.OrderNote
	var n models.OrderNote
	for iter.Scan(&n.ID, &n.Author, &n.Content, &n.CreatedAt) {
		notes = append(notes, n)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return notes, nil
}
