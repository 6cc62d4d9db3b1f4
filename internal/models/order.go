package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts de paiement
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentSuccess  PaymentStatus = "success"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Statuts de commande (préparation / livraison)
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
	OrderFailed    OrderStatus = "failed"
)

// StatusPair regroupe les deux axes de statut d'une commande.
// Seules les paires listées dans validPairs peuvent exister en base.
type StatusPair struct {
	Payment PaymentStatus
	Order   OrderStatus
}

var validPairs = map[StatusPair]bool{
	{PaymentPending, OrderPending}:    true,
	{PaymentSuccess, OrderConfirmed}:  true,
	{PaymentSuccess, OrderShipped}:    true,
	{PaymentSuccess, OrderDelivered}:  true,
	{PaymentFailed, OrderFailed}:      true,
	{PaymentRefunded, OrderCancelled}: true,
}

// Valid indique si la paire de statuts est autorisée au repos
func (p StatusPair) Valid() bool {
	return validPairs[p]
}

// ValidOrderStatus vérifie qu'une valeur de statut de commande existe
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled, OrderFailed:
		return true
	}
	return false
}

type OrderItem struct {
	ProductID gocql.UUID `json:"product_id" db:"product_id"`
	Name      string     `json:"name" db:"name"`
	Price     float64    `json:"price" db:"price"`
	Quantity  int        `json:"quantity" db:"quantity"`
}

type Customer struct {
	Name    string `json:"name" db:"customer_name"`
	Email   string `json:"email" db:"customer_email"`
	Phone   string `json:"phone" db:"customer_phone"`
	Address string `json:"address" db:"customer_address"`
}

type ShippingInfo struct {
	Carrier           string     `json:"carrier,omitempty" db:"carrier"`
	TrackingNumber    string     `json:"tracking_number,omitempty" db:"tracking_number"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty" db:"estimated_delivery"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
}

// OrderNote est une note d'audit, ajoutée en append-only, jamais modifiée
type OrderNote struct {
	ID        gocql.UUID `json:"id" db:"note_id"`
	Author    string     `json:"author" db:"author"`
	Content   string     `json:"content" db:"content"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

type Order struct {
	ID            gocql.UUID `json:"id" db:"order_id"`
	OrderNumber   string     `json:"order_number" db:"order_number"`
	RemoteOrderID string     `json:"razorpay_order_id" db:"remote_order_id"`
	// PaymentID est posé une seule fois, au passage en paiement réussi,
	// puis immuable. Un nouveau paiement = une nouvelle commande.
	PaymentID string `json:"razorpay_payment_id,omitempty" db:"payment_id"`

	Customer Customer    `json:"customer"`
	Items    []OrderItem `json:"items"`

	// Montants en unités majeures (roupies). TotalAmount est dérivé,
	// jamais accepté depuis l'extérieur.
	Subtotal        float64 `json:"subtotal" db:"subtotal"`
	ShippingCharges float64 `json:"shipping_charges" db:"shipping_charges"`
	TaxAmount       float64 `json:"tax_amount" db:"tax_amount"`
	DiscountAmount  float64 `json:"discount_amount" db:"discount_amount"`
	TotalAmount     float64 `json:"total_amount" db:"total_amount"`

	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`
	Status        OrderStatus   `json:"status" db:"status"`

	Shipping ShippingInfo `json:"shipping"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Pair retourne la paire de statuts courante
func (o *Order) Pair() StatusPair {
	return StatusPair{o.PaymentStatus, o.Status}
}

// RecomputeTotal recalcule le total à partir des composantes
func (o *Order) RecomputeTotal() {
	o.TotalAmount = o.Subtotal + o.ShippingCharges + o.TaxAmount - o.DiscountAmount
}
