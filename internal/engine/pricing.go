package engine

import (
	"math"

	"maelio_back_end/internal/models"
)

// Règles de tarification. La TVA s'applique au sous-total uniquement,
// pas aux frais de livraison.
const (
	FreeShippingThreshold = 999.0
	ShippingCharge        = 99.0
	TaxRate               = 0.18
	Currency              = "INR"
)

func ComputeSubtotal(items []models.OrderItem) float64 {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Price * float64(item.Quantity)
	}
	return subtotal
}

func ShippingFor(subtotal float64) float64 {
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	return ShippingCharge
}

// TaxFor arrondit à la roupie
func TaxFor(subtotal float64) float64 {
	return math.Round(subtotal * TaxRate)
}

// ToPaise convertit un montant en unités majeures vers les paise. C'est le
// SEUL point de conversion du dépôt : un montant ne doit jamais être
// converti deux fois.
func ToPaise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
