package models_test

import (
	"testing"

	"maelio_back_end/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestStatusPairValid(t *testing.T) {
	valid := []models.StatusPair{
		{Payment: models.PaymentPending, Order: models.OrderPending},
		{Payment: models.PaymentSuccess, Order: models.OrderConfirmed},
		{Payment: models.PaymentSuccess, Order: models.OrderShipped},
		{Payment: models.PaymentSuccess, Order: models.OrderDelivered},
		{Payment: models.PaymentFailed, Order: models.OrderFailed},
		{Payment: models.PaymentRefunded, Order: models.OrderCancelled},
	}

	validSet := make(map[models.StatusPair]bool, len(valid))
	for _, p := range valid {
		assert.True(t, p.Valid(), "%s/%s devrait être valide", p.Payment, p.Order)
		validSet[p] = true
	}

	// Tout le reste du produit cartésien est interdit
	payments := []models.PaymentStatus{models.PaymentPending, models.PaymentSuccess, models.PaymentFailed, models.PaymentRefunded}
	orders := []models.OrderStatus{models.OrderPending, models.OrderConfirmed, models.OrderShipped, models.OrderDelivered, models.OrderCancelled, models.OrderFailed}

	for _, pay := range payments {
		for _, ord := range orders {
			p := models.StatusPair{Payment: pay, Order: ord}
			if validSet[p] {
				continue
			}
			assert.False(t, p.Valid(), "%s/%s ne devrait pas être valide", pay, ord)
		}
	}
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []models.OrderStatus{
		models.OrderPending, models.OrderConfirmed, models.OrderShipped,
		models.OrderDelivered, models.OrderCancelled, models.OrderFailed,
	} {
		assert.True(t, models.ValidOrderStatus(s))
	}

	assert.False(t, models.ValidOrderStatus("expedie"))
	assert.False(t, models.ValidOrderStatus(""))
	assert.False(t, models.ValidOrderStatus("SHIPPED"))
}

func TestRecomputeTotal(t *testing.T) {
	o := models.Order{
		Subtotal:        900,
		ShippingCharges: 99,
		TaxAmount:       162,
		DiscountAmount:  50,
	}
	o.RecomputeTotal()
	assert.Equal(t, 1111.0, o.TotalAmount)

	o.DiscountAmount = 0
	o.RecomputeTotal()
	assert.Equal(t, 1161.0, o.TotalAmount)
}
