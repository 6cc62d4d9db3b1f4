package gateway_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"maelio_back_end/internal/gateway"

	"github.com/stretchr/testify/assert"
)

func sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaymentSignature(t *testing.T) {
	const secret = "test_secret"
	valid := sign("order_abc123|pay_xyz789", secret)

	testCases := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		want      bool
	}{
		{
			name:      "signature valide",
			orderID:   "order_abc123",
			paymentID: "pay_xyz789",
			signature: valid,
			want:      true,
		},
		{
			name:      "payment id falsifié",
			orderID:   "order_abc123",
			paymentID: "pay_autre",
			signature: valid,
			want:      false,
		},
		{
			name:      "order id falsifié",
			orderID:   "order_autre",
			paymentID: "pay_xyz789",
			signature: valid,
			want:      false,
		},
		{
			name:      "signature vide",
			orderID:   "order_abc123",
			paymentID: "pay_xyz789",
			signature: "",
			want:      false,
		},
		{
			name:      "mauvais secret",
			orderID:   "order_abc123",
			paymentID: "pay_xyz789",
			signature: sign("order_abc123|pay_xyz789", "autre_secret"),
			want:      false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := gateway.VerifyPaymentSignature(tc.orderID, tc.paymentID, tc.signature, secret)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestVerifyPaymentSignature_Deterministic(t *testing.T) {
	const secret = "test_secret"
	valid := sign("order_abc123|pay_xyz789", secret)

	// Même résultat quel que soit le nombre d'appels
	for i := 0; i < 10; i++ {
		assert.True(t, gateway.VerifyPaymentSignature("order_abc123", "pay_xyz789", valid, secret))
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	const secret = "webhook_secret"
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1"}}}}`)
	valid := sign(string(body), secret)

	assert.True(t, gateway.VerifyWebhookSignature(body, valid, secret))

	// Un seul octet modifié invalide la signature
	tampered := make([]byte, len(body))
	copy(tampered, body)
	tampered[10] ^= 0x01
	assert.False(t, gateway.VerifyWebhookSignature(tampered, valid, secret))

	// Une re-sérialisation (espace ajouté) l'invalide aussi
	respaced := []byte(`{"event": "payment.captured","payload":{"payment":{"entity":{"id":"pay_1"}}}}`)
	assert.False(t, gateway.VerifyWebhookSignature(respaced, valid, secret))
}
