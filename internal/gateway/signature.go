package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyPaymentSignature vérifie la signature renvoyée par le client après
// paiement : HMAC-SHA256 sur "orderID|paymentID" avec le key secret.
// Fonction pure, comparaison en temps constant.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature vérifie la signature d'un webhook Razorpay.
// Le HMAC porte sur le body brut, exactement tel que reçu : toute
// re-sérialisation JSON (ordre des clés, espaces) invalide la signature.
func VerifyWebhookSignature(rawBody []byte, signature, webhookSecret string) bool {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
