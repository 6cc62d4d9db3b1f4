package models

import "errors"

// Erreurs métier, testées avec errors.Is et traduites en statut HTTP
// au niveau des handlers.
var (
	ErrValidation             = errors.New("données invalides")
	ErrNotFound               = errors.New("ressource introuvable")
	ErrSignatureInvalid       = errors.New("signature invalide")
	ErrInvalidStateTransition = errors.New("transition de statut invalide")
	ErrGatewayUnavailable     = errors.New("passerelle de paiement indisponible")
	ErrRefundRejected         = errors.New("remboursement refusé")
)
