package notifier

import (
	"fmt"

	"maelio_back_end/internal/models"
)

// paymentSuccessHTML génère le HTML de confirmation de commande
func paymentSuccessHTML(order *models.Order) string {
	itemsHTML := ""
	for _, item := range order.Items {
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td style="padding: 10px; border: 1px solid #ddd;">%s</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%d</td>
				<td style="padding: 10px; border: 1px solid #ddd;">₹%.2f</td>
				<td style="padding: 10px; border: 1px solid #ddd;">₹%.2f</td>
			</tr>`, item.Name, item.Quantity, item.Price, item.Price*float64(item.Quantity))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Confirmation de commande</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Paiement reçu — commande %s confirmée</h2>
		<p>Bonjour %s,</p>
		<p>Nous avons bien reçu votre paiement. Votre commande est confirmée.</p>

		<h3>Détails de la commande</h3>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Produit</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Quantité</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Prix unitaire</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>%s</tbody>
			<tfoot>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right;">Sous-total :</td>
					<td style="padding: 10px;">₹%.2f</td>
				</tr>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right;">Livraison :</td>
					<td style="padding: 10px;">₹%.2f</td>
				</tr>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right;">Taxes :</td>
					<td style="padding: 10px;">₹%.2f</td>
				</tr>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right; font-weight: bold;">Total :</td>
					<td style="padding: 10px; font-weight: bold;">₹%.2f</td>
				</tr>
			</tfoot>
		</table>

		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe Maelio</strong>
		</p>
	</div>
</body>
</html>`, order.OrderNumber, order.Customer.Name, itemsHTML,
		order.Subtotal, order.ShippingCharges, order.TaxAmount, order.TotalAmount)
}

func shippedHTML(order *models.Order) string {
	estimated := ""
	if order.Shipping.EstimatedDelivery != nil {
		estimated = fmt.Sprintf(`<p>Livraison estimée : <strong>%s</strong></p>`,
			order.Shipping.EstimatedDelivery.Format("02/01/2006"))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Commande expédiée</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Votre commande %s est en route 📦</h2>
		<p>Bonjour %s,</p>
		<p>Votre colis a été remis à <strong>%s</strong>.</p>
		<p>Numéro de suivi : <strong>%s</strong></p>
		%s
		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe Maelio</strong>
		</p>
	</div>
</body>
</html>`, order.OrderNumber, order.Customer.Name,
		order.Shipping.Carrier, order.Shipping.TrackingNumber, estimated)
}

func deliveredHTML(order *models.Order) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Commande livrée</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Votre commande %s a été livrée ✅</h2>
		<p>Bonjour %s,</p>
		<p>Votre commande a bien été livrée. Merci pour votre confiance !</p>
		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe Maelio</strong>
		</p>
	</div>
</body>
</html>`, order.OrderNumber, order.Customer.Name)
}
