package notifier

import (
	"fmt"
	"log"
	"os"

	"maelio_back_end/internal/models"

	"github.com/wneessen/go-mail"
)

// Notifier envoie les e-mails transactionnels. Les envois sont best-effort :
// un échec est loggué, jamais remonté à la transition qui l'a déclenché.
type Notifier interface {
	PaymentSuccess(order *models.Order) error
	OrderShipped(order *models.Order) error
	OrderDelivered(order *models.Order) error
}

type EmailNotifier struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewEmailNotifier() *EmailNotifier {
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "noreply@maelio.shop"
	}
	return &EmailNotifier{
		host: os.Getenv("SMTP_HOST"),
		port: 587,
		user: os.Getenv("SMTP_USERNAME"),
		pass: os.Getenv("SMTP_PASSWORD"),
		from: from,
	}
}

func (n *EmailNotifier) send(to, subject, htmlBody string) error {
	msg := mail.NewMsg()

	if err := msg.From(n.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(n.host,
		mail.WithPort(n.port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(n.user),
		mail.WithPassword(n.pass),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSend(msg)
}

func (n *EmailNotifier) PaymentSuccess(order *models.Order) error {
	subject := fmt.Sprintf("Confirmation de votre commande %s", order.OrderNumber)
	return n.send(order.Customer.Email, subject, paymentSuccessHTML(order))
}

func (n *EmailNotifier) OrderShipped(order *models.Order) error {
	subject := fmt.Sprintf("Votre commande %s a été expédiée", order.OrderNumber)
	return n.send(order.Customer.Email, subject, shippedHTML(order))
}

func (n *EmailNotifier) OrderDelivered(order *models.Order) error {
	subject := fmt.Sprintf("Votre commande %s a été livrée", order.OrderNumber)
	return n.send(order.Customer.Email, subject, deliveredHTML(order))
}
