package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/OzanT1/ECommerce-Backend-System/internal/logging"
	"github.com/OzanT1/ECommerce-Backend-System/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var sends = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "order_confirmation_emails_total",
		Help: "Order confirmation emails by outcome",
	},
	[]string{"outcome"}, // sent | failed
)

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// SMTPSender delivers the order confirmation mail. It is invoked by the
// fulfillment worker, possibly more than once per order; dedup lives in
// front of it.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender { return &SMTPSender{cfg: cfg} }

var _ usecase.NotificationSender = (*SMTPSender)(nil)

func (s *SMTPSender) SendOrderConfirmation(ctx context.Context, to, orderID string, total decimal.Decimal) error {
	subject := "Order Confirmation - " + orderID
	body := fmt.Sprintf(
		"Thank you for your order!\r\n\r\nYour order %s has been confirmed.\r\nTotal amount: $%s\r\n\r\nWe'll send you another email when your order ships.\r\n",
		orderID, total.StringFixed(2))

	message := []byte("From: " + s.cfg.FromName + " <" + s.cfg.From + ">\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := smtp.SendMail(s.cfg.Host+":"+s.cfg.Port, auth, s.cfg.From, []string{to}, message); err != nil {
		sends.WithLabelValues("failed").Inc()
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	sends.WithLabelValues("sent").Inc()
	logging.FromCtx(ctx).Info("confirmation email sent", "to", to, "order_id", orderID)
	return nil
}
