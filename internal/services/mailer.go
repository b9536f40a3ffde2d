package services

import (
	"context"
	"fmt"
	"strings"

	"festival-system/internal/config"
	"festival-system/internal/logger"
	"festival-system/internal/models"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunMailer отправляет квитанции через Mailgun.
type MailgunMailer struct {
	mg     *mailgun.MailgunImpl
	sender string
	log    *logger.Logger
}

// NewMailgunMailer создаёт почтовый клиент. Возвращает nil, если почта
// выключена в конфигурации: вызывающий код трактует nil как no-op.
func NewMailgunMailer(cfg *config.MailConfig, log *logger.Logger) *MailgunMailer {
	if !cfg.Enabled {
		return nil
	}
	return &MailgunMailer{
		mg:     mailgun.NewMailgun(cfg.Domain, cfg.APIKey),
		sender: cfg.Sender,
		log:    log,
	}
}

// SendReceipt отправляет письмо с разбивкой стоимости покупки.
func (m *MailgunMailer) SendReceipt(ctx context.Context, to string, lines []models.PurchaseLine, totalCents int64, discounts []*models.Discount) error {
	subject := "Your festival purchase receipt"
	body := formatReceiptBody(lines, totalCents, discounts)

	message := m.mg.NewMessage(m.sender, subject, body, to)
	_, id, err := m.mg.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send receipt to %s: %w", to, err)
	}

	m.log.WithFields(map[string]interface{}{
		"recipient":  to,
		"message_id": id,
	}).Info("Receipt email sent")

	return nil
}

func formatReceiptBody(lines []models.PurchaseLine, totalCents int64, discounts []*models.Discount) string {
	var b strings.Builder
	b.WriteString("Thank you for your purchase!\n\n")
	for _, line := range lines {
		fmt.Fprintf(&b, "%s x%d: %s\n", line.Description, line.Quantity, formatCents(line.DiscountedPriceCents))
	}
	if len(discounts) > 0 {
		b.WriteString("\nApplied discounts:\n")
		for _, d := range discounts {
			fmt.Fprintf(&b, "- %s\n", d.DiscountCode)
		}
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", formatCents(totalCents))
	return b.String()
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
