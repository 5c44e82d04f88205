package whatsapp

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// SaleNotification carries everything needed to congratulate one deal
// participant over WhatsApp.
type SaleNotification struct {
	TenantID         int64
	Phone            string
	BrokerName       string
	PropertyTitle    string
	PropertyAddress  string // optional
	SaleValue        float64
	SaleDate         time.Time
	CommissionValue  float64
	CurrentMetaValue float64
	MetaGoal         float64
}

// SendSaleNotification formats and delivers the fixed sale template.
// Fire-and-forget from the deal workflow's perspective: the boolean only
// feeds the server-side log.
func (m *Manager) SendSaleNotification(ctx context.Context, n SaleNotification) bool {
	return m.SendMessage(ctx, n.TenantID, n.Phone, n.Message())
}

// Message renders the notification body. Template and wording are fixed
// product copy (pt-BR).
func (n SaleNotification) Message() string {
	var b strings.Builder
	b.WriteString("🏠 *Nova Venda Registrada!*\n\n")
	fmt.Fprintf(&b, "Olá, %s! 🎉\n\n", firstName(n.BrokerName))
	fmt.Fprintf(&b, "📍 *Imóvel:* %s", n.PropertyTitle)
	if n.PropertyAddress != "" {
		fmt.Fprintf(&b, "\n📌 %s", n.PropertyAddress)
	}
	fmt.Fprintf(&b, "\n💰 *Valor da Venda:* %s\n", formatBRL(n.SaleValue))
	fmt.Fprintf(&b, "📅 *Data:* %s\n\n", n.SaleDate.Format("02/01/2006"))
	fmt.Fprintf(&b, "💵 *Sua Comissão:* %s\n\n", formatBRL(n.CommissionValue))
	b.WriteString("📊 *Sua Meta:*\n")
	fmt.Fprintf(&b, "%s\n", progressBar(n.metaPercent()))
	fmt.Fprintf(&b, "%s / %s\n\n", formatBRL(n.CurrentMetaValue), formatBRL(n.MetaGoal))
	b.WriteString("Parabéns pela conquista! Continue assim! 🚀")
	return b.String()
}

func (n SaleNotification) metaPercent() float64 {
	if n.MetaGoal <= 0 {
		return 0
	}
	return n.CurrentMetaValue / n.MetaGoal * 100
}

const progressSegments = 10

// progressBar renders a 10-segment block bar plus the rounded percent,
// clamped to 0–100.
func progressBar(percent float64) string {
	percent = math.Min(math.Max(percent, 0), 100)
	filled := int(math.Floor(percent / 10))
	if filled > progressSegments {
		filled = progressSegments
	}
	return strings.Repeat("▓", filled) +
		strings.Repeat("░", progressSegments-filled) +
		fmt.Sprintf(" %d%%", int(math.Round(percent)))
}

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

func formatBRL(v float64) string {
	return ptBR.Sprintf("R$ %v", number.Decimal(v,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

func firstName(full string) string {
	if fields := strings.Fields(full); len(fields) > 0 {
		return fields[0]
	}
	return full
}
