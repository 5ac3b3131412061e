// Package notify turns matches into the messages stored for delivery.
package notify

import (
	"fmt"
	"strings"

	"github.com/NasaVasa/robowatch/internal/domain"
	"github.com/NasaVasa/robowatch/internal/lookup"
)

type CoordinatorDirectory interface {
	CoordinatorName(source string) string
}

type Builder struct {
	directory CoordinatorDirectory
}

func NewBuilder(directory CoordinatorDirectory) *Builder {
	return &Builder{directory: directory}
}

// Build fills in the coordinator name of match and returns the pending
// notification keyed by (userID, order id).
func (b *Builder) Build(userID uint, match domain.Match) domain.Notification {
	if match.Coordinator == "" && b.directory != nil {
		match.Coordinator = b.directory.CoordinatorName(match.Order.Source)
	}
	return domain.Notification{
		UserID:  userID,
		OrderID: match.Order.ID,
		Message: FormatMessage(match),
		Status:  domain.NotificationPending,
	}
}

func FormatMessage(match domain.Match) string {
	order := match.Order

	var builder strings.Builder
	builder.WriteString("⚡ Match found! ⚡\n\n")
	fmt.Fprintf(&builder, "For you to %s\n\n", match.Alert.Action)
	fmt.Fprintf(&builder, "・Order ID: %s\n", order.ID)
	fmt.Fprintf(&builder, "・Premium: %s%%\n", order.Premium)
	fmt.Fprintf(&builder, "・Payment Method: %s\n", order.PaymentMethod)
	fmt.Fprintf(&builder, "・Amount: %s %s\n\n", AmountDisplay(order), CurrencyDisplay(match.Alert))
	fmt.Fprintf(&builder, "🌍 %s", OrderURL(order))
	if match.Coordinator != "" {
		fmt.Fprintf(&builder, "\n\n🤖 Coordinator: %s", match.Coordinator)
	}
	return builder.String()
}

func AmountDisplay(order domain.Order) string {
	if order.HasRange {
		return TrimDecimal(order.MinAmount) + "-" + TrimDecimal(order.MaxAmount)
	}
	return TrimDecimal(order.Amount)
}

func CurrencyDisplay(alert domain.Alert) string {
	if alert.AnyCurrency() {
		return "Any Currency"
	}
	return alert.Currency
}

func OrderURL(order domain.Order) string {
	return fmt.Sprintf("http://%s/order/%s", lookup.NormalizeOrigin(order.Source), order.ID)
}

// TrimDecimal drops trailing fractional zeros and a dangling point:
// "100.00" -> "100", "100.50" -> "100.5". Integers are returned unchanged.
func TrimDecimal(value string) string {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, ".") {
		return value
	}
	return strings.TrimRight(strings.TrimRight(value, "0"), ".")
}
