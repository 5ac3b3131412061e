package notify

import (
	"strings"
	"testing"

	"github.com/NasaVasa/robowatch/internal/domain"
	"github.com/NasaVasa/robowatch/internal/lookup"
	"github.com/stretchr/testify/assert"
)

func testMatch() domain.Match {
	return domain.Match{
		Alert: domain.Alert{ID: 3, UserID: 9, Action: domain.ActionBuy, Currency: "EUR"},
		Order: domain.Order{
			ID:            "8123",
			Premium:       "1.25",
			PaymentMethod: "Revolut Wise",
			Amount:        "250.00000000",
			Source:        "satstraoq35jffvkgpfoqld32nzw2siuvowanruindbfojowpwsjdgad.onion",
		},
	}
}

func testFederation() lookup.Federation {
	var coordinator lookup.Coordinator
	coordinator.LongAlias = "Bitcoin Veneto"
	coordinator.Mainnet.Onion = "http://satstraoq35jffvkgpfoqld32nzw2siuvowanruindbfojowpwsjdgad.onion"
	return lookup.Federation{"veneto": coordinator}
}

func TestTrimDecimal(t *testing.T) {
	cases := map[string]string{
		"100.00":       "100",
		"100.50":       "100.5",
		"100":          "100",
		"1000":         "1000",
		"0.0":          "0",
		"250.00000000": "250",
		"":             "",
	}
	for input, want := range cases {
		assert.Equal(t, want, TrimDecimal(input), input)
	}
}

func TestAmountDisplay(t *testing.T) {
	ranged := domain.Order{HasRange: true, MinAmount: "100.00", MaxAmount: "350.50"}
	assert.Equal(t, "100-350.5", AmountDisplay(ranged))

	single := domain.Order{Amount: "75.10"}
	assert.Equal(t, "75.1", AmountDisplay(single))
}

func TestCurrencyDisplay(t *testing.T) {
	assert.Equal(t, "Any Currency", CurrencyDisplay(domain.Alert{Currency: "any"}))
	assert.Equal(t, "Any Currency", CurrencyDisplay(domain.Alert{Currency: "ANY"}))
	assert.Equal(t, "USD", CurrencyDisplay(domain.Alert{Currency: "USD"}))
}

func TestBuildNotification(t *testing.T) {
	builder := NewBuilder(testFederation())

	notification := builder.Build(9, testMatch())

	assert.Equal(t, uint(9), notification.UserID)
	assert.Equal(t, "8123", notification.OrderID)
	assert.Equal(t, domain.NotificationPending, notification.Status)

	message := notification.Message
	assert.Contains(t, message, "For you to BUY")
	assert.Contains(t, message, "Order ID: 8123")
	assert.Contains(t, message, "Premium: 1.25%")
	assert.Contains(t, message, "Payment Method: Revolut Wise")
	assert.Contains(t, message, "Amount: 250 EUR")
	assert.Contains(t, message, "http://satstraoq35jffvkgpfoqld32nzw2siuvowanruindbfojowpwsjdgad.onion/order/8123")
	assert.True(t, strings.HasSuffix(message, "Coordinator: Bitcoin Veneto"))
}

func TestBuildOmitsUnknownCoordinator(t *testing.T) {
	builder := NewBuilder(lookup.Federation{})
	match := testMatch()
	match.Alert.Currency = "ANY"

	message := builder.Build(9, match).Message

	assert.NotContains(t, message, "Coordinator")
	assert.Contains(t, message, "Amount: 250 Any Currency")
	assert.True(t, strings.HasSuffix(message, "/order/8123"))
}

func TestOrderURLDoesNotDoubleScheme(t *testing.T) {
	order := domain.Order{ID: "1", Source: "http://abc.onion"}
	assert.Equal(t, "http://abc.onion/order/1", OrderURL(order))
}
