package orderbook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/NasaVasa/robowatch/internal/domain"
)

// bookOrder is one element of a coordinator's /api/book/ response.
type bookOrder struct {
	ID            Text `json:"id"`
	Currency      Text `json:"currency"`
	Type          Text `json:"type"`
	Premium       Text `json:"premium"`
	PaymentMethod Text `json:"payment_method"`
	HasRange      Flag `json:"has_range"`
	MinAmount     Text `json:"min_amount"`
	MaxAmount     Text `json:"max_amount"`
	Amount        Text `json:"amount"`
}

// Text accepts a JSON string, number or null and keeps its literal text.
// Coordinators are not consistent about quoting numbers.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = ""
		return nil
	}
	switch trimmed[0] {
	case '"':
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(value))
		return nil
	case '{', '[':
		return fmt.Errorf("unexpected value for text field: %s", trimmed)
	}
	*t = Text(trimmed)
	return nil
}

// Flag accepts true/false, 0/1 and their quoted forms. null is false.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	text := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(text) {
	case "", "null", "false", "0":
		*f = false
	case "true", "1":
		*f = true
	default:
		return fmt.Errorf("unexpected value for flag field: %s", data)
	}
	return nil
}

func (o bookOrder) toDomain(source string) (domain.Order, error) {
	orderType, err := strconv.Atoi(string(o.Type))
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %s type %q: %w", o.ID, o.Type, err)
	}
	return domain.Order{
		ID:            string(o.ID),
		Currency:      string(o.Currency),
		Type:          domain.OrderType(orderType),
		Premium:       string(o.Premium),
		PaymentMethod: string(o.PaymentMethod),
		HasRange:      bool(o.HasRange),
		MinAmount:     string(o.MinAmount),
		MaxAmount:     string(o.MaxAmount),
		Amount:        string(o.Amount),
		Source:        source,
	}, nil
}
