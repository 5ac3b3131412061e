package domain

import (
	"strings"
	"time"
)

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// ParseAction accepts buy/sell in any case.
func ParseAction(raw string) (Action, bool) {
	switch Action(strings.ToUpper(strings.TrimSpace(raw))) {
	case ActionBuy:
		return ActionBuy, true
	case ActionSell:
		return ActionSell, true
	}
	return "", false
}

const (
	// AnyCurrency disables the currency rule. Compared case-insensitively.
	AnyCurrency = "ANY"
	// AnyToken disables the payment method rule, or marks an amount bound as unconstrained.
	AnyToken = "any"
)

// Alert is a user's standing interest in P2P orders. Premium and the amount
// bounds are kept as entered: decimal text, "any", or empty when absent.
type Alert struct {
	ID             uint
	UserID         uint
	Action         Action
	Currency       string
	Premium        string
	PaymentMethods string
	MinAmount      string
	MaxAmount      string
	Active         bool
	ExpiresAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a Alert) AnyCurrency() bool {
	return strings.EqualFold(strings.TrimSpace(a.Currency), AnyCurrency)
}
