// Package matcher decides which P2P orders satisfy a user's alert.
package matcher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NasaVasa/robowatch/internal/domain"
	"github.com/shopspring/decimal"
)

// Rejection names the first rule an order failed. Accepted is the zero value.
type Rejection string

const (
	Accepted            Rejection = ""
	RejectCurrency      Rejection = "currency"
	RejectDirection     Rejection = "direction"
	RejectPremium       Rejection = "premium"
	RejectPaymentMethod Rejection = "payment_method"
	RejectAmount        Rejection = "amount"
)

// ErrMalformed wraps every premium or amount that is not a decimal.
var ErrMalformed = errors.New("malformed number")

// Matches reports whether order satisfies alert. symbol is the order's
// currency resolved through the currency table, "" when unresolved.
func Matches(alert domain.Alert, order domain.Order, symbol string) (bool, error) {
	rejection, err := Evaluate(alert, order, symbol)
	if err != nil {
		return false, err
	}
	return rejection == Accepted, nil
}

// Evaluate applies the rules in order and stops at the first failure. An error
// means a premium or amount could not be parsed; the returned Rejection then
// names the rule that was being evaluated.
func Evaluate(alert domain.Alert, order domain.Order, symbol string) (Rejection, error) {
	if !currencyMatches(alert, symbol) {
		return RejectCurrency, nil
	}

	action, ok := domain.ParseAction(string(alert.Action))
	if !ok || !directionMatches(action, order.Type) {
		return RejectDirection, nil
	}

	ok, err := premiumMatches(action, alert.Premium, order.Premium)
	if err != nil {
		return RejectPremium, err
	}
	if !ok {
		return RejectPremium, nil
	}

	if !paymentMethodMatches(alert.PaymentMethods, order.PaymentMethod) {
		return RejectPaymentMethod, nil
	}

	if alertBoundsInverted(alert) {
		return RejectAmount, nil
	}
	if order.HasRange {
		ok, err = rangeMatches(alert, order)
	} else {
		ok, err = amountMatches(alert, order)
	}
	if err != nil {
		return RejectAmount, err
	}
	if !ok {
		return RejectAmount, nil
	}

	return Accepted, nil
}

func currencyMatches(alert domain.Alert, symbol string) bool {
	if alert.AnyCurrency() {
		return true
	}
	return symbol != "" && symbol == alert.Currency
}

// A buyer needs a maker that sells, which the book lists as type 1, and the
// other way round.
func directionMatches(action domain.Action, orderType domain.OrderType) bool {
	switch action {
	case domain.ActionBuy:
		return orderType == domain.OrderTypeBuy
	case domain.ActionSell:
		return orderType == domain.OrderTypeSell
	}
	return false
}

// Sellers want at least their premium, buyers at most theirs.
func premiumMatches(action domain.Action, alertPremium, orderPremium string) (bool, error) {
	limit, err := parseDecimal(alertPremium)
	if err != nil {
		return false, fmt.Errorf("alert premium: %w", err)
	}
	offered, err := parseDecimal(orderPremium)
	if err != nil {
		return false, fmt.Errorf("order premium: %w", err)
	}
	if action == domain.ActionSell {
		return offered.Cmp(limit) >= 0, nil
	}
	return offered.Cmp(limit) <= 0, nil
}

// NormalizePaymentMethod lowercases method and removes every space.
func NormalizePaymentMethod(method string) string {
	return strings.ReplaceAll(strings.ToLower(method), " ", "")
}

// Coordinators join several methods into one string, so an alert token only
// has to appear somewhere in it. An empty token is a substring of every
// method and matches like any.
func paymentMethodMatches(alertMethods, orderMethod string) bool {
	offered := NormalizePaymentMethod(orderMethod)
	for _, raw := range strings.Split(alertMethods, ",") {
		token := NormalizePaymentMethod(raw)
		if token == domain.AnyToken || strings.Contains(offered, token) {
			return true
		}
	}
	return false
}

// bound is one side of an amount range. An unset bound does not constrain.
type bound struct {
	value decimal.Decimal
	set   bool
}

func alertBoundText(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func parseAlertBound(raw string) (bound, error) {
	text := alertBoundText(raw)
	if text == "" || text == domain.AnyToken {
		return bound{}, nil
	}
	value, err := parseDecimal(text)
	if err != nil {
		return bound{}, fmt.Errorf("alert amount: %w", err)
	}
	return bound{value: value, set: true}, nil
}

// Empty, "any" and zero order bounds are treated as unknown.
func parseOrderBound(raw string) (bound, error) {
	text := strings.TrimSpace(raw)
	if text == "" || strings.EqualFold(text, domain.AnyToken) {
		return bound{}, nil
	}
	value, err := parseDecimal(text)
	if err != nil {
		return bound{}, fmt.Errorf("order amount: %w", err)
	}
	if value.IsZero() {
		return bound{}, nil
	}
	return bound{value: value, set: true}, nil
}

// alertBoundsInverted reports whether both alert bounds are numbers and the
// minimum exceeds the maximum. Such an alert never matches, whatever the
// order carries. Unparseable bounds are left to the amount rules.
func alertBoundsInverted(alert domain.Alert) bool {
	alertMin, err := parseAlertBound(alert.MinAmount)
	if err != nil {
		return false
	}
	alertMax, err := parseAlertBound(alert.MaxAmount)
	if err != nil {
		return false
	}
	return alertMin.set && alertMax.set && alertMin.value.GreaterThan(alertMax.value)
}

// rangeMatches checks that the alert range overlaps the order range. The rule
// is skipped when the order does not carry both bounds.
func rangeMatches(alert domain.Alert, order domain.Order) (bool, error) {
	if alertBoundText(alert.MinAmount) == domain.AnyToken && alertBoundText(alert.MaxAmount) == domain.AnyToken {
		return true, nil
	}

	orderMin, err := parseOrderBound(order.MinAmount)
	if err != nil {
		return false, err
	}
	orderMax, err := parseOrderBound(order.MaxAmount)
	if err != nil {
		return false, err
	}
	if !orderMin.set || !orderMax.set {
		return true, nil
	}

	alertMin, err := parseAlertBound(alert.MinAmount)
	if err != nil {
		return false, err
	}
	alertMax, err := parseAlertBound(alert.MaxAmount)
	if err != nil {
		return false, err
	}

	if alertMax.set && alertMax.value.LessThan(orderMin.value) {
		return false, nil
	}
	if alertMin.set && alertMin.value.GreaterThan(orderMax.value) {
		return false, nil
	}
	return true, nil
}

// amountMatches checks a single-amount order against the alert range. The rule
// is skipped unless the alert has both bounds and the order has an amount.
func amountMatches(alert domain.Alert, order domain.Order) (bool, error) {
	if alertBoundText(alert.MinAmount) == "" || alertBoundText(alert.MaxAmount) == "" {
		return true, nil
	}
	amountText := strings.TrimSpace(order.Amount)
	if amountText == "" || strings.EqualFold(amountText, domain.AnyToken) {
		return true, nil
	}

	amount, err := parseDecimal(amountText)
	if err != nil {
		return false, fmt.Errorf("order amount: %w", err)
	}
	alertMin, err := parseAlertBound(alert.MinAmount)
	if err != nil {
		return false, err
	}
	alertMax, err := parseAlertBound(alert.MaxAmount)
	if err != nil {
		return false, err
	}

	if alertMin.set && amount.LessThan(alertMin.value) {
		return false, nil
	}
	if alertMax.set && amount.GreaterThan(alertMax.value) {
		return false, nil
	}
	return true, nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	return value, nil
}
