package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/NasaVasa/robowatch/internal/domain"
	"github.com/NasaVasa/robowatch/internal/usecase"
)

const HelpText = `Commands:
/start - register
/help - show this help
/new <BUY|SELL> <CURRENCY|ANY> <premium> <payment methods> <min-max>
/list - list your alerts
/enable <alert_id>
/disable <alert_id>
/enableall
/disableall
/remove <alert_id>
/extend <alert_id> <days>

Notes:
- BUY alerts match orders at or below your premium, SELL alerts at or above it.
- Payment methods are comma separated; use any to accept every method.
- Either side of the amount range may be ANY.
- Alerts expire after a week unless extended.
Example:
/new BUY USD 3 Revolut, Wise 100-500
`

var ErrInvalidArguments = errors.New("invalid arguments")

// ParseNewAlertArgs splits "/new" arguments. Everything between the premium
// and the trailing range is the payment method list.
func ParseNewAlertArgs(args string) (usecase.NewAlert, error) {
	parts := strings.Fields(args)
	if len(parts) < 5 {
		return usecase.NewAlert{}, ErrInvalidArguments
	}
	last := len(parts) - 1
	return usecase.NewAlert{
		Action:         parts[0],
		Currency:       parts[1],
		Premium:        parts[2],
		PaymentMethods: strings.Join(parts[3:last], " "),
		AmountRange:    parts[last],
	}, nil
}

func ParseAlertID(args string) (uint, error) {
	idStr := strings.TrimPrefix(strings.TrimSpace(args), "#")
	if idStr == "" {
		return 0, ErrInvalidArguments
	}
	value, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, ErrInvalidArguments
	}
	return uint(value), nil
}

func ParseExtendArgs(args string) (uint, int, error) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return 0, 0, ErrInvalidArguments
	}
	alertID, err := ParseAlertID(parts[0])
	if err != nil {
		return 0, 0, err
	}
	days, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, ErrInvalidArguments
	}
	return alertID, days, nil
}

func FormatAlert(alert domain.Alert) string {
	status := "disabled"
	if alert.Active {
		status = "enabled"
	}
	return fmt.Sprintf(
		"#%d [%s] %s %s premium %s%% via %s amount %s-%s, expires %s",
		alert.ID,
		status,
		alert.Action,
		alert.Currency,
		alert.Premium,
		alert.PaymentMethods,
		rangeSide(alert.MinAmount),
		rangeSide(alert.MaxAmount),
		alert.ExpiresAt.UTC().Format("2006-01-02 15:04 UTC"),
	)
}

func rangeSide(value string) string {
	if value == "" || strings.EqualFold(value, domain.AnyToken) {
		return "ANY"
	}
	return value
}
