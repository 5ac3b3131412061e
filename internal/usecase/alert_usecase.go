package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/NasaVasa/robowatch/internal/domain"
	"github.com/NasaVasa/robowatch/internal/lookup"
	"github.com/shopspring/decimal"
)

var (
	ErrUserNotRegistered    = errors.New("user not registered")
	ErrInvalidAction        = errors.New("invalid action")
	ErrInvalidCurrency      = errors.New("invalid currency")
	ErrInvalidPremium       = errors.New("invalid premium")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidAmountRange   = errors.New("invalid amount range")
	ErrInvalidDays          = errors.New("invalid number of days")
	ErrAlertNotFound        = errors.New("alert not found")
)

// TableSource hands out the current reference tables.
type TableSource interface {
	Tables() lookup.Tables
}

type NewAlert struct {
	Action         string
	Currency       string
	Premium        string
	PaymentMethods string
	// AmountRange is "min-max"; either side may be ANY.
	AmountRange string
}

type AlertUsecase struct {
	users  domain.UserRepository
	alerts domain.AlertRepository
	tables TableSource
	ttl    time.Duration
	now    func() time.Time
}

func NewAlertUsecase(users domain.UserRepository, alerts domain.AlertRepository, tables TableSource, ttl time.Duration) *AlertUsecase {
	return &AlertUsecase{users: users, alerts: alerts, tables: tables, ttl: ttl, now: time.Now}
}

func (u *AlertUsecase) RegisterUser(ctx context.Context, telegramUserID int64, username string) (*domain.User, error) {
	user, err := u.users.GetByTelegramID(ctx, telegramUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	user = &domain.User{TelegramUserID: telegramUserID, Username: username}
	if err := u.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *AlertUsecase) AddAlert(ctx context.Context, telegramUserID int64, input NewAlert) (*domain.Alert, error) {
	user, err := u.user(ctx, telegramUserID)
	if err != nil {
		return nil, err
	}

	action, ok := domain.ParseAction(input.Action)
	if !ok {
		return nil, ErrInvalidAction
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency != domain.AnyCurrency && !u.tables.Tables().Currencies.HasSymbol(currency) {
		return nil, ErrInvalidCurrency
	}

	premium, err := decimal.NewFromString(strings.TrimSpace(input.Premium))
	if err != nil {
		return nil, ErrInvalidPremium
	}

	methods := strings.TrimSpace(input.PaymentMethods)
	if methods == "" {
		return nil, ErrInvalidPaymentMethod
	}
	if strings.EqualFold(methods, domain.AnyToken) {
		methods = domain.AnyToken
	}

	minAmount, maxAmount, err := ParseAmountRange(input.AmountRange)
	if err != nil {
		return nil, err
	}

	alert := &domain.Alert{
		UserID:         user.ID,
		Action:         action,
		Currency:       currency,
		Premium:        premium.String(),
		PaymentMethods: methods,
		MinAmount:      minAmount,
		MaxAmount:      maxAmount,
		Active:         true,
		ExpiresAt:      u.now().UTC().Add(u.ttl),
	}
	if err := u.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// ParseAmountRange parses "min-max" where each side is a non-negative decimal
// or ANY. ANY is returned as "any".
func ParseAmountRange(raw string) (string, string, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 {
		return "", "", ErrInvalidAmountRange
	}

	bounds := make([]string, 2)
	values := make([]*decimal.Decimal, 2)
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if strings.EqualFold(part, domain.AnyToken) {
			bounds[i] = domain.AnyToken
			continue
		}
		value, err := decimal.NewFromString(part)
		if err != nil || value.IsNegative() {
			return "", "", ErrInvalidAmountRange
		}
		bounds[i] = value.String()
		values[i] = &value
	}
	if values[0] != nil && values[1] != nil && values[0].GreaterThan(*values[1]) {
		return "", "", ErrInvalidAmountRange
	}
	return bounds[0], bounds[1], nil
}

func (u *AlertUsecase) ListAlerts(ctx context.Context, telegramUserID int64) ([]domain.Alert, error) {
	user, err := u.user(ctx, telegramUserID)
	if err != nil {
		return nil, err
	}
	return u.alerts.ListByUser(ctx, user.ID)
}

func (u *AlertUsecase) EnableAlert(ctx context.Context, telegramUserID int64, alertID uint) error {
	return u.setActive(ctx, telegramUserID, alertID, true)
}

func (u *AlertUsecase) DisableAlert(ctx context.Context, telegramUserID int64, alertID uint) error {
	return u.setActive(ctx, telegramUserID, alertID, false)
}

func (u *AlertUsecase) EnableAll(ctx context.Context, telegramUserID int64) (int64, error) {
	return u.setAllActive(ctx, telegramUserID, true)
}

func (u *AlertUsecase) DisableAll(ctx context.Context, telegramUserID int64) (int64, error) {
	return u.setAllActive(ctx, telegramUserID, false)
}

func (u *AlertUsecase) DeleteAlert(ctx context.Context, telegramUserID int64, alertID uint) error {
	user, err := u.user(ctx, telegramUserID)
	if err != nil {
		return err
	}
	return alertNotFound(u.alerts.Delete(ctx, user.ID, alertID))
}

// ExtendAlert moves the expiry to now + days and re-enables the alert.
func (u *AlertUsecase) ExtendAlert(ctx context.Context, telegramUserID int64, alertID uint, days int) (time.Time, error) {
	if days <= 0 || days > 365 {
		return time.Time{}, ErrInvalidDays
	}
	user, err := u.user(ctx, telegramUserID)
	if err != nil {
		return time.Time{}, err
	}
	expiresAt := u.now().UTC().AddDate(0, 0, days)
	if err := alertNotFound(u.alerts.Extend(ctx, user.ID, alertID, expiresAt)); err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}

func (u *AlertUsecase) setActive(ctx context.Context, telegramUserID int64, alertID uint, active bool) error {
	user, err := u.user(ctx, telegramUserID)
	if err != nil {
		return err
	}
	return alertNotFound(u.alerts.SetActive(ctx, user.ID, alertID, active))
}

func (u *AlertUsecase) setAllActive(ctx context.Context, telegramUserID int64, active bool) (int64, error) {
	user, err := u.user(ctx, telegramUserID)
	if err != nil {
		return 0, err
	}
	return u.alerts.SetAllActive(ctx, user.ID, active)
}

func (u *AlertUsecase) user(ctx context.Context, telegramUserID int64) (*domain.User, error) {
	user, err := u.users.GetByTelegramID(ctx, telegramUserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotRegistered
		}
		return nil, err
	}
	return user, nil
}

func alertNotFound(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return ErrAlertNotFound
	}
	return err
}
