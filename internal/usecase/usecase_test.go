package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NasaVasa/robowatch/internal/config"
	"github.com/NasaVasa/robowatch/internal/domain"
	"github.com/NasaVasa/robowatch/internal/infra/db"
	"github.com/NasaVasa/robowatch/internal/lookup"
	"github.com/NasaVasa/robowatch/internal/matcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const robosatsOnion = "robosats6tkf3eva7x2voqso3a5wcorsnw34jveyxfqi2fu7oyheasid.onion"

type staticTables lookup.Tables

func (s staticTables) Tables() lookup.Tables { return lookup.Tables(s) }

func testTables() staticTables {
	coordinator := lookup.Coordinator{LongAlias: "RoboSats", ShortAlias: "robosats"}
	coordinator.Mainnet.Onion = "http://" + robosatsOnion
	return staticTables{
		Currencies: lookup.CurrencyTable{"1": "USD", "2": "EUR"},
		Federation: lookup.Federation{"robosats": coordinator},
	}
}

type staticBooks []domain.OrderBook

func (s staticBooks) Snapshots(context.Context) ([]domain.OrderBook, error) { return s, nil }

type sentMessage struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	mu       sync.Mutex
	failures int
	sent     []sentMessage
	attempts int
}

func (n *fakeNotifier) Notify(chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attempts++
	if n.failures != 0 {
		if n.failures > 0 {
			n.failures--
		}
		return errors.New("telegram unavailable")
	}
	n.sent = append(n.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

type fixture struct {
	conn          *gorm.DB
	users         *db.UserRepository
	alerts        *db.AlertRepository
	notifications *db.NotificationRepository
	alertUC       *AlertUsecase
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn, err := db.Open(config.Config{
		DBDriver:     config.DriverSQLite,
		DBSQLitePath: filepath.Join(t.TempDir(), "robowatch.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	users := db.NewUserRepository(conn)
	alerts := db.NewAlertRepository(conn)
	return fixture{
		conn:          conn,
		users:         users,
		alerts:        alerts,
		notifications: db.NewNotificationRepository(conn),
		alertUC:       NewAlertUsecase(users, alerts, testTables(), 7*24*time.Hour),
	}
}

func (f fixture) register(t *testing.T, telegramID int64) *domain.User {
	t.Helper()
	user, err := f.alertUC.RegisterUser(context.Background(), telegramID, "satoshi")
	require.NoError(t, err)
	return user
}

func TestRegisterUserIsIdempotent(t *testing.T) {
	f := newFixture(t)
	first := f.register(t, 42)
	second := f.register(t, 42)
	assert.Equal(t, first.ID, second.ID)
}

func TestAddAlertValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	valid := NewAlert{Action: "buy", Currency: "usd", Premium: "-1.50", PaymentMethods: "Revolut, SEPA", AmountRange: "100-ANY"}

	_, err := f.alertUC.AddAlert(ctx, 42, valid)
	assert.ErrorIs(t, err, ErrUserNotRegistered)

	f.register(t, 42)
	alert, err := f.alertUC.AddAlert(ctx, 42, valid)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBuy, alert.Action)
	assert.Equal(t, "USD", alert.Currency)
	assert.Equal(t, "-1.5", alert.Premium)
	assert.Equal(t, "100", alert.MinAmount)
	assert.Equal(t, domain.AnyToken, alert.MaxAmount)
	assert.True(t, alert.Active)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), alert.ExpiresAt, time.Minute)

	cases := []struct {
		name   string
		mutate func(*NewAlert)
		want   error
	}{
		{"action", func(in *NewAlert) { in.Action = "hold" }, ErrInvalidAction},
		{"unknown currency", func(in *NewAlert) { in.Currency = "XYZ" }, ErrInvalidCurrency},
		{"premium", func(in *NewAlert) { in.Premium = "lots" }, ErrInvalidPremium},
		{"methods", func(in *NewAlert) { in.PaymentMethods = " " }, ErrInvalidPaymentMethod},
		{"range", func(in *NewAlert) { in.AmountRange = "500-100" }, ErrInvalidAmountRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			_, err := f.alertUC.AddAlert(ctx, 42, input)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	anyCurrency := valid
	anyCurrency.Currency = "any"
	alert, err = f.alertUC.AddAlert(ctx, 42, anyCurrency)
	require.NoError(t, err)
	assert.Equal(t, domain.AnyCurrency, alert.Currency)
}

func TestParseAmountRange(t *testing.T) {
	cases := []struct {
		raw      string
		min, max string
		ok       bool
	}{
		{"100-500", "100", "500", true},
		{"any-any", "any", "any", true},
		{"ANY-250.50", "any", "250.5", true},
		{"0-0", "0", "0", true},
		{"500-100", "", "", false},
		{"100", "", "", false},
		{"a-b", "", "", false},
		{"-5-10", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			min, max, err := ParseAmountRange(tc.raw)
			if !tc.ok {
				assert.ErrorIs(t, err, ErrInvalidAmountRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.min, min)
			assert.Equal(t, tc.max, max)
		})
	}
}

func TestAlertManagement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, 1)
	f.register(t, 2)

	input := NewAlert{Action: "SELL", Currency: "EUR", Premium: "2", PaymentMethods: "sepa", AmountRange: "any-any"}
	first, err := f.alertUC.AddAlert(ctx, 1, input)
	require.NoError(t, err)
	_, err = f.alertUC.AddAlert(ctx, 1, input)
	require.NoError(t, err)

	assert.ErrorIs(t, f.alertUC.DisableAlert(ctx, 2, first.ID), ErrAlertNotFound)
	require.NoError(t, f.alertUC.DisableAlert(ctx, 1, first.ID))

	changed, err := f.alertUC.DisableAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	changed, err = f.alertUC.EnableAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	_, err = f.alertUC.ExtendAlert(ctx, 1, first.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidDays)
	expiresAt, err := f.alertUC.ExtendAlert(ctx, 1, first.ID, 30)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), expiresAt, time.Minute)

	require.NoError(t, f.alertUC.DeleteAlert(ctx, 1, first.ID))
	assert.ErrorIs(t, f.alertUC.DeleteAlert(ctx, 1, first.ID), ErrAlertNotFound)

	listed, err := f.alertUC.ListAlerts(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func robosatsBook() staticBooks {
	return staticBooks{{
		Source: robosatsOnion,
		Orders: []domain.Order{
			{ID: "8123", Currency: "1", Type: domain.OrderTypeBuy, Premium: "2.5", PaymentMethod: "Revolut", Amount: "300"},
			{ID: "8124", Currency: "2", Type: domain.OrderTypeBuy, Premium: "1", PaymentMethod: "SEPA", Amount: "300"},
			{ID: "8125", Currency: "1", Type: domain.OrderTypeSell, Premium: "1", PaymentMethod: "Revolut", Amount: "300"},
		},
	}}
}

func TestMatchingCycleStoresEachMatchOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, 42)

	_, err := f.alertUC.AddAlert(ctx, 42, NewAlert{Action: "BUY", Currency: "USD", Premium: "3.0", PaymentMethods: "any", AmountRange: "100-500"})
	require.NoError(t, err)

	service := NewMatchingService(f.alerts, robosatsBook(), f.notifications, testTables(), matcher.New(zap.NewNop()), zap.NewNop())

	report, err := service.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, CycleReport{Alerts: 1, Books: 1, Matches: 1, Stored: 1}, report)

	pending, err := f.notifications.ListPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "8123", pending[0].OrderID)
	assert.Contains(t, pending[0].Message, "For you to BUY")
	assert.Contains(t, pending[0].Message, "・Amount: 300 USD")
	assert.Contains(t, pending[0].Message, "http://"+robosatsOnion+"/order/8123")
	assert.Contains(t, pending[0].Message, "🤖 Coordinator: RoboSats")

	report, err = service.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matches)
	assert.Zero(t, report.Stored)

	pending, err = f.notifications.ListPending(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

type unavailableSink struct {
	*db.NotificationRepository
	down bool
}

func (s *unavailableSink) Record(ctx context.Context, notifications []domain.Notification) (int, error) {
	if s.down {
		return 0, errors.New("database is locked")
	}
	return s.NotificationRepository.Record(ctx, notifications)
}

func TestMatchingCycleFailsWhenStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, 42)

	_, err := f.alertUC.AddAlert(ctx, 42, NewAlert{Action: "BUY", Currency: "USD", Premium: "3.0", PaymentMethods: "any", AmountRange: "100-500"})
	require.NoError(t, err)

	sink := &unavailableSink{NotificationRepository: f.notifications, down: true}
	service := NewMatchingService(f.alerts, robosatsBook(), sink, testTables(), matcher.New(zap.NewNop()), zap.NewNop())

	report, err := service.RunCycle(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Zero(t, report.Stored)

	pending, err := f.notifications.ListPending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	sink.down = false
	report, err = service.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stored)

	pending, err = f.notifications.ListPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "8123", pending[0].OrderID)
}

func TestMatchingCycleSkipsInactiveAlerts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, 42)

	alert, err := f.alertUC.AddAlert(ctx, 42, NewAlert{Action: "BUY", Currency: "ANY", Premium: "5", PaymentMethods: "any", AmountRange: "any-any"})
	require.NoError(t, err)
	require.NoError(t, f.alertUC.DisableAlert(ctx, 42, alert.ID))

	service := NewMatchingService(f.alerts, robosatsBook(), f.notifications, testTables(), matcher.New(zap.NewNop()), zap.NewNop())
	report, err := service.RunCycle(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Alerts)
	assert.Zero(t, report.Stored)
}

func TestDispatcherDeliversPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.register(t, 42)

	_, err := f.notifications.Record(ctx, []domain.Notification{
		{UserID: user.ID, OrderID: "1", Message: "first"},
		{UserID: user.ID, OrderID: "2", Message: "second"},
	})
	require.NoError(t, err)

	notifier := &fakeNotifier{failures: 1}
	dispatcher := NewDispatcher(f.users, f.notifications, notifier, DispatcherConfig{MaxRetries: 2, InitialBackoff: time.Millisecond}, zap.NewNop())

	report, err := dispatcher.DispatchPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchReport{Sent: 2}, report)
	assert.Equal(t, 3, notifier.attempts)
	require.Len(t, notifier.sent, 2)
	assert.Equal(t, int64(42), notifier.sent[0].chatID)
	assert.Equal(t, "first", notifier.sent[0].text)

	pending, err := f.notifications.ListPending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDispatcherMarksFailedAfterRetries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.register(t, 42)

	_, err := f.notifications.Record(ctx, []domain.Notification{
		{UserID: user.ID, OrderID: "1", Message: "first"},
		{UserID: user.ID + 100, OrderID: "1", Message: "orphan"},
	})
	require.NoError(t, err)

	notifier := &fakeNotifier{failures: -1}
	dispatcher := NewDispatcher(f.users, f.notifications, notifier, DispatcherConfig{MaxRetries: 2, InitialBackoff: time.Millisecond}, zap.NewNop())

	report, err := dispatcher.DispatchPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchReport{Failed: 2}, report)
	assert.Equal(t, 3, notifier.attempts)

	pending, err := f.notifications.ListPending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestExpiryNotifiesOwners(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, 42)

	alert, err := f.alertUC.AddAlert(ctx, 42, NewAlert{Action: "SELL", Currency: "EUR", Premium: "1", PaymentMethods: "sepa", AmountRange: "any-any"})
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	expiry := NewExpiryService(f.alerts, f.users, notifier, zap.NewNop())

	count, err := expiry.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	expiry.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	count, err = expiry.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(42), notifier.sent[0].chatID)
	assert.True(t, strings.Contains(notifier.sent[0].text, "/extend"))

	active, err := f.alerts.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = f.alertUC.ExtendAlert(ctx, 42, alert.ID, 3)
	require.NoError(t, err)
	active, err = f.alerts.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRunEveryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := runEvery(ctx, time.Millisecond, func(context.Context) {
		calls++
		if calls == 3 {
			cancel()
		}
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}
