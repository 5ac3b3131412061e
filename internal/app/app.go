package app

import (
	"context"
	"fmt"

	"github.com/NasaVasa/robowatch/internal/config"
	"github.com/NasaVasa/robowatch/internal/delivery/httpapi"
	"github.com/NasaVasa/robowatch/internal/delivery/telegram"
	"github.com/NasaVasa/robowatch/internal/infra/db"
	"github.com/NasaVasa/robowatch/internal/infra/log"
	"github.com/NasaVasa/robowatch/internal/infra/orderbook"
	"github.com/NasaVasa/robowatch/internal/lookup"
	"github.com/NasaVasa/robowatch/internal/matcher"
	"github.com/NasaVasa/robowatch/internal/usecase"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        config.Config
	bot        *telegram.Bot
	tables     *lookup.Cache
	fetcher    *orderbook.Fetcher
	matching   *usecase.MatchingService
	dispatcher *usecase.Dispatcher
	expiry     *usecase.ExpiryService
	http       *httpapi.Server
	logger     *zap.Logger
	cleanupFn  func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := log.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := dbConn.DB()
	if err != nil {
		return nil, err
	}
	cleanup := sqlDB.Close

	userRepo := db.NewUserRepository(dbConn)
	alertRepo := db.NewAlertRepository(dbConn)
	notificationRepo := db.NewNotificationRepository(dbConn)

	tables := lookup.NewCache(cfg.CurrencyPath, cfg.FederationPath, logger.Named("lookup"))
	store := orderbook.NewFileStore(cfg.OrderbookDir, logger.Named("orderbook"))

	torClient, err := orderbook.NewTorClient(cfg.TorProxyAddr, cfg.FetchTimeout)
	if err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("tor client: %w", err)
	}
	fetcher := orderbook.NewFetcher(orderbook.FetcherConfig{
		URLs:       cfg.CoordinatorURLs,
		Interval:   cfg.FetchInterval,
		MaxRetries: cfg.FetchMaxRetries,
		Rate:       cfg.FetchRate,
	}, torClient, store, logger.Named("fetcher"))

	api, err := telegram.NewAPI(cfg.TelegramBotToken)
	if err != nil {
		_ = cleanup()
		return nil, err
	}
	notifier := telegram.NewNotifier(api, logger.Named("notifier"))

	alertUC := usecase.NewAlertUsecase(userRepo, alertRepo, tables, cfg.AlertTTL)
	matching := usecase.NewMatchingService(alertRepo, store, notificationRepo, tables, matcher.New(logger.Named("matcher")), logger.Named("matching"))
	dispatcher := usecase.NewDispatcher(userRepo, notificationRepo, notifier, usecase.DispatcherConfig{
		Rate:       cfg.DeliveryRate,
		MaxRetries: cfg.DeliveryMaxRetries,
	}, logger.Named("delivery"))
	expiry := usecase.NewExpiryService(alertRepo, userRepo, notifier, logger.Named("expiry"))

	handlers := telegram.NewHandlers(alertUC, logger.Named("telegram"))
	bot := telegram.NewBot(api, handlers, cfg.TelegramPollTimeout)

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.NewHealthHandler(sqlDB))
	server := httpapi.NewServer(cfg.HTTPAddr, router, logger.Named("http"))

	return &App{
		cfg:        cfg,
		bot:        bot,
		tables:     tables,
		fetcher:    fetcher,
		matching:   matching,
		dispatcher: dispatcher,
		expiry:     expiry,
		http:       server,
		logger:     logger,
		cleanupFn:  cleanup,
	}, nil
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info(
		"robowatch service starting",
		zap.Int("coordinators", len(a.cfg.CoordinatorURLs)),
		zap.Duration("match_interval", a.cfg.MatchInterval),
		zap.String("db_driver", a.cfg.DBDriver),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.tables.Watch(ctx) })
	g.Go(func() error { return a.fetcher.Run(ctx) })
	g.Go(func() error { return a.matching.Run(ctx, a.cfg.MatchInterval) })
	g.Go(func() error { return a.dispatcher.Run(ctx, a.cfg.DeliveryInterval) })
	g.Go(func() error { return a.expiry.Run(ctx, a.cfg.AlertExpiryInterval) })
	g.Go(func() error { return a.http.Run(ctx) })
	g.Go(func() error { return a.bot.Start(ctx) })

	a.logger.Info("robowatch service started")
	return g.Wait()
}

func (a *App) Shutdown() {
	a.logger.Info("robowatch service shutting down")
	if a.cleanupFn != nil {
		if err := a.cleanupFn(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
