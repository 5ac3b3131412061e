package orderbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/NasaVasa/robowatch/internal/infra/metrics"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

const maxBookSize = 32 << 20

var errNotJSON = errors.New("response is not JSON")

// NewTorClient returns an HTTP client that dials through a SOCKS5 proxy.
// Host names are passed to the proxy unresolved, which .onion addresses need.
func NewTorClient(proxyAddr string, timeout time.Duration) (*http.Client, error) {
	dialer, err := proxy.SOCKS5("tcp", proxyAddr, nil, &net.Dialer{Timeout: 30 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer: %w", err)
	}
	contextDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("socks5 dialer does not support contexts")
	}
	transport := &http.Transport{
		DialContext:           contextDialer.DialContext,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

type FetcherConfig struct {
	URLs       []string
	Interval   time.Duration
	MaxRetries uint64
	// Rate is requests per second across all coordinators.
	Rate float64
}

type Fetcher struct {
	cfg     FetcherConfig
	client  *http.Client
	store   *FileStore
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewFetcher(cfg FetcherConfig, client *http.Client, store *FileStore, logger *zap.Logger) *Fetcher {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	return &Fetcher{
		cfg:     cfg,
		client:  client,
		store:   store,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// SourceFromURL is the coordinator host, used as the snapshot name.
func SourceFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

func (f *Fetcher) Run(ctx context.Context) error {
	f.logger.Info("orderbook fetcher started", zap.Int("coordinators", len(f.cfg.URLs)), zap.Duration("interval", f.cfg.Interval))
	for {
		f.FetchAll(ctx)

		select {
		case <-ctx.Done():
			f.logger.Info("orderbook fetcher stopped")
			return nil
		case <-time.After(f.cfg.Interval):
		}
	}
}

// FetchAll refreshes every coordinator once. A coordinator that cannot be
// reached loses its snapshot so its stale orders stop matching.
func (f *Fetcher) FetchAll(ctx context.Context) {
	for _, endpoint := range f.cfg.URLs {
		if err := f.limiter.Wait(ctx); err != nil {
			return
		}

		source := SourceFromURL(endpoint)
		if source == "" {
			f.logger.Warn("skipping coordinator url without host", zap.String("url", endpoint))
			continue
		}

		body, err := f.fetch(ctx, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn("orderbook download failed, dropping previous snapshot", zap.String("source", source), zap.Error(err))
			metrics.OrderbookFetches.WithLabelValues(source, "failed").Inc()
			if err := f.store.Remove(source); err != nil {
				f.logger.Error("failed to remove stale order book", zap.String("source", source), zap.Error(err))
			}
			continue
		}

		if err := f.store.Save(source, body); err != nil {
			f.logger.Error("failed to save order book", zap.String("source", source), zap.Error(err))
			metrics.OrderbookFetches.WithLabelValues(source, "failed").Inc()
			continue
		}
		metrics.OrderbookFetches.WithLabelValues(source, "saved").Inc()
		f.logger.Info("order book saved", zap.String("source", source), zap.Int("bytes", len(body)))
	}
}

func (f *Fetcher) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.cfg.MaxRetries),
		ctx,
	)
	return backoff.RetryWithData[[]byte](func() ([]byte, error) {
		return f.fetchOnce(ctx, endpoint)
	}, policy)
}

func (f *Fetcher) fetchOnce(ctx context.Context, endpoint string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	start := time.Now()
	f.logger.Debug("orderbook request start", zap.String("url", endpoint))
	response, err := f.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	f.logger.Debug(
		"orderbook request complete",
		zap.String("url", endpoint),
		zap.Int("status", response.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if response.StatusCode >= 500 {
		return nil, fmt.Errorf("coordinator error: status %d", response.StatusCode)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, backoff.Permanent(fmt.Errorf("coordinator error: status %d", response.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxBookSize))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, backoff.Permanent(errNotJSON)
	}
	return body, nil
}
