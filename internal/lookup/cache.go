package lookup

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type Tables struct {
	Currencies CurrencyTable
	Federation Federation
}

// Cache serves the currency and federation tables. While Watch is running the
// files are only re-read after they change on disk; otherwise every call to
// Tables re-reads them. A table that fails to load is served empty.
type Cache struct {
	currencyPath   string
	federationPath string
	logger         *zap.Logger

	mu       sync.Mutex
	tables   Tables
	stale    bool
	watching bool
}

func NewCache(currencyPath, federationPath string, logger *zap.Logger) *Cache {
	return &Cache{
		currencyPath:   filepath.Clean(currencyPath),
		federationPath: filepath.Clean(federationPath),
		logger:         logger,
		stale:          true,
	}
}

func (c *Cache) Tables() Tables {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale || !c.watching {
		c.reload()
	}
	return c.tables
}

func (c *Cache) reload() {
	currencies, err := LoadCurrencyTable(c.currencyPath)
	if err != nil {
		c.logger.Warn("currency table unavailable, matching with empty table", zap.String("path", c.currencyPath), zap.Error(err))
		currencies = CurrencyTable{}
	}
	federation, err := LoadFederation(c.federationPath)
	if err != nil {
		c.logger.Warn("federation table unavailable, coordinator names disabled", zap.String("path", c.federationPath), zap.Error(err))
		federation = Federation{}
	}
	c.tables = Tables{Currencies: currencies, Federation: federation}
	c.stale = false
	c.logger.Debug("reference tables loaded", zap.Int("currencies", len(currencies)), zap.Int("coordinators", len(federation)))
}

// Watch marks the tables stale whenever one of the files is written, created,
// renamed or removed. It returns nil when watching is impossible so callers
// fall back to reading the files on every Tables call.
func (c *Cache) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.logger.Warn("table watcher unavailable", zap.Error(err))
		return nil
	}
	defer watcher.Close()

	dirs := map[string]struct{}{
		filepath.Dir(c.currencyPath):   {},
		filepath.Dir(c.federationPath): {},
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			c.logger.Warn("cannot watch table directory", zap.String("dir", dir), zap.Error(err))
			return nil
		}
	}

	c.setWatching(true)
	defer c.setWatching(false)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !c.tracks(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			c.logger.Info("reference table changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			c.mu.Lock()
			c.stale = true
			c.mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("table watcher error", zap.Error(err))
		}
	}
}

func (c *Cache) tracks(name string) bool {
	name = filepath.Clean(name)
	return name == c.currencyPath || name == c.federationPath
}

func (c *Cache) setWatching(watching bool) {
	c.mu.Lock()
	c.watching = watching
	c.stale = true
	c.mu.Unlock()
}
