package orderbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/NasaVasa/robowatch/internal/domain"
	"go.uber.org/zap"
)

// FileStore keeps the latest book of each coordinator as {dir}/{source}.json.
// Writers replace a file with a rename, so readers see either the old or the
// new snapshot.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logger}
}

func SourceFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *FileStore) path(source string) string {
	return filepath.Join(s.dir, source+".json")
}

func (s *FileStore) Snapshots(ctx context.Context) ([]domain.OrderBook, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	books := make([]domain.OrderBook, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		book, err := s.read(path)
		if err != nil {
			s.logger.Warn("skipping unreadable order book", zap.String("path", path), zap.Error(err))
			continue
		}
		books = append(books, book)
	}
	return books, nil
}

func (s *FileStore) read(path string) (domain.OrderBook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.OrderBook{}, err
	}

	source := SourceFromPath(path)
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return domain.OrderBook{}, fmt.Errorf("decode order book %s: %w", source, err)
	}

	book := domain.OrderBook{Source: source, Orders: make([]domain.Order, 0, len(items))}
	for i, item := range items {
		var raw bookOrder
		if err := json.Unmarshal(item, &raw); err != nil {
			s.logger.Warn("skipping undecodable order", zap.String("source", source), zap.Int("index", i), zap.Error(err))
			continue
		}
		order, err := raw.toDomain(source)
		if err != nil {
			s.logger.Warn("skipping undecodable order", zap.String("source", source), zap.Int("index", i), zap.Error(err))
			continue
		}
		book.Orders = append(book.Orders, order)
	}
	return book, nil
}

func (s *FileStore) Save(source string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+source+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(source))
}

// Remove deletes the snapshot of source. A missing snapshot is not an error.
func (s *FileStore) Remove(source string) error {
	err := os.Remove(s.path(source))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
