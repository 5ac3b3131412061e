package orderbook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NasaVasa/robowatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleBook = `[
  {"id": 8123, "currency": 1, "type": 1, "premium": "2.50", "payment_method": "Revolut Wise",
   "has_range": false, "min_amount": null, "max_amount": null, "amount": "300.00000000"},
  {"id": 8124, "currency": "2", "type": 0, "premium": -1, "payment_method": "SEPA",
   "has_range": true, "min_amount": "100.00", "max_amount": "500.00", "amount": null},
  {"id": 8125, "currency": 1, "type": "sell", "premium": "1"},
  {"id": 8126, "currency": 1, "type": 1, "premium": "1", "has_range": "maybe"}
]`

func TestTextDecoding(t *testing.T) {
	var text Text
	require.NoError(t, text.UnmarshalJSON([]byte(`"  12.50 "`)))
	assert.Equal(t, Text("12.50"), text)
	require.NoError(t, text.UnmarshalJSON([]byte(`42`)))
	assert.Equal(t, Text("42"), text)
	require.NoError(t, text.UnmarshalJSON([]byte(`null`)))
	assert.Equal(t, Text(""), text)
	assert.Error(t, text.UnmarshalJSON([]byte(`{"a": 1}`)))

	var flag Flag
	require.NoError(t, flag.UnmarshalJSON([]byte(`true`)))
	assert.True(t, bool(flag))
	require.NoError(t, flag.UnmarshalJSON([]byte(`0`)))
	assert.False(t, bool(flag))
	assert.Error(t, flag.UnmarshalJSON([]byte(`"maybe"`)))
}

func TestFileStoreSnapshots(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, zap.NewNop())

	require.NoError(t, store.Save("abc.onion", []byte(sampleBook)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"not_found": "No orders found"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`ignored`), 0o644))

	books, err := store.Snapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 1)

	book := books[0]
	assert.Equal(t, "abc.onion", book.Source)
	require.Len(t, book.Orders, 2)

	first := book.Orders[0]
	assert.Equal(t, "8123", first.ID)
	assert.Equal(t, "1", first.Currency)
	assert.Equal(t, domain.OrderTypeBuy, first.Type)
	assert.Equal(t, "2.50", first.Premium)
	assert.Equal(t, "300.00000000", first.Amount)
	assert.Equal(t, "", first.MinAmount)
	assert.Equal(t, "abc.onion", first.Source)

	second := book.Orders[1]
	assert.Equal(t, "2", second.Currency)
	assert.Equal(t, "-1", second.Premium)
	assert.True(t, second.HasRange)
	assert.Equal(t, "100.00", second.MinAmount)
}

func TestFileStoreRemove(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, zap.NewNop())

	require.NoError(t, store.Save("abc.onion", []byte(`[]`)))
	require.NoError(t, store.Remove("abc.onion"))
	require.NoError(t, store.Remove("abc.onion"))

	books, err := store.Snapshots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestSourceFromPathAndURL(t *testing.T) {
	assert.Equal(t, "abc.onion", SourceFromPath("/data/orderbook/abc.onion.json"))
	assert.Equal(t, "abc.onion", SourceFromURL("http://abc.onion/api/book/?format=json"))
	assert.Equal(t, "", SourceFromURL("::bad"))
}

func TestFetcherSavesAndDropsSnapshots(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleBook))
	}))
	defer server.Close()

	dir := t.TempDir()
	store := NewFileStore(dir, zap.NewNop())
	fetcher := NewFetcher(FetcherConfig{
		URLs:       []string{server.URL + "/api/book/?format=json"},
		Interval:   time.Minute,
		MaxRetries: 1,
	}, server.Client(), store, zap.NewNop())

	source := SourceFromURL(server.URL)
	fetcher.FetchAll(context.Background())
	_, err := os.Stat(filepath.Join(dir, source+".json"))
	require.NoError(t, err)

	fail.Store(true)
	fetcher.FetchAll(context.Background())
	_, err = os.Stat(filepath.Join(dir, source+".json"))
	assert.True(t, os.IsNotExist(err))
}

func TestFetcherRejectsNonJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>captcha</html>"))
	}))
	defer server.Close()

	fetcher := NewFetcher(FetcherConfig{MaxRetries: 3}, server.Client(), NewFileStore(t.TempDir(), zap.NewNop()), zap.NewNop())
	_, err := fetcher.fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, errNotJSON)
}

func TestNewTorClient(t *testing.T) {
	client, err := NewTorClient("127.0.0.1:9050", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, client.Timeout)
}
