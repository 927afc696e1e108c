package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"tradebot/internal/domain"
)

// Compile-time interface check.
var _ Source = (*CachedSource)(nil)

// barRecord is the Parquet schema for cached bar series.
type barRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// CachedSource wraps a Source with an on-disk Parquet cache so repeated
// backtests of the same series do not re-download it. Cache entries are
// keyed by (symbol, timeframe, years) and expire after the TTL.
type CachedSource struct {
	src     Source
	dataDir string
	ttl     time.Duration
	log     *slog.Logger
}

// NewCachedSource creates a CachedSource writing under dataDir.
func NewCachedSource(src Source, dataDir string, ttl time.Duration) *CachedSource {
	return &CachedSource{
		src:     src,
		dataDir: dataDir,
		ttl:     ttl,
		log:     slog.Default().With("source", "cache"),
	}
}

// Bars returns the cached series when fresh, otherwise delegates to the
// wrapped source and refreshes the cache. Cache write failures are logged
// and never fail the request.
func (c *CachedSource) Bars(ctx context.Context, symbol, timeframe string, years int) ([]domain.Bar, error) {
	path := c.cachePath(symbol, timeframe, years)

	if info, err := os.Stat(path); err == nil && time.Since(info.ModTime()) < c.ttl {
		records, err := parquet.ReadFile[barRecord](path)
		if err == nil && len(records) > 0 {
			c.log.Debug("cache hit", "symbol", symbol, "timeframe", timeframe, "count", len(records))
			return recordsToBars(records), nil
		}
		// Unreadable cache file: fall through and refetch.
	}

	bars, err := c.src.Bars(ctx, symbol, timeframe, years)
	if err != nil {
		return nil, err
	}

	if err := c.write(path, bars); err != nil {
		c.log.Warn("writing bar cache", "path", path, "error", err)
	}
	return bars, nil
}

// cachePath returns the cache file location.
// Layout: <dataDir>/bars/<SYMBOL>/<TIMEFRAME>-<N>y.parquet
func (c *CachedSource) cachePath(symbol, timeframe string, years int) string {
	file := fmt.Sprintf("%s-%dy.parquet", strings.ToUpper(timeframe), years)
	return filepath.Join(c.dataDir, "bars", strings.ToUpper(symbol), file)
}

func (c *CachedSource) write(path string, bars []domain.Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	records := make([]barRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, barRecord{
			Symbol:    b.Symbol,
			Timestamp: b.Timestamp.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}
	return parquet.WriteFile(path, records)
}

func recordsToBars(records []barRecord) []domain.Bar {
	bars := make([]domain.Bar, 0, len(records))
	for _, r := range records {
		bars = append(bars, domain.Bar{
			Symbol:    r.Symbol,
			Timestamp: time.UnixMilli(r.Timestamp),
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
		})
	}
	return bars
}
