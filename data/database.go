package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/optionslab/wheelhouse/logger"
	"github.com/optionslab/wheelhouse/models"
)

// StoreConfig points at a postgres candle store with the usual layout:
// a candles table keyed by (symbol, interval, timestamp).
type StoreConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "wheelhouse",
		Password: "wheelhouse",
		DBName:   "marketdata",
		SSLMode:  "disable",
	}
}

// Store reads historical bars out of postgres.
type Store struct {
	db *sqlx.DB
}

func Connect(cfg StoreConfig) (*Store, error) {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect candle store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetBarsByTime fetches bars for a symbol and interval between start and
// end inclusive, sorted ascending. Indicator columns are filled afterwards
// by EnrichIndicators; the store only holds raw OHLCV.
func (s *Store) GetBarsByTime(symbol, interval string, start, end time.Time) ([]*models.Bar, error) {
	bars := []*models.Bar{}
	const query = `select symbol, timestamp, open, high, low, close, vwap, volume
		from candles
		where symbol = $1 and interval = $2 and timestamp >= $3 and timestamp <= $4`
	err := s.db.Select(&bars, query, symbol, interval, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("get bars %v %v: %w", symbol, interval, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("get bars %v %v: no rows between %v and %v", symbol, interval, start, end)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })
	logger.Infof("Loaded %v bars for %v %v from candle store", len(bars), symbol, interval)
	return bars, nil
}
