package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"signal-engine-core/internal/candle"
)

// HistoryStore implements C2: fetching recent bars for a (symbol,
// timeframe) as a stable, ascending-by-timestamp window.
type HistoryStore struct {
	db *DB
}

// NewHistoryStore wraps db as a HistoryStore.
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

const fetchPrimaryQuery = `
SELECT o.ts, o.open, o.high, o.low, o.close, o.volume
FROM ohlcs o
JOIN instruments i ON i.id = o.instrument_id
WHERE i.symbol = $1 AND o.timeframe = $2
ORDER BY o.ts DESC
LIMIT $3`

const fetchImportedQuery = `
SELECT o.ts, o.open, o.high, o.low, o.close, o.volume
FROM ohlc_imports o
JOIN instruments i ON i.id = o.instrument_id
WHERE i.symbol = $1 AND o.timeframe = $2
ORDER BY o.ts DESC
LIMIT $3`

const latestTimestampQuery = `
SELECT MAX(o.ts)
FROM ohlcs o
JOIN instruments i ON i.id = o.instrument_id
WHERE i.symbol = $1 AND o.timeframe = $2`

// Fetch returns up to bars most recent bars for (symbol, timeframe),
// ascending by timestamp. When source is "imported" and that view yields no
// rows, it falls back to "primary" per §4.2.
func (s *HistoryStore) Fetch(ctx context.Context, symbol, timeframe string, bars int, source string) (candle.History, error) {
	query := fetchPrimaryQuery
	if source == "imported" {
		query = fetchImportedQuery
	}

	history, err := s.query(ctx, query, symbol, timeframe, bars)
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	if source == "imported" && len(history) == 0 {
		history, err = s.query(ctx, fetchPrimaryQuery, symbol, timeframe, bars)
		if err != nil {
			return nil, wrapUnavailable(err)
		}
	}

	return history, nil
}

func (s *HistoryStore) query(ctx context.Context, query, symbol, timeframe string, bars int) (candle.History, error) {
	rows, err := s.db.QueryContext(ctx, query, symbol, timeframe, bars)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Rows arrive DESC (most recent first); collect then reverse to
	// ascending, the order strategies require.
	var descending candle.History
	for rows.Next() {
		var bar candle.Bar
		var open, high, low, close, volume decimal.Decimal
		if err := rows.Scan(&bar.Timestamp, &open, &high, &low, &close, &volume); err != nil {
			return nil, err
		}
		bar.Open, _ = open.Float64()
		bar.High, _ = high.Float64()
		bar.Low, _ = low.Float64()
		bar.Close, _ = close.Float64()
		bar.Volume, _ = volume.Float64()
		descending = append(descending, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ascending := make(candle.History, len(descending))
	for i, bar := range descending {
		ascending[len(descending)-1-i] = bar
	}
	return ascending, nil
}

// LatestTimestamp returns the most recent bar timestamp recorded for
// (symbol, timeframe), used to populate startup_latest_ts at engine init.
// The second return value is false when no bars exist yet.
func (s *HistoryStore) LatestTimestamp(ctx context.Context, symbol, timeframe string) (time.Time, bool, error) {
	row := s.db.QueryRowContext(ctx, latestTimestampQuery, symbol, timeframe)
	var ts sql.NullTime
	if err := row.Scan(&ts); err != nil {
		return time.Time{}, false, wrapUnavailable(err)
	}
	if !ts.Valid {
		return time.Time{}, false, nil
	}
	return ts.Time.UTC(), true, nil
}
