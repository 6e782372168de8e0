package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"signal-engine-core/internal/strategy"
	"signal-engine-core/pkg/observability"
)

// SignalStore implements C3: persisting emitted signals atomically with
// idempotency and correlation keys, resolving instrument IDs.
type SignalStore struct {
	db *DB
}

// NewSignalStore wraps db as a SignalStore.
func NewSignalStore(db *DB) *SignalStore {
	return &SignalStore{db: db}
}

const instrumentIDQuery = `SELECT id FROM instruments WHERE symbol = $1`

const insertSignalQuery = `
INSERT INTO signals (
	exchange_id, instrument_id, strategy_id, strategy_version,
	signal_type, signal_value, confidence, payload, mode,
	idempotency_key, correlation_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// Persist resolves sig.Symbol to an instrument_id and inserts one row. An
// unknown symbol is not an error: per §4.3 the signal is dropped with a
// logged warning rather than failing the caller.
func (s *SignalStore) Persist(ctx context.Context, sig *strategy.Signal, mode string) error {
	var instrumentID int64
	err := s.db.QueryRowContext(ctx, instrumentIDQuery, sig.Symbol).Scan(&instrumentID)
	if err == sql.ErrNoRows {
		observability.LogEvent(ctx, "warn", "unknown_instrument", map[string]any{
			"symbol": sig.Symbol,
		})
		return nil
	}
	if err != nil {
		return wrapUnavailable(err)
	}

	payload, err := json.Marshal(sig.Meta)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, insertSignalQuery,
		1, // exchange_id is fixed for this deployment's single venue
		instrumentID,
		sig.StrategyID,
		sig.StrategyVersion,
		strings.ToUpper(string(sig.Side)),
		sig.Price,
		sig.Confidence,
		payload,
		mode,
		sig.IdempotencyKey,
		sig.CorrelationID,
	)
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}
