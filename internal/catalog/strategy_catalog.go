package catalog

import (
	"context"
	"encoding/json"
	"strings"
)

// StrategyConfig is one row of the strategies catalog table.
type StrategyConfig struct {
	ID          string
	Name        string
	Version     string
	Params      map[string]any
	Symbols     []string
	Timeframes  []string
	Mode        string
	InitPeriods int
	Status      string
	IsLive      bool
}

// StrategyCatalog implements the read side of C5's initialize() step 1:
// loading active strategy rows from the catalog.
type StrategyCatalog struct {
	db *DB
}

// NewStrategyCatalog wraps db as a StrategyCatalog.
func NewStrategyCatalog(db *DB) *StrategyCatalog {
	return &StrategyCatalog{db: db}
}

const listActiveQuery = `
SELECT id, name, version, params, symbols, timeframes, mode, is_live, init_periods
FROM strategies
WHERE status = 'active'`

const listActiveByModeQuery = listActiveQuery + ` AND mode = $1`

// ListActive returns every strategy row with status='active', optionally
// filtered by mode when mode is non-empty (the live/paper case).
func (c *StrategyCatalog) ListActive(ctx context.Context, mode string) ([]StrategyConfig, error) {
	query := listActiveQuery
	args := []any{}
	if mode != "" {
		query = listActiveByModeQuery
		args = append(args, mode)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	var configs []StrategyConfig
	for rows.Next() {
		var cfg StrategyConfig
		var paramsRaw []byte
		var symbolsRaw, timeframesRaw string

		if err := rows.Scan(&cfg.ID, &cfg.Name, &cfg.Version, &paramsRaw,
			&symbolsRaw, &timeframesRaw, &cfg.Mode, &cfg.IsLive, &cfg.InitPeriods); err != nil {
			return nil, err
		}

		if len(paramsRaw) > 0 {
			if err := json.Unmarshal(paramsRaw, &cfg.Params); err != nil {
				return nil, err
			}
		}
		cfg.Symbols = parsePgTextArray(symbolsRaw)
		cfg.Timeframes = parsePgTextArray(timeframesRaw)
		cfg.Status = "active"

		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return configs, nil
}

// parsePgTextArray parses a Postgres text[] literal such as "{BTC,ETH}"
// into a Go string slice.
func parsePgTextArray(raw string) []string {
	trimmed := strings.Trim(raw, "{}")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.Trim(strings.TrimSpace(p), `"`))
	}
	return out
}
