package catalog

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine-core/internal/strategy"
)

func TestSignalStorePersistsKnownInstrument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewSignalStore(&DB{DB: db})

	mock.ExpectQuery(regexp.QuoteMeta(instrumentIDQuery)).
		WithArgs("BTC").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO signals")).
		WithArgs(1, int64(42), "strat-1", "v1", "LONG", decimal.NewFromFloat(100), 0.8,
			sqlmock.AnyArg(), "live", "idem-1", "corr-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	sig := &strategy.Signal{
		Side:            strategy.SideLong,
		Price:           decimal.NewFromFloat(100),
		Confidence:      0.8,
		Meta:            map[string]string{"reason": "golden_cross"},
		StrategyID:      "strat-1",
		StrategyVersion: "v1",
		Symbol:          "BTC",
		IdempotencyKey:  "idem-1",
		CorrelationID:   "corr-1",
	}

	err = store.Persist(context.Background(), sig, "live")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignalStoreDropsUnknownInstrument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewSignalStore(&DB{DB: db})

	mock.ExpectQuery(regexp.QuoteMeta(instrumentIDQuery)).
		WithArgs("UNKNOWN").
		WillReturnError(sql.ErrNoRows)

	sig := &strategy.Signal{Symbol: "UNKNOWN", Side: strategy.SideLong}
	err = store.Persist(context.Background(), sig, "live")
	require.NoError(t, err, "unknown instrument must be dropped, not errored")
	assert.NoError(t, mock.ExpectationsWereMet())
}
