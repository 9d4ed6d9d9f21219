package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nzyazin/fxwidget/internal/core/logger"
	"github.com/Nzyazin/fxwidget/internal/core/models"
	"github.com/Nzyazin/fxwidget/internal/core/repository"
	"github.com/jmoiron/sqlx"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

var ErrInvalidRecord = errors.New("invalid conversion record")

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
    id               UUID PRIMARY KEY,
    from_code        VARCHAR(3) NOT NULL,
    to_code          VARCHAR(3) NOT NULL,
    amount           NUMERIC(30, 10) NOT NULL,
    exchange_rate    NUMERIC(30, 10) NOT NULL,
    converted_amount NUMERIC(30, 10) NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS conversions_created_at_idx ON conversions (created_at DESC);
`

type postgresHistoryRepo struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewPostgresHistoryRepo(db *sqlx.DB, log logger.Logger) repository.HistoryRepository {
	return &postgresHistoryRepo{
		db:  db,
		log: log,
	}
}

// EnsureSchema creates the conversions table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *postgresHistoryRepo) Save(ctx context.Context, rec models.ConversionRecord) error {
	if rec.FromCode == "" || rec.ToCode == "" || !rec.Amount.IsPositive() {
		return ErrInvalidRecord
	}

	const query = `INSERT INTO conversions
        (id, from_code, to_code, amount, exchange_rate, converted_amount, created_at)
        VALUES (:id, :from_code, :to_code, :amount, :exchange_rate, :converted_amount, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		r.log.Error("Error saving conversion",
			logger.StringField("id", rec.ID.String()),
			logger.ErrorField("error", err))
		return fmt.Errorf("save conversion: %w", err)
	}
	return nil
}

func (r *postgresHistoryRepo) List(ctx context.Context, limit int) ([]models.ConversionRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records := []models.ConversionRecord{}
	query := `SELECT id, from_code, to_code, amount, exchange_rate, converted_amount, created_at
        FROM conversions
        ORDER BY created_at DESC
        LIMIT $1`
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	return records, nil
}
