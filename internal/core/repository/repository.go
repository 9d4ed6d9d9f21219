package repository

import (
	"context"

	"github.com/Nzyazin/fxwidget/internal/core/models"
)

type HistoryRepository interface {
	Save(ctx context.Context, rec models.ConversionRecord) error
	List(ctx context.Context, limit int) ([]models.ConversionRecord, error)
}
