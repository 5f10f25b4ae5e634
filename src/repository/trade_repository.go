package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/faculax/shanghai-commercial-bank/src/database"
	"github.com/faculax/shanghai-commercial-bank/src/model"
)

// TradeRepository handles read/write operations for trades.
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a repository backed by the main database.
func NewTradeRepository() *TradeRepository {
	return &TradeRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// CreateAll inserts a batch of trades. A nil or empty batch is a no-op.
func (r *TradeRepository) CreateAll(ctx context.Context, trades []model.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Create(&trades).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "TradeRepository",
			"op":    "CreateAll",
			"count": len(trades),
		}).WithError(err).Error("Failed to create trades")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":  "TradeRepository",
		"op":    "CreateAll",
		"count": len(trades),
	}).Debug("Trades created")

	return nil
}

// FindByImportID returns every trade owned by the given import.
func (r *TradeRepository) FindByImportID(ctx context.Context, importID uint) ([]model.Trade, error) {
	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Where("import_id = ?", importID).
		Find(&trades).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "TradeRepository",
			"op":        "FindByImportID",
			"import_id": importID,
		}).WithError(err).Error("Failed to fetch trades for import")
		return nil, err
	}

	return trades, nil
}

// FindByImportIDAndOrigin returns the original or consolidated subset of an
// import's trades, sorted by trade identifier ascending.
func (r *TradeRepository) FindByImportIDAndOrigin(ctx context.Context, importID uint, original bool) ([]model.Trade, error) {
	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Where("import_id = ? AND is_original = ?", importID, original).
		Order("trade_id ASC").
		Find(&trades).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "TradeRepository",
			"op":        "FindByImportIDAndOrigin",
			"import_id": importID,
			"original":  original,
		}).WithError(err).Error("Failed to fetch trades for import")
		return nil, err
	}

	return trades, nil
}

// DeleteByImportIDAndOrigin removes the original or consolidated subset of an
// import's trades and reports how many rows were removed.
func (r *TradeRepository) DeleteByImportIDAndOrigin(ctx context.Context, importID uint, original bool) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("import_id = ? AND is_original = ?", importID, original).
		Delete(&model.Trade{})
	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "TradeRepository",
			"op":        "DeleteByImportIDAndOrigin",
			"import_id": importID,
			"original":  original,
		}).WithError(result.Error).Error("Failed to delete trades for import")
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// DeleteByImportID removes every trade owned by the given import.
func (r *TradeRepository) DeleteByImportID(ctx context.Context, importID uint) error {
	err := r.db.WithContext(ctx).
		Where("import_id = ?", importID).
		Delete(&model.Trade{}).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "TradeRepository",
			"op":        "DeleteByImportID",
			"import_id": importID,
		}).WithError(err).Error("Failed to delete trades for import")
		return err
	}

	return nil
}

// DeleteAll wipes the trades table.
func (r *TradeRepository) DeleteAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&model.Trade{}).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "DeleteAll",
		}).WithError(err).Error("Failed to delete all trades")
		return err
	}

	return nil
}
