package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/faculax/shanghai-commercial-bank/src/database"
	"github.com/faculax/shanghai-commercial-bank/src/model"
)

// TradeImportRepository handles read/write operations for trade imports.
type TradeImportRepository struct {
	db *gorm.DB
}

// NewTradeImportRepository creates a repository backed by the main database.
func NewTradeImportRepository() *TradeImportRepository {
	return &TradeImportRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *TradeImportRepository) WithDB(db *gorm.DB) *TradeImportRepository {
	return &TradeImportRepository{db: db}
}

// Create inserts a new trade import. The given import is updated with the
// generated ID, name and timestamps.
func (r *TradeImportRepository) Create(ctx context.Context, ti *model.TradeImport) error {
	err := r.db.WithContext(ctx).Create(ti).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeImportRepository",
			"op":   "Create",
			"name": ti.ImportName,
		}).WithError(err).Error("Failed to create trade import")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":      "TradeImportRepository",
		"op":        "Create",
		"import_id": ti.ID,
		"name":      ti.ImportName,
	}).Info("Trade import created")

	return nil
}

// FindByID fetches a single import by its primary ID.
// Returns (nil, nil) if the import is not found.
func (r *TradeImportRepository) FindByID(ctx context.Context, id uint) (*model.TradeImport, error) {
	var ti model.TradeImport

	err := r.db.WithContext(ctx).First(&ti, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":      "TradeImportRepository",
			"op":        "FindByID",
			"import_id": id,
		}).WithError(err).Error("Failed to fetch trade import")
		return nil, err
	}

	return &ti, nil
}

// FindAll returns every import ordered from newest to oldest.
func (r *TradeImportRepository) FindAll(ctx context.Context) ([]model.TradeImport, error) {
	var imports []model.TradeImport

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&imports).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeImportRepository",
			"op":   "FindAll",
		}).WithError(err).Error("Failed to list trade imports")
		return nil, err
	}

	return imports, nil
}

// FindByStatus returns every import currently in the given lifecycle status.
func (r *TradeImportRepository) FindByStatus(ctx context.Context, status model.ImportStatus) ([]model.TradeImport, error) {
	var imports []model.TradeImport

	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&imports).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "TradeImportRepository",
			"op":     "FindByStatus",
			"status": status,
		}).WithError(err).Error("Failed to list trade imports by status")
		return nil, err
	}

	return imports, nil
}

// Save persists all fields of an already-created import.
func (r *TradeImportRepository) Save(ctx context.Context, ti *model.TradeImport) error {
	err := r.db.WithContext(ctx).Save(ti).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "TradeImportRepository",
			"op":        "Save",
			"import_id": ti.ID,
		}).WithError(err).Error("Failed to save trade import")
		return err
	}

	return nil
}

// DeleteByID removes the import row itself. Child trades and documents must
// be removed first; referential integrity is enforced by the caller.
func (r *TradeImportRepository) DeleteByID(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Delete(&model.TradeImport{}, id).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "TradeImportRepository",
			"op":        "DeleteByID",
			"import_id": id,
		}).WithError(err).Error("Failed to delete trade import")
		return err
	}

	return nil
}

// DeleteAll wipes the trade_imports table.
func (r *TradeImportRepository) DeleteAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&model.TradeImport{}).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeImportRepository",
			"op":   "DeleteAll",
		}).WithError(err).Error("Failed to delete all trade imports")
		return err
	}

	return nil
}
