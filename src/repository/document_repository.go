package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/faculax/shanghai-commercial-bank/src/database"
	"github.com/faculax/shanghai-commercial-bank/src/model"
)

// DocumentRepository handles read/write operations for generated documents.
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a repository backed by the main database.
func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *DocumentRepository) WithDB(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateAll inserts a batch of generated documents. Empty batches are a
// no-op.
func (r *DocumentRepository) CreateAll(ctx context.Context, docs []model.GeneratedDocument) error {
	if len(docs) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Create(&docs).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "DocumentRepository",
			"op":    "CreateAll",
			"count": len(docs),
		}).WithError(err).Error("Failed to create documents")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":  "DocumentRepository",
		"op":    "CreateAll",
		"count": len(docs),
	}).Debug("Documents created")

	return nil
}

// FindByID fetches a single document by its primary ID.
// Returns (nil, nil) if the document is not found.
func (r *DocumentRepository) FindByID(ctx context.Context, id uint) (*model.GeneratedDocument, error) {
	var doc model.GeneratedDocument

	err := r.db.WithContext(ctx).First(&doc, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":        "DocumentRepository",
			"op":          "FindByID",
			"document_id": id,
		}).WithError(err).Error("Failed to fetch document")
		return nil, err
	}

	return &doc, nil
}

// FindByImportID returns every document owned by the given import.
func (r *DocumentRepository) FindByImportID(ctx context.Context, importID uint) ([]model.GeneratedDocument, error) {
	var docs []model.GeneratedDocument

	err := r.db.WithContext(ctx).
		Where("import_id = ?", importID).
		Order("id ASC").
		Find(&docs).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "DocumentRepository",
			"op":        "FindByImportID",
			"import_id": importID,
		}).WithError(err).Error("Failed to fetch documents for import")
		return nil, err
	}

	return docs, nil
}

// DeleteByImportID removes every document owned by the given import.
func (r *DocumentRepository) DeleteByImportID(ctx context.Context, importID uint) error {
	err := r.db.WithContext(ctx).
		Where("import_id = ?", importID).
		Delete(&model.GeneratedDocument{}).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "DocumentRepository",
			"op":        "DeleteByImportID",
			"import_id": importID,
		}).WithError(err).Error("Failed to delete documents for import")
		return err
	}

	return nil
}

// DeleteAll wipes the generated_documents table.
func (r *DocumentRepository) DeleteAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&model.GeneratedDocument{}).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "DocumentRepository",
			"op":   "DeleteAll",
		}).WithError(err).Error("Failed to delete all documents")
		return err
	}

	return nil
}
