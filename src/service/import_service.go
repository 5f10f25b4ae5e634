// Package service owns the trade import lifecycle:
// IMPORTED -> CONSOLIDATED -> DOCUMENTS_GENERATED -> PUSHED.
// Every transition runs inside one database transaction so a failure never
// leaves an import half-transitioned.
package service

import (
	"context"
	"io"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/faculax/shanghai-commercial-bank/src/apperr"
	"github.com/faculax/shanghai-commercial-bank/src/archive"
	"github.com/faculax/shanghai-commercial-bank/src/consolidation"
	"github.com/faculax/shanghai-commercial-bank/src/csvimport"
	"github.com/faculax/shanghai-commercial-bank/src/docgen"
	"github.com/faculax/shanghai-commercial-bank/src/model"
	"github.com/faculax/shanghai-commercial-bank/src/repository"
)

// ImportService orchestrates the consolidation engine, document generator
// and archive builder over the trade store.
type ImportService struct {
	db *gorm.DB
}

// NewImportService creates the lifecycle manager on top of the given
// database handle.
func NewImportService(db *gorm.DB) *ImportService {
	return &ImportService{db: db}
}

// ImportTrades creates a new import in status IMPORTED and persists the
// given trades as its original set.
func (s *ImportService) ImportTrades(ctx context.Context, trades []model.Trade) (*model.TradeImport, error) {
	var imported *model.TradeImport

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		imports := repository.NewTradeImportRepository().WithDB(tx)
		tradeRepo := repository.NewTradeRepository().WithDB(tx)

		ti := &model.TradeImport{
			Status:             model.StatusImported,
			OriginalTradeCount: len(trades),
			CurrentTradeCount:  len(trades),
		}
		if err := imports.Create(ctx, ti); err != nil {
			return err
		}

		for i := range trades {
			trades[i].ImportID = ti.ID
			trades[i].IsOriginal = true
		}
		if err := tradeRepo.CreateAll(ctx, trades); err != nil {
			return err
		}

		imported = ti
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"import_id": imported.ID,
		"name":      imported.ImportName,
		"trades":    len(trades),
	}).Info("Imported trades")

	return imported, nil
}

// ImportFromCSV parses a CSV upload and imports the resulting trades.
func (s *ImportService) ImportFromCSV(ctx context.Context, r io.Reader) (*model.TradeImport, error) {
	trades, err := csvimport.Parse(r)
	if err != nil {
		return nil, err
	}
	return s.ImportTrades(ctx, trades)
}

// Consolidate nets the import's original trades under the given criteria.
// Re-consolidation of an already-consolidated import is a defined corrective
// operation: the prior consolidated set is deleted first.
func (s *ImportService) Consolidate(ctx context.Context, importID uint, criteria consolidation.Criteria) (*model.TradeImport, error) {
	var consolidated *model.TradeImport

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		imports := repository.NewTradeImportRepository().WithDB(tx)
		tradeRepo := repository.NewTradeRepository().WithDB(tx)

		ti, err := imports.FindByID(ctx, importID)
		if err != nil {
			return err
		}
		if ti == nil {
			return apperr.NotFound("import", importID)
		}

		if ti.Status != model.StatusImported {
			removed, err := tradeRepo.DeleteByImportIDAndOrigin(ctx, importID, false)
			if err != nil {
				return err
			}
			logger.WithFields(map[string]interface{}{
				"import_id": importID,
				"removed":   removed,
			}).Info("Removed existing consolidated trades for re-consolidation")
		}

		originals, err := tradeRepo.FindByImportIDAndOrigin(ctx, importID, true)
		if err != nil {
			return err
		}

		netted := consolidation.Consolidate(originals, criteria)
		for i := range netted {
			netted[i].ImportID = importID
		}
		if err := tradeRepo.CreateAll(ctx, netted); err != nil {
			return err
		}

		now := time.Now().UTC()
		criteriaName := string(criteria)
		ti.Status = model.StatusConsolidated
		ti.ConsolidationCriteria = &criteriaName
		ti.CurrentTradeCount = len(netted)
		ti.ConsolidatedAt = &now
		if err := imports.Save(ctx, ti); err != nil {
			return err
		}

		logger.WithFields(map[string]interface{}{
			"import_id": importID,
			"criteria":  criteria,
			"from":      len(originals),
			"to":        len(netted),
		}).Info("Consolidated import")

		consolidated = ti
		return nil
	})
	if err != nil {
		return nil, err
	}

	return consolidated, nil
}

// GenerateDocuments renders one confirmation document per consolidated
// trade. Only legal once, and only from status CONSOLIDATED.
func (s *ImportService) GenerateDocuments(ctx context.Context, importID uint) (*model.TradeImport, error) {
	var generated *model.TradeImport

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		imports := repository.NewTradeImportRepository().WithDB(tx)
		tradeRepo := repository.NewTradeRepository().WithDB(tx)
		docs := repository.NewDocumentRepository().WithDB(tx)

		ti, err := imports.FindByID(ctx, importID)
		if err != nil {
			return err
		}
		if ti == nil {
			return apperr.NotFound("import", importID)
		}

		if ti.Status != model.StatusConsolidated {
			return apperr.InvalidState("generate documents", "import must be consolidated first")
		}
		if ti.DocumentsGenerated {
			return apperr.InvalidState("generate documents", "documents already generated for this import")
		}

		trades, err := tradeRepo.FindByImportIDAndOrigin(ctx, importID, false)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		records := make([]model.GeneratedDocument, 0, len(trades))
		for _, trade := range trades {
			doc := docgen.Render(trade, ti.ImportName, now)
			records = append(records, model.GeneratedDocument{
				Filename: doc.Filename,
				Content:  doc.Content,
				ImportID: importID,
			})
		}
		if err := docs.CreateAll(ctx, records); err != nil {
			return err
		}

		ti.DocumentsGenerated = true
		ti.Status = model.StatusDocumentsGenerated
		ti.DocumentsGeneratedAt = &now
		if err := imports.Save(ctx, ti); err != nil {
			return err
		}

		logger.WithFields(map[string]interface{}{
			"import_id": importID,
			"documents": len(records),
		}).Info("Generated documents for import")

		generated = ti
		return nil
	})
	if err != nil {
		return nil, err
	}

	return generated, nil
}

// GenerateDocumentsForAllConsolidated runs document generation over every
// import currently in status CONSOLIDATED. A failure on one import is logged
// and does not abort the others.
func (s *ImportService) GenerateDocumentsForAllConsolidated(ctx context.Context) ([]model.TradeImport, error) {
	imports := repository.NewTradeImportRepository().WithDB(s.db)

	candidates, err := imports.FindByStatus(ctx, model.StatusConsolidated)
	if err != nil {
		return nil, err
	}

	var generated []model.TradeImport
	for _, candidate := range candidates {
		ti, err := s.GenerateDocuments(ctx, candidate.ID)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"import_id": candidate.ID,
			}).WithError(err).Error("Failed to generate documents for import")
			continue
		}
		generated = append(generated, *ti)
	}

	return generated, nil
}

// Push marks the import as delivered to the downstream settlement system.
// Delivery itself is out of scope; this is a terminal state flip.
func (s *ImportService) Push(ctx context.Context, importID uint) (*model.TradeImport, error) {
	var pushed *model.TradeImport

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		imports := repository.NewTradeImportRepository().WithDB(tx)

		ti, err := imports.FindByID(ctx, importID)
		if err != nil {
			return err
		}
		if ti == nil {
			return apperr.NotFound("import", importID)
		}

		if ti.Status != model.StatusDocumentsGenerated {
			return apperr.InvalidState("push", "documents must be generated before pushing")
		}
		if ti.Pushed {
			return apperr.InvalidState("push", "import already pushed")
		}

		now := time.Now().UTC()
		ti.Pushed = true
		ti.Status = model.StatusPushed
		ti.PushedAt = &now
		if err := imports.Save(ctx, ti); err != nil {
			return err
		}

		logger.WithField("import_id", importID).Info("Pushed import to settlement")

		pushed = ti
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pushed, nil
}

// Delete removes an import and everything it owns: documents first, then
// trades, then the import row. Legal from any status.
func (s *ImportService) Delete(ctx context.Context, importID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		imports := repository.NewTradeImportRepository().WithDB(tx)
		tradeRepo := repository.NewTradeRepository().WithDB(tx)
		docs := repository.NewDocumentRepository().WithDB(tx)

		ti, err := imports.FindByID(ctx, importID)
		if err != nil {
			return err
		}
		if ti == nil {
			return apperr.NotFound("import", importID)
		}

		logger.WithFields(map[string]interface{}{
			"import_id": importID,
			"status":    ti.Status,
		}).Info("Deleting import")

		if err := docs.DeleteByImportID(ctx, importID); err != nil {
			return err
		}
		if err := tradeRepo.DeleteByImportID(ctx, importID); err != nil {
			return err
		}
		return imports.DeleteByID(ctx, importID)
	})
}

// ClearAll wipes every import together with all trades and documents.
func (s *ImportService) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewDocumentRepository().WithDB(tx).DeleteAll(ctx); err != nil {
			return err
		}
		if err := repository.NewTradeRepository().WithDB(tx).DeleteAll(ctx); err != nil {
			return err
		}
		return repository.NewTradeImportRepository().WithDB(tx).DeleteAll(ctx)
	})
}

// GetImport fetches a single import.
func (s *ImportService) GetImport(ctx context.Context, importID uint) (*model.TradeImport, error) {
	ti, err := repository.NewTradeImportRepository().WithDB(s.db).FindByID(ctx, importID)
	if err != nil {
		return nil, err
	}
	if ti == nil {
		return nil, apperr.NotFound("import", importID)
	}
	return ti, nil
}

// ListImports returns every import, newest first.
func (s *ImportService) ListImports(ctx context.Context) ([]model.TradeImport, error) {
	return repository.NewTradeImportRepository().WithDB(s.db).FindAll(ctx)
}

// GetTrades returns the original or consolidated trade subset of an import,
// sorted by trade identifier.
func (s *ImportService) GetTrades(ctx context.Context, importID uint, original bool) ([]model.Trade, error) {
	if _, err := s.GetImport(ctx, importID); err != nil {
		return nil, err
	}
	return repository.NewTradeRepository().WithDB(s.db).FindByImportIDAndOrigin(ctx, importID, original)
}

// ListDocuments returns the generated documents of an import.
func (s *ImportService) ListDocuments(ctx context.Context, importID uint) ([]model.GeneratedDocument, error) {
	if _, err := s.GetImport(ctx, importID); err != nil {
		return nil, err
	}
	return repository.NewDocumentRepository().WithDB(s.db).FindByImportID(ctx, importID)
}

// GetDocument fetches a single generated document for download.
func (s *ImportService) GetDocument(ctx context.Context, documentID uint) (*model.GeneratedDocument, error) {
	doc, err := repository.NewDocumentRepository().WithDB(s.db).FindByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.NotFound("document", documentID)
	}
	return doc, nil
}

// DownloadArchive bundles every document of an import into one ZIP artifact.
func (s *ImportService) DownloadArchive(ctx context.Context, importID uint) ([]byte, error) {
	if _, err := s.GetImport(ctx, importID); err != nil {
		return nil, err
	}

	docs, err := repository.NewDocumentRepository().WithDB(s.db).FindByImportID(ctx, importID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperr.NotFound("documents for import", importID)
	}

	return archive.Pack(docs)
}

// ConsolidateLiveBatch creates an import for a batch of live trades. Live
// imports skip IMPORTED: the batch is persisted as the original set and
// immediately netted by currency pair.
func (s *ImportService) ConsolidateLiveBatch(ctx context.Context, name string, trades []model.Trade) (*model.TradeImport, error) {
	var created *model.TradeImport

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		imports := repository.NewTradeImportRepository().WithDB(tx)
		tradeRepo := repository.NewTradeRepository().WithDB(tx)

		now := time.Now().UTC()
		criteriaName := string(consolidation.CriteriaCurrencyPair)
		ti := &model.TradeImport{
			ImportName:            name,
			Status:                model.StatusConsolidated,
			ConsolidationCriteria: &criteriaName,
			OriginalTradeCount:    len(trades),
			ConsolidatedAt:        &now,
		}
		if err := imports.Create(ctx, ti); err != nil {
			return err
		}

		for i := range trades {
			trades[i].ImportID = ti.ID
			trades[i].IsOriginal = true
		}
		if err := tradeRepo.CreateAll(ctx, trades); err != nil {
			return err
		}

		netted := consolidation.Consolidate(trades, consolidation.CriteriaCurrencyPair)
		for i := range netted {
			netted[i].ImportID = ti.ID
		}
		if err := tradeRepo.CreateAll(ctx, netted); err != nil {
			return err
		}

		ti.CurrentTradeCount = len(netted)
		if err := imports.Save(ctx, ti); err != nil {
			return err
		}

		logger.WithFields(map[string]interface{}{
			"import_id": ti.ID,
			"name":      ti.ImportName,
			"from":      len(trades),
			"to":        len(netted),
		}).Info("Consolidated live batch")

		created = ti
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}
