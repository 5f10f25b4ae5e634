package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"github.com/faculax/shanghai-commercial-bank/src/apperr"
	"github.com/faculax/shanghai-commercial-bank/src/consolidation"
	"github.com/faculax/shanghai-commercial-bank/src/model"
)

type importService interface {
	ImportFromCSV(ctx context.Context, r io.Reader) (*model.TradeImport, error)
	ListImports(ctx context.Context) ([]model.TradeImport, error)
	GetImport(ctx context.Context, importID uint) (*model.TradeImport, error)
	Consolidate(ctx context.Context, importID uint, criteria consolidation.Criteria) (*model.TradeImport, error)
	GenerateDocuments(ctx context.Context, importID uint) (*model.TradeImport, error)
	Push(ctx context.Context, importID uint) (*model.TradeImport, error)
	Delete(ctx context.Context, importID uint) error
	ClearAll(ctx context.Context) error
	GetTrades(ctx context.Context, importID uint, original bool) ([]model.Trade, error)
	ListDocuments(ctx context.Context, importID uint) ([]model.GeneratedDocument, error)
	GetDocument(ctx context.Context, documentID uint) (*model.GeneratedDocument, error)
	DownloadArchive(ctx context.Context, importID uint) ([]byte, error)
}

func pathID(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation("invalid %s %q", name, raw)
	}
	return uint(id), nil
}

// UploadCSVHandler ingests a multipart CSV upload as a new import.
func UploadCSVHandler(svc importService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, apperr.Validation("missing file upload: %v", err))
			return
		}
		defer func() {
			if err := file.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close upload")
			}
		}()

		ti, err := svc.ImportFromCSV(r.Context(), file)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, ti)
	}
}

// ListImportsHandler returns every import, newest first.
func ListImportsHandler(svc importService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imports, err := svc.ListImports(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, imports)
	}
}

// GetImportHandler returns a single import.
func GetImportHandler(svc importService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "importID")
		if err != nil {
			writeError(w, err)
			return
		}

		ti, err := svc.GetImport(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ti)
	}
}

// ConsolidateHandler nets an import's original trades under the requested
// criteria.
func ConsolidateHandler(svc importService) http.HandlerFunc {
	type request struct {
		Criteria string `json:"criteria"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "importID")
		if err != nil {
			writeError(w, err)
			return
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Validation("invalid request body: %v", err))
			return
		}

		criteria, err := consolidation.ParseCriteria(req.Criteria)
		if err != nil {
			writeError(w, err)
			return
		}

		ti, err := svc.Consolidate(r.Context(), id, criteria)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ti)
	}
}

// GenerateDocumentsHandler renders the confirmation documents of a
// consolidated import.
func GenerateDocumentsHandler(svc importService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "importID")
		if err != nil {
			writeError(w, err)
			return
		}

		ti, err := svc.GenerateDocuments(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ti)
	}
}

// PushHandler marks an import as delivered downstream.
func PushHandler(svc importService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "importID")
		if err != nil {
			writeError(w, err)
			return
		}

		ti, err := svc.Push(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ti)
	}
}

// DeleteImportHandler removes an import with its trades and documents.
func DeleteImportHandler(svc importService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "importID")
		if err != nil {
			writeError(w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ClearImportsHandler wipes every import.
func ClearImportsHandler(svc importService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ClearAll(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetTradesHandler lists an import's original or consolidated trades,
// selected by the ?original= query flag (default: consolidated).
func GetTradesHandler(svc importService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "importID")
		if err != nil {
			writeError(w, err)
			return
		}

		original := false
		if rawParam := r.URL.Query().Get("original"); rawParam != "" {
			parsed, err := strconv.ParseBool(rawParam)
			if err != nil {
				writeError(w, apperr.Validation("invalid original flag %q", rawParam))
				return
			}
			original = parsed
		}

		trades, err := svc.GetTrades(r.Context(), id, original)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, trades)
	}
}

// ListDocumentsHandler lists an import's generated documents.
func ListDocumentsHandler(svc importService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "importID")
		if err != nil {
			writeError(w, err)
			return
		}

		docs, err := svc.ListDocuments(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		// Content is omitted from the listing; individual downloads
		// return it.
		for i := range docs {
			docs[i].Content = ""
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

// DownloadDocumentHandler streams one generated document.
func DownloadDocumentHandler(svc importService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "documentID")
		if err != nil {
			writeError(w, err)
			return
		}

		doc, err := svc.GetDocument(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/xml")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
		if _, err := w.Write([]byte(doc.Content)); err != nil {
			logger.WithError(err).Error("Failed to write document response")
		}
	}
}

// DownloadArchiveHandler streams all of an import's documents as one ZIP.
func DownloadArchiveHandler(svc importService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "importID")
		if err != nil {
			writeError(w, err)
			return
		}

		data, err := svc.DownloadArchive(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("import_%d_documents.zip", id)))
		if _, err := w.Write(data); err != nil {
			logger.WithError(err).Error("Failed to write archive response")
		}
	}
}
