// Package archive bundles generated documents into a single downloadable
// ZIP artifact.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/faculax/shanghai-commercial-bank/src/apperr"
	"github.com/faculax/shanghai-commercial-bank/src/model"
)

// Pack writes every document into one ZIP archive. Filenames are made unique
// by suffixing the document's identifier before the extension; a document
// with missing content is replaced by a placeholder error document rather
// than omitted.
func Pack(docs []model.GeneratedDocument) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, doc := range docs {
		entry, err := zw.Create(entryName(doc))
		if err != nil {
			return nil, apperr.Aggregation(err)
		}

		content := doc.Content
		if strings.TrimSpace(content) == "" {
			logger.WithFields(map[string]interface{}{
				"document_id": doc.ID,
				"filename":    doc.Filename,
			}).Warn("Document has empty content, packing placeholder")
			content = fmt.Sprintf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<Error>Content not available for document ID %d</Error>", doc.ID)
		}

		if _, err := entry.Write([]byte(content)); err != nil {
			return nil, apperr.Aggregation(err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, apperr.Aggregation(err)
	}

	return buf.Bytes(), nil
}

// entryName dedupes archive entries by appending the document ID before the
// .xml extension.
func entryName(doc model.GeneratedDocument) string {
	filename := strings.TrimSpace(doc.Filename)
	if filename == "" {
		return fmt.Sprintf("document_%d.xml", doc.ID)
	}

	base := strings.TrimSuffix(filename, ".xml")
	return fmt.Sprintf("%s_%d.xml", base, doc.ID)
}
