package rag

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/livingtwin/ragsvc/internal/domain"

	"context"
)

// textExtractor pulls plain text out of a file's raw bytes.
type textExtractor func(data []byte) (string, error)

var extractorsByExt = map[string]textExtractor{
	".txt": extractRawUTF8,
	".md":  extractRawUTF8,
}

// IngestFile dispatches on the file extension to extract text, falling back
// to a raw UTF-8 decode if the extension is unknown or extraction fails —
// matching the original service's ingest_file behaviour of never rejecting
// a file outright for lacking a structured extractor.
func (s *Service) IngestFile(ctx context.Context, tenant domain.TenantID, filename string, data []byte) (domain.Source, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	extractor, ok := extractorsByExt[ext]
	if !ok {
		extractor = extractRawUTF8
	}

	text, err := extractor(data)
	if err != nil {
		text, err = extractRawUTF8(data)
		if err != nil {
			return domain.Source{}, fmt.Errorf("rag: ingest file %s: %w", filename, err)
		}
	}

	source, _, err := s.IngestText(ctx, tenant, filename, text)
	if err != nil {
		return domain.Source{}, err
	}
	source.Kind = strings.TrimPrefix(ext, ".")
	if source.Kind == "" {
		source.Kind = "text"
	}
	return source, nil
}

func extractRawUTF8(data []byte) (string, error) {
	return string(data), nil
}
