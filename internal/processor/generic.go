package processor

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
)

// yearPattern pulls a plausible 4-digit year out of a filename, the same
// best-effort regex-over-filename idiom the teacher's extractor uses for
// entity extraction.
var yearPattern = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)

// GenericProcessor always accepts, at the lowest priority, producing
// filename-derived claims so the registry never fails to produce a
// decision for an unsupported format.
type GenericProcessor struct{}

func NewGenericProcessor() GenericProcessor { return GenericProcessor{} }

func (GenericProcessor) CanHandle(string) bool { return true }

func (GenericProcessor) Process(ctx context.Context, path string) (Result, error) {
	base := filepath.Base(path)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	title := strings.TrimSuffix(base, filepath.Ext(base))

	claims := []ExtractedClaim{
		{Key: "title", Value: title, Confidence: 0.3},
	}
	if ext != "" {
		claims = append(claims, ExtractedClaim{Key: "extension", Value: ext, Confidence: 1.0})
	}
	if year := yearPattern.FindString(title); year != "" {
		claims = append(claims, ExtractedClaim{Key: "year", Value: year, Confidence: 0.4})
	}

	return Result{DetectedType: "Generic", Claims: claims}, nil
}
