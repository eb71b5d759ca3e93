// Package precondition holds the structural checks an input file must pass
// before entitlement is evaluated.
package precondition

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"pdfgate/internal/domain"
)

// MinVectorTextLength is the amount of extractable text below which a
// document containing raster images is classified as a scan.
const MinVectorTextLength = 50

// VectorChecker decides whether a document is structured (vector) content or
// a scanned raster. It fails closed: any extraction error classifies the
// document as not vector.
type VectorChecker struct {
	extractor domain.ContentExtractor
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewVectorChecker constructs a checker. A zero timeout leaves the caller's
// deadline in charge.
func NewVectorChecker(extractor domain.ContentExtractor, timeout time.Duration, logger zerolog.Logger) *VectorChecker {
	return &VectorChecker{extractor: extractor, timeout: timeout, logger: logger}
}

// IsVectorDocument reports whether file may be used by vector-only tools.
func (c *VectorChecker) IsVectorDocument(ctx context.Context, file domain.File) bool {
	ok, err := c.classify(ctx, file)
	if err != nil {
		c.logger.Warn().Err(err).Str("file", file.Name).Msg("vector check failed closed")
		return false
	}
	return ok
}

func (c *VectorChecker) classify(ctx context.Context, file domain.File) (bool, error) {
	if c == nil || c.extractor == nil {
		return false, fmt.Errorf("precondition: no content extractor configured")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	text, err := c.extractor.ExtractText(ctx, file)
	if err != nil {
		return false, fmt.Errorf("extract text: %w", err)
	}
	images, err := c.extractor.CountEmbeddedImages(ctx, file)
	if err != nil {
		return false, fmt.Errorf("count images: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return ClassifyVector(utf8.RuneCountInString(text), images), nil
}

// ClassifyVector applies the scan heuristic: little text together with at
// least one raster image means a scan. Documents without images always pass.
func ClassifyVector(textLength, imageCount int) bool {
	if textLength < MinVectorTextLength && imageCount > 0 {
		return false
	}
	return true
}
