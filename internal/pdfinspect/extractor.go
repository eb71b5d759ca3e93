// Package pdfinspect extracts the text layer and counts raster images of PDF
// documents. It backs the vector-document precondition.
//
// Parsing uses github.com/ledongthuc/pdf, a pure Go reader, so the service
// ships as a single static binary.
package pdfinspect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdfgate/internal/domain"
)

// ErrEmptyDocument is returned for zero-length input.
var ErrEmptyDocument = errors.New("pdfinspect: empty document")

// maxFormDepth bounds recursion into nested form XObjects.
const maxFormDepth = 8

// Extractor implements domain.ContentExtractor for PDF input.
type Extractor struct{}

// NewExtractor returns a PDF extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractText returns the plain text of every page concatenated in page
// order. No separators are inserted, so the result length is the length of the
// text layer itself.
func (e *Extractor) ExtractText(ctx context.Context, file domain.File) (string, error) {
	var b strings.Builder
	err := e.eachPage(ctx, file, func(num int, page pdf.Page) error {
		text, err := page.GetPlainText(nil)
		if err != nil {
			return fmt.Errorf("page %d text: %w", num, err)
		}
		b.WriteString(text)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// CountEmbeddedImages counts image XObjects referenced from page resources,
// including images nested in form XObjects. Inline images are not counted.
func (e *Extractor) CountEmbeddedImages(ctx context.Context, file domain.File) (int, error) {
	total := 0
	err := e.eachPage(ctx, file, func(_ int, page pdf.Page) error {
		total += countImages(page.Resources(), 0)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (e *Extractor) eachPage(ctx context.Context, file domain.File, fn func(int, pdf.Page) error) (err error) {
	if len(file.Data) == 0 {
		return ErrEmptyDocument
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfinspect: malformed document %q: %v", file.Name, r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(file.Data), file.Size())
	if err != nil {
		return fmt.Errorf("pdfinspect: open %q: %w", file.Name, err)
	}
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		if err := fn(i, page); err != nil {
			return err
		}
	}
	return nil
}

func countImages(resources pdf.Value, depth int) int {
	if resources.IsNull() || depth > maxFormDepth {
		return 0
	}
	xobjects := resources.Key("XObject")
	if xobjects.IsNull() {
		return 0
	}
	count := 0
	for _, name := range xobjects.Keys() {
		obj := xobjects.Key(name)
		switch obj.Key("Subtype").Name() {
		case "Image":
			count++
		case "Form":
			count += countImages(obj.Key("Resources"), depth+1)
		}
	}
	return count
}

var _ domain.ContentExtractor = (*Extractor)(nil)
