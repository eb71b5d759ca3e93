package precondition

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"pdfgate/internal/domain"
)

// SignaturePrefixLength is the number of leading bytes searched for a format
// signature.
const SignaturePrefixLength = 20

// KnownBinarySignatures are the accepted binary container markers.
var KnownBinarySignatures = [][]byte{
	[]byte("CADBIN"),
	[]byte("DXFBIN"),
}

// ValidateBinarySignature reads the first SignaturePrefixLength bytes of r and
// succeeds when any known signature occurs anywhere inside them.
func ValidateBinarySignature(r io.Reader) error {
	prefix := make([]byte, SignaturePrefixLength)
	n, err := io.ReadFull(r, prefix)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return &domain.ConversionError{Kind: domain.KindUnsupportedBinFormat, Err: fmt.Errorf("read header: %w", err)}
	}
	if HasBinarySignature(prefix[:n]) {
		return nil
	}
	return domain.ErrUnsupportedBinFormat
}

// HasBinarySignature reports whether header contains a known signature.
func HasBinarySignature(header []byte) bool {
	if len(header) > SignaturePrefixLength {
		header = header[:SignaturePrefixLength]
	}
	for _, sig := range KnownBinarySignatures {
		if bytes.Contains(header, sig) {
			return true
		}
	}
	return false
}
