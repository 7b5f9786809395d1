package document

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// checkPDF verifies by magic bytes, not filename, that path is a PDF.
func checkPDF(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}
	if !mtype.Is("application/pdf") {
		log.Warn().Str("file", path).Str("mime", mtype.String()).Msg("rejecting non-PDF input")
		return &UnsupportedTypeError{Path: path, MIME: mtype.String()}
	}
	return nil
}
