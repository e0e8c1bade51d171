// Package pdfextract turns uploaded PDF documents into plain text for the
// knowledge ingest pipeline.
package pdfextract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText reads a whole PDF from r and returns its plain text with
// whitespace collapsed, so the chunker sees a clean word stream. An empty
// input or a PDF without extractable text yields an empty string, not an
// error.
func ExtractText(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf input failed: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf failed: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text failed: %w", err)
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}

	return strings.Join(strings.Fields(sb.String()), " "), nil
}
