package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

const (
	// MinTextLength is the minimum amount of selectable text a PDF must
	// contain to be worth sending to the generator. Below this it is almost
	// certainly a scan or an empty document; there is no OCR fallback.
	MinTextLength = 50
	// MaxTextLength bounds the text embedded in the prompt, and is also the
	// truncation applied before the text is stored.
	MaxTextLength = 30000
)

// ErrNotPDF is returned when the payload does not carry a PDF header.
var ErrNotPDF = errors.New("file is not a PDF")

// PDF extracts plain text from PDF bytes.
type PDF struct{}

func NewPDF() *PDF {
	return &PDF{}
}

func (PDF) Text(data []byte) (string, error) {
	if !isPDF(data) {
		return "", ErrNotPDF
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return collapseWhitespace(string(b)), nil
}

// Truncate caps text at MaxTextLength bytes, cutting on a rune boundary.
func Truncate(s string) string {
	if len(s) <= MaxTextLength {
		return s
	}
	cut := MaxTextLength
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// TooShort reports whether the extracted text is below the usable minimum.
func TooShort(s string) bool {
	return len(strings.TrimSpace(s)) < MinTextLength
}

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
