package pdftext

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxChars is the excerpt cap used when the caller doesn't provide one.
const DefaultMaxChars = 12000

// DocumentParseError is returned when the input can't be read as a PDF.
type DocumentParseError struct {
	Err error
}

func (e *DocumentParseError) Error() string {
	return fmt.Sprintf("pdftext: failed to parse document: %v", e.Err)
}

func (e *DocumentParseError) Unwrap() error {
	return e.Err
}

// Extract returns the text of the document in page order, joined by newlines
// and truncated to maxChars runes. Pages are read until the accumulated text
// reaches maxChars, later pages are not parsed.
func Extract(data []byte, maxChars int) (text string, err error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if len(data) == 0 {
		return "", nil
	}
	// The PDF reader panics on some malformed objects.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &DocumentParseError{Err: fmt.Errorf("%v", r)}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &DocumentParseError{Err: err}
	}

	fonts := make(map[string]*pdf.Font)
	var pages []string
	var total int
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}
		pageText, err := p.GetPlainText(fonts)
		if err != nil {
			return "", &DocumentParseError{Err: fmt.Errorf("page %d: %w", i, err)}
		}
		pages = append(pages, pageText)
		total += utf8.RuneCountInString(pageText)
		if total >= maxChars {
			break
		}
	}

	return truncate(strings.Join(pages, "\n"), maxChars), nil
}

func truncate(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	var n int
	for i := range s {
		if n == maxChars {
			return s[:i]
		}
		n++
	}
	return s
}
