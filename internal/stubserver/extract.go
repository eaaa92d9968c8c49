package stubserver

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrNoText          = errors.New("no text content found")
)

// documentType is the lower-case extension without the dot, "txt" when absent.
func documentType(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return "txt"
	}
	return ext
}

// extractText returns the plain text of an uploaded file and its page count.
func extractText(filename string, content []byte) (string, int, error) {
	var (
		text  string
		pages = 1
		err   error
	)
	switch documentType(filename) {
	case "pdf":
		text, pages, err = extractPDF(content)
	case "txt", "md":
		if !utf8.Valid(content) {
			return "", 0, errors.New("file is not valid UTF-8 text")
		}
		text = string(content)
	default:
		return "", 0, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(filename))
	}
	if err != nil {
		return "", 0, err
	}
	if strings.TrimSpace(text) == "" {
		return "", pages, ErrNoText
	}
	return text, pages, nil
}

func extractPDF(content []byte) (string, int, error) {
	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, int64(len(content)))
	if err != nil {
		return "", 0, fmt.Errorf("read pdf: %w", err)
	}

	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	return textBuilder.String(), numPages, nil
}
