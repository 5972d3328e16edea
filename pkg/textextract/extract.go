// Package textextract pulls plain text out of uploaded course material
// files (PDF, DOCX, TXT) so the ingestion pipeline can chunk it.
package textextract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

const MaxFileSize = 10 * 1024 * 1024 // 10 MB

type ExtractedText struct {
	Content string
	Pages   int
}

func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".txt"}
}

func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions() {
		if ext == s {
			return true
		}
	}
	return false
}

func Extract(data io.ReaderAt, size int64, filename string) (*ExtractedText, error) {
	if size > MaxFileSize {
		return nil, fmt.Errorf("file exceeds %d byte limit", MaxFileSize)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(data, size)
	case ".docx":
		return extractDOCX(data, size)
	case ".txt":
		return extractTXT(data, size)
	default:
		return nil, fmt.Errorf("unsupported file type %q, use .pdf, .docx or .txt", filepath.Ext(filename))
	}
}

func extractPDF(data io.ReaderAt, size int64) (*ExtractedText, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages := reader.NumPage()
	var parts []string

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if t := strings.TrimSpace(text); t != "" {
			parts = append(parts, t)
		}
	}

	// Pages become blank-line separated so the chunker treats page breaks
	// as paragraph boundaries.
	return &ExtractedText{
		Content: strings.Join(parts, "\n\n"),
		Pages:   numPages,
	}, nil
}

func extractDOCX(data io.ReaderAt, size int64) (*ExtractedText, error) {
	reader, err := zip.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open DOCX: %w", err)
	}

	var content string
	for _, f := range reader.File {
		if filepath.Base(f.Name) != "document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open document.xml: %w", err)
		}
		raw, readErr := io.ReadAll(rc)
		rc.Close()
		if readErr != nil {
			return nil, fmt.Errorf("read document.xml: %w", readErr)
		}
		content = docxToText(string(raw))
		break
	}

	return &ExtractedText{
		Content: strings.TrimSpace(content),
		Pages:   1,
	}, nil
}

func extractTXT(data io.ReaderAt, size int64) (*ExtractedText, error) {
	buf := make([]byte, size)
	if _, err := data.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read TXT: %w", err)
	}

	return &ExtractedText{
		Content: string(bytes.TrimSpace(buf)),
		Pages:   1,
	}, nil
}

// docxToText strips WordprocessingML markup, keeping paragraph boundaries
// as blank lines.
func docxToText(s string) string {
	s = strings.ReplaceAll(s, "</w:p>", "\n\n")

	var result strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}

	var paragraphs []string
	for _, line := range strings.Split(result.String(), "\n\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			paragraphs = append(paragraphs, strings.Join(fields, " "))
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
