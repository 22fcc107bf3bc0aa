package ocr

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	mimePDF   = "application/pdf"
	mimeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePlain = "text/plain"
)

// TextEngine reads digitally-born documents: PDF via github.com/ledongthuc/pdf,
// DOCX via the embedded word/document.xml, and plain text as-is. Scanned
// images are out of reach here and come back as ErrUnsupportedFormat.
type TextEngine struct{}

// NewTextEngine constructs a TextEngine.
func NewTextEngine() *TextEngine {
	return &TextEngine{}
}

func (e *TextEngine) Extract(ctx context.Context, data []byte, mimeType string, fileName string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(data) == 0 {
		return Result{}, fmt.Errorf("extract %s: empty payload", fileName)
	}

	var (
		text string
		err  error
	)
	switch normalizeMimeType(mimeType, fileName, data) {
	case mimePDF:
		text, err = extractPDF(data)
	case mimeDOCX:
		text, err = extractDOCX(data)
	case mimePlain:
		text = string(data)
	default:
		return Result{}, fmt.Errorf("extract %s (%s): %w", fileName, mimeType, ErrUnsupportedFormat)
	}
	if err != nil {
		return Result{}, fmt.Errorf("extract %s (%s): %w", fileName, mimeType, err)
	}

	text = strings.TrimSpace(text)
	return Result{Text: text, Confidence: scoreText(text)}, nil
}

// scoreText estimates extraction quality from the printable-rune ratio.
// Digital extraction either works or yields mojibake, so the score is high
// for clean text and drops sharply when control bytes dominate.
func scoreText(text string) float64 {
	if text == "" {
		return 0
	}
	if !utf8.ValidString(text) {
		return 0.2
	}
	total, printable := 0, 0
	for _, r := range text {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	ratio := float64(printable) / float64(total)
	// Cap below 1: extraction cannot vouch for the source scan itself.
	return ratio * 0.98
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	readerAt := bytes.NewReader(data)
	zr, err := zip.NewReader(readerAt, int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return stripDocxXML(string(raw)), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean != "application/zip" {
		return clean
	}

	if hasZipEntry(data, "word/document.xml") {
		return mimeDOCX
	}
	if strings.EqualFold(filepath.Ext(fileName), ".docx") {
		return mimeDOCX
	}
	return clean
}

func hasZipEntry(data []byte, want string) bool {
	if len(data) == 0 {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == want {
			return true
		}
	}
	return false
}

var _ Engine = (*TextEngine)(nil)
