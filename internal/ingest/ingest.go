// Package ingest turns uploaded .txt, .docx and .pdf files into plain text.
package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedFormat is returned by ExtractFormat for unknown formats.
	ErrUnsupportedFormat = errors.New("ingest: unsupported format")
	// ErrNoText is returned when a document holds no extractable text.
	ErrNoText = errors.New("ingest: no extractable text")
)

// Format identifies how a file's bytes are decoded.
type Format string

const (
	FormatText Format = "txt"
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

// FormatOf picks the format from the file extension. Unknown extensions are
// read as text.
func FormatOf(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx":
		return FormatDOCX
	case ".pdf":
		return FormatPDF
	default:
		return FormatText
	}
}

// Extract decodes data according to the extension of filename.
func Extract(filename string, data []byte) (string, error) {
	return ExtractFormat(FormatOf(filename), data)
}

// ExtractFormat decodes data in the given format.
func ExtractFormat(format Format, data []byte) (string, error) {
	switch format {
	case FormatText:
		return decodeText(data), nil
	case FormatDOCX:
		return parseDOCX(data)
	case FormatPDF:
		return parsePDF(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// decodeText reads data as UTF-8, dropping invalid byte sequences.
func decodeText(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

// parseDOCX returns the body paragraphs followed by the text of every table
// cell, one per line.
func parseDOCX(raw []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open docx zip: %w", err)
	}

	var xmlData []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, openErr := f.Open()
		if openErr != nil {
			return "", fmt.Errorf("open document.xml: %w", openErr)
		}
		xmlData, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read document.xml: %w", err)
		}
		break
	}
	if len(xmlData) == 0 {
		return "", fmt.Errorf("word/document.xml not found")
	}

	var (
		paragraphs []string
		cells      []string
		para       strings.Builder
		cell       []string
		tableDepth int
		inRun      bool
		inText     bool
	)

	decoder := xml.NewDecoder(bytes.NewReader(xmlData))
	for {
		tok, tokenErr := decoder.Token()
		if tokenErr == io.EOF {
			break
		}
		if tokenErr != nil {
			return "", fmt.Errorf("decode document.xml: %w", tokenErr)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "tc":
				cell = cell[:0]
			case "p":
				para.Reset()
			case "r":
				inRun = true
			case "t":
				inText = true
			case "tab":
				if inRun {
					para.WriteString("\t")
				}
			case "br", "cr":
				if inRun {
					para.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth--
			case "tc":
				if text := strings.TrimSpace(strings.Join(cell, "\n")); text != "" {
					cells = append(cells, text)
				}
			case "p":
				if tableDepth > 0 {
					cell = append(cell, para.String())
				} else if para.Len() > 0 {
					paragraphs = append(paragraphs, para.String())
				}
			case "r":
				inRun = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	return strings.Join(append(paragraphs, cells...), "\n"), nil
}

// parsePDF joins the trimmed text of every non-empty page with blank lines.
func parsePDF(raw []byte) (text string, err error) {
	// the pdf reader panics on some malformed files
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("read pdf: %v", rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		if content = strings.TrimSpace(content); content != "" {
			pages = append(pages, content)
		}
	}
	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n\n"), nil
}
