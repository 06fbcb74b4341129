package tools

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedDocument is returned for file types without a parser.
var ErrUnsupportedDocument = errors.New("unsupported document type")

const maxSheetCells = 1000

// SupportedDocumentExts lists the extensions ParseDocument understands.
func SupportedDocumentExts() []string {
	return []string{".pdf", ".docx", ".xlsx", ".txt", ".md", ".csv"}
}

// IsSupportedDocument reports whether path has a parseable extension.
func IsSupportedDocument(path string) bool {
	return slices.Contains(SupportedDocumentExts(), strings.ToLower(filepath.Ext(path)))
}

// ParseDocument extracts plain text from a document on disk.
func ParseDocument(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat document: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		return parsePDF(ctx, path, info.Size())
	case ".docx":
		return parseDocx(path)
	case ".xlsx":
		return parseSpreadsheet(ctx, path)
	case ".csv":
		return parseCSV(path)
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read document: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDocument, ext)
	}
}

func parsePDF(ctx context.Context, path string, size int64) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer file.Close()

	reader, err := pdf.NewReader(file, size)
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, fmt.Sprintf("## Page %d\n\n%s", i, strings.TrimSpace(text)))
		}
	}

	return strings.Join(pages, "\n\n"), nil
}

func parseDocx(path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse Word document: %w", err)
	}
	defer doc.Close()

	return stripXML(doc.Editable().GetContent()), nil
}

func parseSpreadsheet(ctx context.Context, path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse spreadsheet: %w", err)
	}
	defer f.Close()

	var sheets []string
	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		rows, err := f.GetRows(name)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %s: %w", name, err)
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "## Sheet: %s\n\n", name)
		writeTable(&sb, rows)
		sheets = append(sheets, strings.TrimSpace(sb.String()))
	}

	return strings.Join(sheets, "\n\n"), nil
}

func parseCSV(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse CSV: %w", err)
	}

	var sb strings.Builder
	writeTable(&sb, rows)
	return strings.TrimSpace(sb.String()), nil
}

// writeTable renders rows as pipe separated lines, stopping after maxSheetCells cells.
func writeTable(sb *strings.Builder, rows [][]string) {
	cells := 0
	for _, row := range rows {
		if cells >= maxSheetCells {
			sb.WriteString("... (truncated)\n")
			return
		}
		var values []string
		for _, cell := range row {
			values = append(values, strings.TrimSpace(cell))
		}
		if strings.TrimSpace(strings.Join(values, "")) == "" {
			continue
		}
		cells += len(values)
		sb.WriteString(strings.Join(values, " | "))
		sb.WriteString("\n")
	}
}

// stripXML drops the WordprocessingML markup left by docx and keeps paragraph breaks.
func stripXML(content string) string {
	content = strings.ReplaceAll(content, "</w:p>", "\n")

	var sb strings.Builder
	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}

	lines := strings.Split(sb.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
