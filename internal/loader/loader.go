package loader

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"web-rag/internal/models"
	"web-rag/internal/normalizer"
)

// Load reads a local file and returns it as one normalized document, so the
// session can ingest files alongside web pages. The source is the absolute
// path and the title is the base name.
func Load(path string) (models.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return models.Document{}, err
	}

	var text string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		text, err = loadPDF(path)
	case ".docx":
		text, err = loadDOCX(path)
	case ".pptx":
		text, err = loadPPTX(path)
	case ".xlsx":
		text, err = loadXLSX(path)
	case ".ods":
		text, err = loadODS(path)
	case ".md":
		text, err = loadMarkdown(path)
	case ".txt":
		text, err = loadText(path)
	default:
		return models.Document{}, fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return models.Document{
		Content: normalizer.CleanText(text),
		Source:  abs,
		Title:   filepath.Base(path),
	}, nil
}

func loadPDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		pageText, err := reader.Page(i).GetPlainText(nil)
		if err != nil {
			return "", err
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func loadDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return r.Editable().GetContent(), nil
}

func loadPPTX(path string) (string, error) {
	f, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		sb.WriteString(slideText(string(data)))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// slideText pulls the text runs out of a slide's XML.
func slideText(xmlContent string) string {
	var sb strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		if end := strings.Index(part, "</a:t>"); end >= 0 {
			sb.WriteString(part[:end] + " ")
		}
	}
	return sb.String()
}

func loadXLSX(path string) (string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, sheet := range f.Sheets {
		sb.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				sb.WriteString(cell.String() + " ")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func loadODS(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			sb.WriteString(strings.Join(row, " "))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// loadMarkdown renders the file to HTML, then strips the markup the same
// way web pages are normalized.
func loadMarkdown(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert(data, &buf); err != nil {
		return "", err
	}
	doc := normalizer.Normalize(buf.Bytes(), path)
	return doc.Content, nil
}

func loadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
