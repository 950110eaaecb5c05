package corpus

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/lu4p/cat"
	"github.com/xuri/excelize/v2"
)

// FileContent is the extracted content of one corpus file: tabular files
// carry Columns+Rows, free-text files carry Lines.
type FileContent struct {
	Columns []string
	Rows    [][]string
	Lines   []string
}

// Tabular reports whether the content came from a table.
func (fc *FileContent) Tabular() bool { return len(fc.Columns) > 0 }

// Extractor reads corpus files of supported formats.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// ExtractFile reads the file at path and extracts its content by
// extension. CSV and XLSX come back as tables; PDF, DOCX, ODT, TXT and MD
// as lines.
func (e *Extractor) ExtractFile(path string) (*FileContent, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return extractCSV(path)
	case ".xlsx":
		return extractXLSX(path)
	case ".pdf":
		return extractPDFLines(path)
	case ".docx":
		return extractDOCXLines(path)
	case ".odt":
		return extractODTLines(path)
	case ".txt", ".md", "":
		return extractPlainLines(path)
	default:
		return nil, fmt.Errorf("unsupported corpus file type: %s", ext)
	}
}

// Supported reports whether the extension can be ingested.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx", ".pdf", ".docx", ".odt", ".txt", ".md":
		return true
	}
	return false
}

func extractCSV(path string) (*FileContent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}
	if len(records) == 0 {
		return &FileContent{}, nil
	}
	return &FileContent{Columns: records[0], Rows: records[1:]}, nil
}

func extractXLSX(path string) (*FileContent, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &FileContent{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return &FileContent{}, nil
	}
	return &FileContent{Columns: rows[0], Rows: rows[1:]}, nil
}

func extractPDFLines(path string) (*FileContent, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read PDF: %w", err)
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	var buf bytes.Buffer
	for i := 0; i < r.NumPage(); i++ {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i+1, err)
		}
		buf.WriteString(text)
		buf.WriteByte('\n')
	}
	return &FileContent{Lines: splitLines(buf.String())}, nil
}

// wtTag matches <w:t>text</w:t> with any attributes. Extracting text nodes
// directly works on real-world documents where paragraph tags carry
// attributes.
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

func extractDOCXLines(path string) (*FileContent, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read DOCX: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("extract DOCX: open %s: %w", f.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("extract DOCX: read %s: %w", f.Name, err)
		}
		_ = rc.Close()
		docXML = buf.Bytes()
		break
	}
	if docXML == nil {
		return nil, fmt.Errorf("extract DOCX: word/document.xml not found")
	}
	var b strings.Builder
	for _, p := range wtTag.FindAllStringSubmatch(string(docXML), -1) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(p[1]))
	}
	return &FileContent{Lines: splitLines(b.String())}, nil
}

func extractODTLines(path string) (*FileContent, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("extract ODT: %w", err)
	}
	return &FileContent{Lines: splitLines(text)}, nil
}

func extractPlainLines(path string) (*FileContent, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "�"))
	}
	return &FileContent{Lines: splitLines(string(content))}, nil
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
