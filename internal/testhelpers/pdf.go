package testhelpers

import (
	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// PageContent returns the decoded content stream of one page of the PDF at path.
func PageContent(t testing.TB, path string, page int) string {
	t.Helper()
	dir := t.TempDir()
	if err := api.ExtractContentFile(path, dir, []string{strconv.Itoa(page)}, nil); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		sb.Write(data)
	}
	if sb.Len() == 0 {
		t.Fatalf("no content on page %d of %s", page, path)
	}
	return sb.String()
}

// Content returns the decoded content streams of every page, in page order.
func Content(t testing.TB, path string) []string {
	t.Helper()
	n, err := api.PageCountFile(path)
	if err != nil {
		t.Fatal(err)
	}
	pages := make([]string, 0, n)
	for page := 1; page <= n; page++ {
		pages = append(pages, PageContent(t, path, page))
	}
	return pages
}

// CoreText is s as a text operand drawn in the core font, the encoding used when no unicode font is
// available.
func CoreText(s string) string {
	return fpdf.New("P", "mm", "A4", "").UnicodeTranslatorFromDescriptor("")(s)
}
