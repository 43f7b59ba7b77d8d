package testgen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var pdfStringEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

// GeneratePDF writes a minimal PDF with blank pages and an information
// dictionary built from opts.
func GeneratePDF(t *testing.T, dir, filename string, opts PDFOptions) string {
	t.Helper()

	pages := opts.Pages
	if pages < 1 {
		pages = 1
	}

	// 1: catalog, 2: page tree, 3: info (unreferenced when empty), 4..: pages.
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+4)
	}

	var info strings.Builder
	for _, entry := range []struct{ key, value string }{
		{"Title", opts.Title},
		{"Author", opts.Author},
		{"Subject", opts.Subject},
		{"Keywords", opts.Keywords},
		{"CreationDate", opts.CreationDate},
	} {
		if entry.value != "" {
			fmt.Fprintf(&info, "/%s (%s) ", entry.key, pdfStringEscaper.Replace(entry.value))
		}
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages),
		fmt.Sprintf("<< %s>>", info.String()),
	}
	for range pages {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f\r\n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n\r\n", off)
	}
	trailer := fmt.Sprintf("/Size %d /Root 1 0 R", len(objects)+1)
	if info.Len() > 0 {
		trailer += " /Info 3 0 R"
	}
	fmt.Fprintf(&buf, "trailer\n<< %s >>\nstartxref\n%d\n%%%%EOF\n", trailer, xref)

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatalf("failed to write PDF file: %v", err)
	}
	return path
}
