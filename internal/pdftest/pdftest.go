// Package pdftest builds tiny but valid PDF files for tests, so test
// cases do not depend on binary fixtures checked into the repo.
package pdftest

import (
    "bytes"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "testing"
)

// WritePDF writes a minimal PDF with one page per entry of texts and
// returns its path. An empty string produces a page with no text.
func WritePDF(t *testing.T, dir, name string, texts ...string) string {
    t.Helper()
    data := Build(texts...)
    path := filepath.Join(dir, name)
    if err := os.WriteFile(path, data, 0o644); err != nil {
        t.Fatalf("write fixture pdf: %v", err)
    }
    return path
}

// Build renders the PDF bytes for one page per entry of texts.
func Build(texts ...string) []byte {
    if len(texts) == 0 {
        texts = []string{""}
    }

    var buf bytes.Buffer
    offsets := []int{0} // object 0 is the free head
    writeObj := func(body string) {
        offsets = append(offsets, buf.Len())
        buf.WriteString(body)
    }

    buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

    n := len(texts)
    // obj 1: catalog, obj 2: page tree, then page/content pairs
    kids := make([]string, n)
    for i := 0; i < n; i++ {
        kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
    }
    writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
    writeObj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
        strings.Join(kids, " "), n))

    for i, text := range texts {
        pageNum := 3 + 2*i
        contentNum := pageNum + 1
        writeObj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
            "/Resources << /Font << /F1 << /Type /Font /Subtype /Type1 /BaseFont /Helvetica >> >> >> "+
            "/Contents %d 0 R >>\nendobj\n", pageNum, contentNum))

        stream := ""
        if text != "" {
            stream = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", escape(text))
        }
        writeObj(fmt.Sprintf("%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
            contentNum, len(stream), stream))
    }

    xrefStart := buf.Len()
    total := len(offsets)
    buf.WriteString(fmt.Sprintf("xref\n0 %d\n", total))
    buf.WriteString("0000000000 65535 f \n")
    for _, off := range offsets[1:] {
        buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
    }
    buf.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
        total, xrefStart))

    return buf.Bytes()
}

func escape(s string) string {
    s = strings.ReplaceAll(s, "\\", "\\\\")
    s = strings.ReplaceAll(s, "(", "\\(")
    s = strings.ReplaceAll(s, ")", "\\)")
    return s
}
