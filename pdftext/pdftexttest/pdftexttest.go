// Package pdftexttest builds small PDF documents for tests.
package pdftexttest

import (
	"bytes"
	"fmt"
	"strings"
)

// New returns a PDF with one page per entry in pages. Each page draws its
// text with Helvetica, one line per "\n" separated line. An empty entry
// produces a page with graphics but no text, like a scanned page.
func New(pages ...string) []byte {
	var objects []string

	// 1: catalog, 2: page tree, 3: font, then a page and content stream per page.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+i*2)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		contentID := 5 + i*2
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentID),
			stream(content(text)),
		)
	}

	buf := new(bytes.Buffer)
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func content(text string) string {
	if text == "" {
		return "0.5 g 72 72 468 648 re f"
	}
	var sb strings.Builder
	sb.WriteString("BT\n/F1 12 Tf\n14 TL\n72 720 Td\n")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			sb.WriteString("T*\n")
		}
		fmt.Fprintf(&sb, "(%s) Tj\n", escape(line))
	}
	sb.WriteString("ET")
	return sb.String()
}

func stream(data string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data)
}

var escaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

func escape(s string) string {
	return escaper.Replace(s)
}
