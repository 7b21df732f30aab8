package watermark

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vericase/vericase-docs/internal/pdfutil"
)

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Case Reference 123", "Case Reference 123"},
		{"collapses whitespace", "   Case \t  Reference \n  123   ", "Case Reference 123"},
		{"empty", "", ""},
		{"whitespace only", " \t\n ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeText(tc.in))
		})
	}
}

func TestNormalizeTextTruncates(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := NormalizeText(long)
	assert.Len(t, got, MaxTextLen)

	// Truncation counts runes, not bytes.
	unicode := strings.Repeat("é", 500)
	got = NormalizeText(unicode)
	assert.Equal(t, MaxTextLen, len([]rune(got)))
}

func TestStampPreservesPageCount(t *testing.T) {
	original := buildPDF(t, 2)
	pages, err := pdfutil.PageCount(original)
	require.NoError(t, err)
	require.Equal(t, 2, pages)

	stamped, err := Stamp(original, "CONFIDENTIAL")
	require.NoError(t, err)
	require.NotEmpty(t, stamped)
	assert.False(t, bytes.Equal(original, stamped), "stamped output should differ from the original")

	pages, err = pdfutil.PageCount(stamped)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
}

func TestStampRejectsGarbage(t *testing.T) {
	_, err := Stamp([]byte("not a pdf"), "CONFIDENTIAL")
	assert.Error(t, err)
}

// buildPDF writes a minimal n-page PDF with a correct xref table.
func buildPDF(t *testing.T, pages int) []byte {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>\nendobj\n",
		strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		obj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /Resources << >> >>\nendobj\n", i+3))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}
