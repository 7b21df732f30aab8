// Package watermark derives stamped PDF renditions for share resolution.
package watermark

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/vericase/vericase-docs/internal/pdfutil"
)

// MaxTextLen caps normalized watermark text.
const MaxTextLen = 120

// stampDesc renders the text as a diagonal translucent stamp on every page.
const stampDesc = "scale:0.9, op:0.4, rot:45"

// ErrPageCountChanged reports a stamped output whose page count differs from
// the input. Stamping must preserve the page count exactly.
var ErrPageCountChanged = errors.New("stamped pdf page count differs from input")

// NormalizeText collapses internal whitespace, trims, and caps the result at
// MaxTextLen runes. The empty string means the input had no printable
// content and the caller must reject the request.
func NormalizeText(s string) string {
	out := strings.Join(strings.Fields(s), " ")
	if runes := []rune(out); len(runes) > MaxTextLen {
		out = strings.TrimSpace(string(runes[:MaxTextLen]))
	}
	return out
}

// Stamp overlays text on every page of the PDF and returns the derived
// bytes. The caller is expected to have normalized and validated text.
func Stamp(pdfBytes []byte, text string) ([]byte, error) {
	pagesIn, err := pdfutil.PageCount(pdfBytes)
	if err != nil {
		return nil, fmt.Errorf("read input pdf: %w", err)
	}

	wm, err := api.TextWatermark(text, stampDesc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("build watermark: %w", err)
	}
	conf := model.NewDefaultConfiguration()
	var buf bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(pdfBytes), &buf, nil, wm, conf); err != nil {
		return nil, fmt.Errorf("apply watermark: %w", err)
	}

	out := buf.Bytes()
	pagesOut, err := pdfutil.PageCount(out)
	if err != nil {
		return nil, fmt.Errorf("read stamped pdf: %w", err)
	}
	if pagesOut != pagesIn {
		return nil, fmt.Errorf("%w: %d != %d", ErrPageCountChanged, pagesOut, pagesIn)
	}
	return out, nil
}
