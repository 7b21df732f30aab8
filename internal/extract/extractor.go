// Package extract turns uploaded bytes into plain text using a layered
// strategy: structured extraction through Tika first, OCR only when that
// comes back inadequate.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// AdequacyThreshold is the minimum trimmed length (in bytes) below which
// structured extraction is considered to have failed and OCR kicks in. The
// value is a heuristic tie-break between OCRing an already-extracted
// document and accepting near-empty boilerplate text.
const AdequacyThreshold = 50

// tikaTimeout bounds the structured-extraction HTTP call so a hung Tika
// cannot pin a worker for the job's lifetime.
const tikaTimeout = 60 * time.Second

// Extractor produces best-effort plain text from raw bytes. Extract never
// returns an error: every internal failure degrades to less (possibly
// empty) text so the pipeline can apply its fallback policy.
type Extractor struct {
	tikaURL string
	client  *http.Client
	log     *logrus.Logger

	// Hooks for the two OCR paths, overridable in tests.
	ocrPDF   func(ctx context.Context, path string) (string, error)
	ocrImage func(data []byte) (string, error)
}

// New constructs an Extractor talking to the given Tika endpoint.
func New(tikaURL string, log *logrus.Logger) *Extractor {
	e := &Extractor{
		tikaURL: strings.TrimRight(tikaURL, "/"),
		client:  &http.Client{Timeout: tikaTimeout},
		log:     log,
	}
	e.ocrPDF = e.runOCRmyPDF
	e.ocrImage = recognizeImage
	return e
}

// Extract returns the best text obtainable from data. Empty text is a valid
// terminal outcome, not an error.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename string) string {
	text := e.tikaExtract(ctx, data)
	if len(strings.TrimSpace(text)) >= AdequacyThreshold {
		return text
	}
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		if ocred := e.ocrPDFBytes(ctx, data); ocred != "" {
			return ocred
		}
		return text
	}
	ocred, err := e.ocrImage(data)
	if err != nil {
		e.log.WithError(err).WithField("filename", filename).Warn("image ocr produced no text")
		return text
	}
	if ocred == "" {
		return text
	}
	return ocred
}

// tikaExtract asks the Tika server for plain text. Network and service
// errors mean "no text produced", never a fatal condition.
func (e *Extractor) tikaExtract(ctx context.Context, data []byte) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, e.tikaURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return ""
	}
	req.Header.Set("Accept", "text/plain")
	resp, err := e.client.Do(req)
	if err != nil {
		e.log.WithError(err).Warn("tika extraction failed")
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		e.log.WithField("status", resp.StatusCode).Warn("tika returned non-200")
		return ""
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.log.WithError(err).Warn("tika response read failed")
		return ""
	}
	return string(body)
}

// ocrPDFBytes writes the PDF to a scoped temp file, OCRs it, and cleans up
// every derived artifact on all exit paths.
func (e *Extractor) ocrPDFBytes(ctx context.Context, data []byte) string {
	tmp, err := os.CreateTemp("", "ingest-*.pdf")
	if err != nil {
		e.log.WithError(err).Warn("create temp pdf failed")
		return ""
	}
	path := tmp.Name()
	defer os.Remove(path)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		e.log.WithError(err).Warn("write temp pdf failed")
		return ""
	}
	if err := tmp.Close(); err != nil {
		e.log.WithError(err).Warn("close temp pdf failed")
		return ""
	}
	text, err := e.ocrPDF(ctx, path)
	if err != nil {
		e.log.WithError(err).Warn("pdf ocr produced no text")
		return ""
	}
	return text
}

// runOCRmyPDF force-OCRs every page through the ocrmypdf CLI and reads the
// sidecar text file it emits.
func (e *Extractor) runOCRmyPDF(ctx context.Context, path string) (string, error) {
	sidecar := path + ".txt"
	ocrOut := path + ".ocr.pdf"
	defer os.Remove(sidecar)
	defer os.Remove(ocrOut)

	cmd := exec.CommandContext(ctx, "ocrmypdf", "--sidecar", sidecar, "--force-ocr", path, ocrOut)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ocrmypdf: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	out, err := os.ReadFile(sidecar)
	if err != nil {
		return "", fmt.Errorf("read sidecar: %w", err)
	}
	return string(out), nil
}
