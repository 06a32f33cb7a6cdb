package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"mydiagai/internal/diagnostic"
)

var ErrNoCandidates = errors.New("report has no candidate conditions")

type document interface {
	canvas
	Output(w io.Writer) error
}

// Exporter renders diagnostic reports to PDF. With no font path it uses
// core fonts; with a path (or FontAuto resolving to one) it embeds that
// TrueType font.
type Exporter struct {
	fontPath string
	logger   zerolog.Logger
}

func NewExporter(fontPath string, logger zerolog.Logger) *Exporter {
	logger = logger.With().Str("component", "pdf").Logger()
	if fontPath == FontAuto {
		if path, ok := findSystemFont(); ok {
			logger.Info().Str("font", path).Msg("using system font")
			fontPath = path
		} else {
			logger.Warn().Msg("no system font found, using core fonts")
			fontPath = ""
		}
	}
	return &Exporter{fontPath: fontPath, logger: logger}
}

// Export returns the PDF bytes and the download filename. The same report
// exported at the same instant yields identical bytes.
func (e *Exporter) Export(r diagnostic.DiagnosticReport, at time.Time) ([]byte, string, error) {
	if len(r.Candidates) == 0 {
		return nil, "", ErrNoCandidates
	}

	doc, err := e.newDocument(at)
	if err != nil {
		return nil, "", err
	}
	if err := render(doc, r); err != nil {
		return nil, "", fmt.Errorf("failed to lay out PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to write PDF: %w", err)
	}

	filename := Filename(r.Patient.Name, at)
	e.logger.Info().
		Str("filename", filename).
		Int("bytes", buf.Len()).
		Int("candidates", len(r.Candidates)).
		Msg("report exported")
	return buf.Bytes(), filename, nil
}

func (e *Exporter) newDocument(at time.Time) (document, error) {
	if e.fontPath == "" {
		return newCoreFontCanvas(at), nil
	}
	return newTrueTypeCanvas(e.fontPath, at)
}

// unsafeRun matches runs of anything but letters, digits, '_', '.' and '-',
// which covers whitespace and path separators.
var unsafeRun = regexp.MustCompile(`[^\p{L}\p{N}_.-]+`)

// Filename builds Diagnostic_<name>_<DD-MM-YYYY>.pdf. Every run of unsafe
// characters in the name becomes a single underscore, so the result never
// contains a path separator.
func Filename(patientName string, at time.Time) string {
	return fmt.Sprintf("Diagnostic_%s_%s.pdf", unsafeRun.ReplaceAllString(patientName, "_"), at.Format("02-01-2006"))
}
