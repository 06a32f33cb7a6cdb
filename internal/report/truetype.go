package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/signintech/gopdf"
)

const ttfFamily = "report"

// FontAuto asks the exporter to look for a DejaVu Sans install and fall
// back to core fonts when none is found.
const FontAuto = "auto"

var systemFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

func findSystemFont() (string, bool) {
	for _, path := range systemFontPaths {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// trueTypeCanvas embeds a TrueType font, so patient names outside cp1252
// still render. The single face is used for bold text too.
type trueTypeCanvas struct {
	pdf *gopdf.GoPdf
	err error
}

func newTrueTypeCanvas(fontPath string, at time.Time) (*trueTypeCanvas, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4, Unit: gopdf.UnitMM})
	pdf.SetInfo(gopdf.PdfInfo{
		Title:        reportTitle,
		Creator:      productName,
		CreationDate: at,
	})
	if err := pdf.AddTTFFont(ttfFamily, fontPath); err != nil {
		return nil, fmt.Errorf("load font %s: %w", fontPath, err)
	}
	return &trueTypeCanvas{pdf: pdf}, nil
}

func (c *trueTypeCanvas) PageSize() (float64, float64) { return 210, 297 }

func (c *trueTypeCanvas) AddPage() { c.pdf.AddPage() }

func (c *trueTypeCanvas) SetFont(_ bool, size float64) {
	c.keep(c.pdf.SetFont(ttfFamily, "", size))
}

func (c *trueTypeCanvas) SetTextColor(r, g, b uint8) { c.pdf.SetTextColor(r, g, b) }

func (c *trueTypeCanvas) SetLineWidth(w float64) { c.pdf.SetLineWidth(w) }

func (c *trueTypeCanvas) Text(x, y float64, s string) {
	c.pdf.SetXY(x, y)
	c.keep(c.pdf.Text(s))
}

func (c *trueTypeCanvas) TextWidth(s string) float64 {
	w, err := c.pdf.MeasureTextWidth(s)
	c.keep(err)
	return w
}

func (c *trueTypeCanvas) Line(x1, y1, x2, y2 float64) { c.pdf.Line(x1, y1, x2, y2) }

func (c *trueTypeCanvas) Err() error { return c.err }

func (c *trueTypeCanvas) Output(w io.Writer) error {
	if c.err != nil {
		return c.err
	}
	_, err := c.pdf.WriteTo(w)
	return err
}

func (c *trueTypeCanvas) keep(err error) {
	if c.err == nil && err != nil {
		c.err = err
	}
}
