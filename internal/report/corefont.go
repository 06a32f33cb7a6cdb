package report

import (
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// coreFontCanvas draws with the built-in Helvetica font. Text is
// translated to cp1252, which covers the French labels and the bullet.
type coreFontCanvas struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func newCoreFontCanvas(at time.Time) *coreFontCanvas {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(at)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(reportTitle, true)
	pdf.SetCreator(productName, true)
	return &coreFontCanvas{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (c *coreFontCanvas) PageSize() (float64, float64) { return c.pdf.GetPageSize() }

func (c *coreFontCanvas) AddPage() { c.pdf.AddPage() }

func (c *coreFontCanvas) SetFont(bold bool, size float64) {
	style := ""
	if bold {
		style = "B"
	}
	c.pdf.SetFont("Helvetica", style, size)
}

func (c *coreFontCanvas) SetTextColor(r, g, b uint8) {
	c.pdf.SetTextColor(int(r), int(g), int(b))
}

func (c *coreFontCanvas) SetLineWidth(w float64) { c.pdf.SetLineWidth(w) }

func (c *coreFontCanvas) Text(x, y float64, s string) { c.pdf.Text(x, y, c.tr(s)) }

func (c *coreFontCanvas) TextWidth(s string) float64 { return c.pdf.GetStringWidth(c.tr(s)) }

func (c *coreFontCanvas) Line(x1, y1, x2, y2 float64) { c.pdf.Line(x1, y1, x2, y2) }

func (c *coreFontCanvas) Err() error { return c.pdf.Error() }

func (c *coreFontCanvas) Output(w io.Writer) error { return c.pdf.Output(w) }
