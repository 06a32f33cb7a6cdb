package report

import (
	"fmt"
	"strings"

	"mydiagai/internal/diagnostic"
)

// Page geometry in millimetres. The cursor is checked against
// pageBreakAt before every block and every list item.
const (
	marginTop    = 20.0
	marginLeft   = 20.0
	pageBreakAt  = 250.0
	footerOffset = 20.0

	productName = "MyDiagAI"
	reportTitle = "Rapport de Diagnostic"
	disclaimer  = "Note: Ces résultats sont générés par IA et ne remplacent pas un diagnostic médical professionnel."
)

type rgb struct{ r, g, b uint8 }

var (
	colorPrimary = rgb{37, 99, 235}
	colorText    = rgb{0, 0, 0}
	colorMuted   = rgb{100, 100, 100}
)

// canvas is the drawing surface a PDF backend provides. Coordinates are
// millimetres from the top-left corner; y is the text baseline.
type canvas interface {
	PageSize() (w, h float64)
	AddPage()
	SetFont(bold bool, size float64)
	SetTextColor(r, g, b uint8)
	SetLineWidth(w float64)
	Text(x, y float64, s string)
	TextWidth(s string) float64
	Line(x1, y1, x2, y2 float64)
	Err() error
}

type layout struct {
	c     canvas
	w, h  float64
	y     float64
	pages int
}

func render(c canvas, r diagnostic.DiagnosticReport) error {
	if len(r.Candidates) == 0 {
		return ErrNoCandidates
	}
	w, h := c.PageSize()
	l := &layout{c: c, w: w, h: h}
	l.newPage()

	l.title()
	l.patient(r)
	l.symptoms(r)
	l.candidates(r)
	l.footer()
	return c.Err()
}

func (l *layout) newPage() {
	l.c.AddPage()
	l.pages++
	l.y = marginTop
}

func (l *layout) breakIfNeeded() {
	if l.y > pageBreakAt {
		l.newPage()
	}
}

func (l *layout) color(c rgb) {
	l.c.SetTextColor(c.r, c.g, c.b)
}

func (l *layout) centered(s string) {
	l.c.Text((l.w-l.c.TextWidth(s))/2, l.y, s)
}

func (l *layout) heading(s string) {
	l.breakIfNeeded()
	l.c.SetFont(true, 14)
	l.c.Text(marginLeft, l.y, s)
}

func (l *layout) title() {
	l.c.SetFont(true, 22)
	l.color(colorPrimary)
	l.centered(productName)
	l.y += 10

	l.c.SetFont(false, 16)
	l.color(colorText)
	l.centered(reportTitle)
	l.y += 15

	l.c.SetLineWidth(0.5)
	l.c.Line(marginLeft, l.y, l.w-marginLeft, l.y)
	l.y += 10
}

func (l *layout) patient(r diagnostic.DiagnosticReport) {
	l.heading("Informations du Patient")
	l.y += 8

	l.c.SetFont(false, 11)
	l.c.Text(25, l.y, "Nom: "+r.Patient.Name)
	l.y += 7
	l.c.Text(25, l.y, fmt.Sprintf("Âge: %d ans", r.Patient.Age))
	l.y += 7
	l.c.Text(25, l.y, "Genre: "+r.Patient.Gender.Label())
	l.y += 12
}

func (l *layout) symptoms(r diagnostic.DiagnosticReport) {
	l.heading("Symptômes Sélectionnés")
	l.y += 8

	l.c.SetFont(false, 11)
	for _, s := range r.Symptoms {
		l.breakIfNeeded()
		label := s.Label
		if label == "" {
			label = s.ID
		}
		l.c.Text(25, l.y, "• "+label)
		l.y += 6
	}
	l.y += 8
}

// candidates writes one item per candidate. The break check happens only
// before the numbered heading, so a candidate's wrapped lines stay with it.
func (l *layout) candidates(r diagnostic.DiagnosticReport) {
	l.heading("Résultats du Diagnostic")
	l.y += 10

	for i, c := range r.Candidates {
		l.breakIfNeeded()

		l.c.SetFont(true, 12)
		l.c.Text(25, l.y, fmt.Sprintf("%d. %s", i+1, c.Disease))
		l.y += 7

		l.c.SetFont(false, 10)
		l.c.Text(30, l.y, fmt.Sprintf("Probabilité: %d%% | Sévérité: %s", c.Probability, c.Severity))
		l.y += 6

		if c.Description != "" {
			for _, line := range wrap(l.c, c.Description, l.w-60) {
				l.c.Text(30, l.y, line)
				l.y += 5
			}
			l.y += 5
		}

		if len(c.Recommendations) > 0 {
			l.c.SetFont(true, 10)
			l.c.Text(30, l.y, "Recommandations:")
			l.y += 6
			l.c.SetFont(false, 10)
			for _, rec := range c.Recommendations {
				for _, line := range wrap(l.c, "• "+rec, l.w-65) {
					l.c.Text(35, l.y, line)
					l.y += 5
				}
				l.y += 2
			}
		}
		l.y += 8
	}
}

func (l *layout) footer() {
	l.c.SetFont(false, 9)
	l.color(colorMuted)
	if l.y > l.h-footerOffset-5 {
		l.newPage()
	}
	l.y = l.h - footerOffset
	l.centered(disclaimer)
}

// wrap breaks s into lines no wider than width, measured with the current
// font. A single word wider than width gets a line of its own.
func wrap(c canvas, s string, width float64) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		if c.TextWidth(candidate) <= width {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = word
	}
	return append(lines, line)
}
