package report

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilename(t *testing.T) {
	at := time.Date(2026, 3, 7, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "Diagnostic_Jean_Dupont_07-03-2026.pdf", Filename("Jean Dupont", at))
	assert.Equal(t, "Diagnostic_Marie_Claire_Durand_07-03-2026.pdf", Filename("Marie  Claire\tDurand", at))

	tests := []struct {
		name string
		want string
	}{
		{"Hélène Dupont", "Diagnostic_Hélène_Dupont_07-03-2026.pdf"},
		{"Jean/Dupont", "Diagnostic_Jean_Dupont_07-03-2026.pdf"},
		{`Jean\Dupont`, "Diagnostic_Jean_Dupont_07-03-2026.pdf"},
		{"../../escape", "Diagnostic_.._.._escape_07-03-2026.pdf"},
		{"x/../../../tmp/pwn", "Diagnostic_x_.._.._.._tmp_pwn_07-03-2026.pdf"},
		{"Jean-Luc O'Neil", "Diagnostic_Jean-Luc_O_Neil_07-03-2026.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filename(tt.name, at)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, filepath.Base(got))
			assert.NotContains(t, got, "/")
			assert.NotContains(t, got, `\`)
		})
	}
}

func TestExport_CoreFonts(t *testing.T) {
	e := NewExporter("", zerolog.Nop())
	at := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

	data, name, err := e.Export(sampleReport(t, "fever", "cough"), at)
	require.NoError(t, err)
	assert.Equal(t, "Diagnostic_Jean_Dupont_16-10-2026.pdf", name)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	again, _, err := e.Export(sampleReport(t, "fever", "cough"), at)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestExport_NoCandidates(t *testing.T) {
	r := sampleReport(t, "fever")
	r.Candidates = nil
	_, _, err := NewExporter("", zerolog.Nop()).Export(r, time.Now())
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestExport_MissingFont(t *testing.T) {
	e := NewExporter("/nonexistent/font.ttf", zerolog.Nop())
	_, _, err := e.Export(sampleReport(t, "fever"), time.Now())
	assert.Error(t, err)
}

func TestExport_TrueType(t *testing.T) {
	path, ok := findSystemFont()
	if !ok {
		t.Skip("DejaVu Sans not installed")
	}
	e := NewExporter(path, zerolog.Nop())

	r := sampleReport(t, "fever")
	r.Patient.Name = "Анна Иванова"
	data, name, err := e.Export(r, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "Diagnostic_Анна_Иванова_02-01-2026.pdf", name)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestNewExporter_AutoFallsBack(t *testing.T) {
	e := NewExporter(FontAuto, zerolog.Nop())
	if _, ok := findSystemFont(); !ok {
		assert.Empty(t, e.fontPath)
	} else {
		assert.NotEmpty(t, e.fontPath)
	}
}
