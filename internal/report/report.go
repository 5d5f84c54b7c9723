// Package report renders the journey recap as a printable PDF.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"promptdojo/internal/game"
	"promptdojo/internal/levels"
	"promptdojo/internal/state"

	"github.com/jung-kurt/gofpdf/v2"
)

const TeacherNote = "Through these levels you explored how specific vocabulary shapes what an image model draws. " +
	"Starting from single objects and ending with cinematic scenes, the lesson is that a strong prompt is not about length. " +
	"It is about precision and intent."

type Options struct {
	PlayerLabel string
	GeneratedAt time.Time
}

// Recap builds the PDF for the given progress. Levels without a score are
// listed as not played and count as zero in the final accuracy.
func Recap(c *levels.Catalog, p state.Progress, opts Options) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("recap: catalog is required")
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}

	const (
		margin = 48.0
		rowH   = 34.0
		barW   = 160.0
	)
	pdf := gofpdf.New("P", "pt", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*margin

	pdf.SetFillColor(79, 70, 229)
	pdf.Rect(0, 0, pageW, 120, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetXY(margin, 36)
	pdf.CellFormat(contentW, 28, tr(c.Title+": Journey Recap"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	sub := "Generated " + opts.GeneratedAt.Format("Jan 2, 2006 15:04")
	if opts.PlayerLabel != "" {
		sub = opts.PlayerLabel + " | " + sub
	}
	pdf.SetX(margin)
	pdf.CellFormat(contentW, 16, tr(sub), "", 1, "L", false, 0, "")

	accuracy := game.FinalAccuracy(p, c.MaxID())
	pdf.SetTextColor(30, 30, 40)
	pdf.SetXY(margin, 140)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 16, "FINAL ACCURACY SCORE", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 40)
	pdf.SetX(margin)
	pdf.CellFormat(contentW, 44, fmt.Sprintf("%d%%", accuracy), "", 1, "L", false, 0, "")
	pdf.Ln(10)

	for _, lv := range c.Levels {
		y := pdf.GetY()
		pdf.SetFillColor(243, 244, 246)
		pdf.Rect(margin, y, contentW, rowH-6, "F")

		pdf.SetXY(margin+8, y+4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(contentW-barW-80, 12, tr(fmt.Sprintf("%d. %s", lv.ID, lv.Title)), "", 2, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(100, 100, 110)
		pdf.CellFormat(contentW-barW-80, 10, tr(lv.Category+" | "+lv.Difficulty.String()), "", 0, "L", false, 0, "")
		pdf.SetTextColor(30, 30, 40)

		score, played := p.Score(lv.ID)
		barX := margin + contentW - barW - 60
		pdf.SetFillColor(224, 231, 255)
		pdf.Rect(barX, y+9, barW, 10, "F")
		if played {
			pdf.SetFillColor(79, 70, 229)
			pdf.Rect(barX, y+9, barW*float64(score)/100, 10, "F")
		}
		label := "not played"
		if played {
			label = fmt.Sprintf("%d%%", score)
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetXY(barX+barW+6, y+6)
		pdf.CellFormat(50, 14, label, "", 0, "R", false, 0, "")
		pdf.SetXY(margin, y+rowH)
	}

	pdf.Ln(12)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetX(margin)
	pdf.CellFormat(contentW, 18, "Teacher's Note", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetX(margin)
	pdf.MultiCell(contentW, 15, tr(TeacherNote), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render recap: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders the recap and writes it to path, creating parent
// directories as needed.
func WriteFile(path string, c *levels.Catalog, p state.Progress, opts Options) error {
	out, err := Recap(c, p, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
