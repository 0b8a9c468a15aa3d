// Package reports renders reviewee reports for download.
package reports

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"appraisal/internal/domain/appraisal"
)

const (
	pageWidth   = 190.0
	scoreColumn = 28.0
	countColumn = 24.0
)

// Options carries display names resolved outside the report itself.
type Options struct {
	RevieweeName string
	SurveyName   string
}

// WritePDF renders report as an A4 document to w.
func WritePDF(w io.Writer, report appraisal.Report, opts Options) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Appraisal report", true)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	reviewee := firstNonEmpty(opts.RevieweeName, report.RevieweeID)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr("Appraisal report: "+reviewee))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	if report.SurveyID != "" {
		pdf.Cell(0, 7, tr("Survey: "+firstNonEmpty(opts.SurveyName, report.SurveyID)))
		pdf.Ln(6)
	}
	pdf.Cell(0, 7, tr("Category: "+report.Category))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Completed answer lists: %d from %d reviewers", report.AnswerLists, report.Reviewers))
	pdf.Ln(6)
	pdf.Cell(0, 7, "Generated: "+report.GeneratedAt.Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)

	if len(report.Questions) == 0 && len(report.OpenEnded) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 8, "No completed answers match this report.")
		return output(pdf, w)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Overall average: %.2f %s", report.OverallAverage, labelSuffix(report.OverallAverage)))
	pdf.Ln(10)

	if strongest, weakest, ok := Highlights(report); ok && len(report.Questions) > 1 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(pageWidth, 6, tr(fmt.Sprintf("Strongest: %s (%.2f)", strongest.Question, strongest.AverageScore)), "", "L", false)
		pdf.MultiCell(pageWidth, 6, tr(fmt.Sprintf("Needs most attention: %s (%.2f)", weakest.Question, weakest.AverageScore)), "", "L", false)
		pdf.Ln(4)
	}

	if len(report.Categories) > 0 {
		sectionTitle(pdf, "Categories")
		tableHeader(pdf, "Category")
		pdf.SetFont("Helvetica", "", 10)
		for _, c := range report.Categories {
			tableRow(pdf, tr(categoryName(c.Category)), c.AverageScore, c.Responses)
		}
		pdf.Ln(6)
	}

	if len(report.Questions) > 0 {
		sectionTitle(pdf, "Questions")
		tableHeader(pdf, "Question")
		pdf.SetFont("Helvetica", "", 10)
		for _, q := range report.Questions {
			tableRow(pdf, tr(q.Question), q.AverageScore, q.Responses)
		}
		pdf.Ln(6)
	}

	if len(report.OpenEnded) > 0 {
		sectionTitle(pdf, "Written feedback")
		for _, group := range report.OpenEnded {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.MultiCell(pageWidth, 6, tr(group.Question), "", "L", false)
			pdf.SetFont("Helvetica", "", 10)
			for _, answer := range group.Answers {
				pdf.MultiCell(pageWidth, 5, tr("- "+answer), "", "L", false)
			}
			pdf.Ln(3)
		}
	}

	return output(pdf, w)
}

func output(pdf *gofpdf.Fpdf, w io.Writer) error {
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func sectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(9)
}

func tableHeader(pdf *gofpdf.Fpdf, first string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(pageWidth-scoreColumn-countColumn, 7, first, "1", 0, "L", true, 0, "")
	pdf.CellFormat(scoreColumn, 7, "Average", "1", 0, "C", true, 0, "")
	pdf.CellFormat(countColumn, 7, "Answers", "1", 1, "C", true, 0, "")
}

func tableRow(pdf *gofpdf.Fpdf, label string, avg float64, responses int) {
	text := truncate(pdf, label, pageWidth-scoreColumn-countColumn-2)
	pdf.CellFormat(pageWidth-scoreColumn-countColumn, 7, text, "1", 0, "L", false, 0, "")
	pdf.CellFormat(scoreColumn, 7, fmt.Sprintf("%.2f", avg), "1", 0, "C", false, 0, "")
	pdf.CellFormat(countColumn, 7, fmt.Sprintf("%d", responses), "1", 1, "C", false, 0, "")
}

// truncate shortens s with an ellipsis until it fits width at the current font.
func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func categoryName(category string) string {
	return strings.ReplaceAll(category, "_", " ")
}

func labelSuffix(avg float64) string {
	if label := ScoreLabel(avg); label != "" {
		return "(" + label + ")"
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
