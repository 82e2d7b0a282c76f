// Package pdf renders report datasets as PDF documents with fpdf.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/leasewise/leasewise-backend/internal/reports"
	"github.com/leasewise/leasewise-backend/pkg/enums"
)

const (
	periodColumnWidth = 32.0
	rowHeight         = 7.0
	fontFamily        = "Helvetica"
)

// Renderer lays out a title block, one table with a column per selected
// metric, and a summary list with one line per selected metric.
type Renderer struct {
	brand string
	now   func() time.Time
}

func New(brand string, now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{brand: brand, now: now}
}

func (r *Renderer) Render(ctx context.Context, title string, rows []reports.PeriodRow, metrics []enums.ReportMetric) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cols := reports.ColumnsFor(metrics)
	if len(cols) == 0 {
		return nil, errors.New("no report metrics selected")
	}

	doc := fpdf.New("L", "mm", "A4", "")
	generated := r.now().UTC()
	doc.SetCreationDate(generated)
	doc.SetModificationDate(generated)
	doc.SetCatalogSort(true)
	doc.SetTitle(title, true)
	doc.SetCreator(r.brand, true)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.AddPage()
	doc.SetFont(fontFamily, "B", 16)
	doc.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	doc.SetFont(fontFamily, "", 10)
	doc.CellFormat(0, 6, tr(fmt.Sprintf("%s | generated %s", r.brand, generated.Format("02 Jan 2006 15:04 MST"))), "", 1, "L", false, 0, "")
	doc.Ln(4)

	pageWidth, _ := doc.GetPageSize()
	left, _, right, _ := doc.GetMargins()
	metricWidth := (pageWidth - left - right - periodColumnWidth) / float64(len(cols))

	doc.SetFont(fontFamily, "B", 10)
	doc.SetFillColor(230, 236, 245)
	doc.CellFormat(periodColumnWidth, rowHeight, "Period", "1", 0, "L", true, 0, "")
	for _, col := range cols {
		doc.CellFormat(metricWidth, rowHeight, tr(col.Header), "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont(fontFamily, "", 10)
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc.CellFormat(periodColumnWidth, rowHeight, row.Label(), "1", 0, "L", false, 0, "")
		for _, col := range cols {
			doc.CellFormat(metricWidth, rowHeight, tr(col.Value(row)), "1", 0, "R", false, 0, "")
		}
		doc.Ln(-1)
	}

	doc.Ln(6)
	doc.SetFont(fontFamily, "B", 12)
	doc.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
	doc.SetFont(fontFamily, "", 10)
	for _, col := range cols {
		doc.CellFormat(0, 6, tr(col.Summary(rows)), "", 1, "L", false, 0, "")
	}

	if doc.Err() {
		return nil, doc.Error()
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
