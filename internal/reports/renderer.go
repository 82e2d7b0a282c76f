package reports

import (
	"context"
	"fmt"

	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// Renderer turns a dataset into a document. Each selected metric contributes
// its own column; unselected metrics leave no trace in the layout.
type Renderer interface {
	Render(ctx context.Context, title string, rows []PeriodRow, metrics []enums.ReportMetric) ([]byte, error)
}

// RenderError wraps any failure while producing the document.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render report: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
