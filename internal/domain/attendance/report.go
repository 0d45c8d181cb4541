package attendance

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// WriteMonthlyReport renders one employee's attendance for month (YYYY-MM)
// as a PDF.
func (s *Service) WriteMonthlyReport(ctx context.Context, w io.Writer, employeeID, month string) error {
	from, to, err := MonthRange(month)
	if err != nil {
		return err
	}
	name, err := s.store.EmployeeName(ctx, employeeID)
	if err != nil {
		return err
	}
	summary, err := s.Summary(ctx, employeeID, from, to)
	if err != nil {
		return err
	}
	summary.EmployeeName = name
	records, err := s.store.ListRecords(ctx, Filter{EmployeeID: employeeID, From: from, To: to})
	if err != nil {
		return err
	}
	return renderReport(w, summary, records)
}

func renderReport(w io.Writer, summary Summary, records []Record) error {
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Attendance report", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Attendance report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", summary.EmployeeName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s", summary.From.Format("2006-01-02"), summary.To.Format("2006-01-02")))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Working days: %d  Present days: %d  Attendance: %d%%",
		summary.WorkingDays, summary.PresentDays, summary.Percentage))
	pdf.Ln(12)

	widths := []float64{35, 35, 35, 25, 60}
	headers := []string{"Date", "Check in", "Check out", "Hours", "Status"}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, rec := range records {
		status := rec.Status
		if rec.Regularized {
			status += " (regularized)"
		}
		cells := []string{
			rec.Date.Format("2006-01-02 Mon"),
			clock(rec.CheckIn),
			clock(rec.CheckOut),
			fmt.Sprintf("%.2f", rec.TotalHours),
			status,
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(records) == 0 {
		pdf.Cell(0, 8, "No attendance records in this period.")
	}

	return pdf.Output(w)
}

func clock(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("15:04")
}
