// Package export serializes passbook rows for download.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"passbook/backend/internal/domain"
)

var ErrUnknownFormat = errors.New("unknown export format")

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
)

func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "html", "pdf", "print":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
}

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

func (f Format) Filename(base string) string {
	return base + "." + string(f)
}

// Document is everything an export needs.
type Document struct {
	Title       string
	Period      string
	GeneratedAt time.Time
	Rows        []domain.ExportRow
	Totals      domain.Totals
}

// Rows numbers entries from 1 in the order given.
func Rows(entries []domain.LedgerEntry) []domain.ExportRow {
	rows := make([]domain.ExportRow, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, domain.ExportRow{
			No:            i + 1,
			Date:          e.Date,
			Time:          e.Time,
			Description:   e.Description,
			PaymentMethod: string(e.PaymentMethod),
			Type:          string(e.Type),
			Amount:        e.Amount,
			Source:        e.Source.Name(),
		})
	}
	return rows
}

func Write(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, doc)
	case FormatXLSX:
		return WriteXLSX(w, doc)
	case FormatHTML:
		return WriteHTML(w, doc)
	}
	return ErrUnknownFormat
}

func WriteCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.ExportColumns); err != nil {
		return err
	}
	for _, r := range doc.Rows {
		record := []string{
			fmt.Sprint(r.No), r.Date, r.Time, r.Description, r.PaymentMethod, r.Type, r.Amount.StringFixed(2), r.Source,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "Passbook"

func WriteXLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("amount style: %w", err)
	}

	for col, title := range domain.ExportColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetName, "A1", "H1", bold); err != nil {
		return err
	}

	for i, r := range doc.Rows {
		row := i + 2
		values := []any{r.No, r.Date, r.Time, r.Description, r.PaymentMethod, r.Type, r.Amount.InexactFloat64(), r.Source}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
	}

	footer := len(doc.Rows) + 3
	summary := []struct {
		label string
		value float64
	}{
		{"Total Credit", doc.Totals.TotalCredit.InexactFloat64()},
		{"Total Debit", doc.Totals.TotalDebit.InexactFloat64()},
		{"Balance", doc.Totals.Balance.InexactFloat64()},
	}
	for i, s := range summary {
		row := footer + i
		if err := f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), s.label); err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), s.value); err != nil {
			return err
		}
	}
	last := footer + len(summary) - 1
	if err := f.SetCellStyle(sheetName, "G2", fmt.Sprintf("G%d", last), money); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "D", "D", 48); err != nil {
		return err
	}

	return f.Write(w)
}

// passbookHTML renders a printable statement. Browsers print it to PDF.
var passbookHTML = template.Must(template.New("passbook").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>{{.Title}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 12px; }
    td.num { text-align: right; }
    @media print { body { margin: 0; } }
  </style>
</head>
<body>
  <h2>{{.Title}}</h2>
  {{if .Period}}<p>Period: {{.Period}}</p>{{end}}
  <p>Generated: {{.GeneratedAt.Format "2006-01-02 15:04"}}</p>
  <p>Credit: {{.Totals.TotalCredit.StringFixed 2}} | Debit: {{.Totals.TotalDebit.StringFixed 2}} | Balance: {{.Totals.Balance.StringFixed 2}}</p>
  <table>
    <thead><tr><th>No</th><th>Date</th><th>Time</th><th>Description</th><th>Payment Method</th><th>Type</th><th>Amount</th><th>Source</th></tr></thead>
    <tbody>{{range .Rows}}<tr><td>{{.No}}</td><td>{{.Date}}</td><td>{{.Time}}</td><td>{{.Description}}</td><td>{{.PaymentMethod}}</td><td>{{.Type}}</td><td class="num">{{.Amount.StringFixed 2}}</td><td>{{.Source}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func WriteHTML(w io.Writer, doc Document) error {
	return passbookHTML.Execute(w, doc)
}
