package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"github.com/homefront-realty/admin-backoffice/internal/model"
)

// Format is an export artifact type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// ErrUnsupportedFormat is returned for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatCSV, FormatXLSX, FormatPDF, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

// Filename returns conversations-<unix seconds>.<ext>.
func Filename(f Format, now time.Time) string {
	return fmt.Sprintf("conversations-%d.%s", now.Unix(), f)
}

// Render produces the artifact for rows entirely in memory. On error no bytes are
// returned.
func Render(f Format, rows []model.Conversation, now time.Time) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch f {
	case FormatCSV:
		out, err = CSV(rows)
	case FormatXLSX:
		out, err = XLSX(rows)
	case FormatPDF:
		out, err = PDF(rows, now)
	case FormatHTML:
		out, err = HTML(rows, now)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s export: %w", f, err)
	}
	return out, nil
}

// CSV renders rows as RFC 4180 CSV with a header line.
func CSV(rows []model.Conversation) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Headers()); err != nil {
		return nil, err
	}
	for i := range rows {
		if err := w.Write(Record(&rows[i])); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const sheetName = "Conversations"

// XLSX renders rows as a single-sheet workbook. Numeric columns are numeric cells.
func XLSX(rows []model.Conversation) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F4E79"}},
	})
	if err != nil {
		return nil, err
	}

	for i, col := range Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, col.Header); err != nil {
			return nil, err
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheetName, name, name, col.Width); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, err
	}

	for r := range rows {
		for i, col := range Columns {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, col.Value(&rows[r])); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PDF renders rows as a landscape A3 table with the header repeated on every page.
func PDF(rows []model.Conversation, now time.Time) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A3", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	const lineHeight = 6.0

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("Conversations export - %s - %d rows",
			now.UTC().Format("2006-01-02 15:04 MST"), len(rows))), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "B", 7)
		pdf.SetFillColor(31, 78, 121)
		pdf.SetTextColor(255, 255, 255)
		for _, col := range Columns {
			pdf.CellFormat(col.Width, lineHeight, tr(col.Header), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 7)
	for i := range rows {
		fill := i%2 == 1
		pdf.SetFillColor(242, 242, 242)
		for _, col := range Columns {
			v := tr(format(col.Value(&rows[i])))
			align := "L"
			if _, numeric := col.Value(&rows[i]).(float64); numeric {
				align = "R"
			}
			pdf.CellFormat(col.Width, lineHeight, fit(pdf, v, col.Width-2), "1", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	if pdf.Err() {
		return nil, pdf.Error()
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fit truncates s with an ellipsis so it renders within width.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

var printTemplate = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Conversations export</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 10px; margin: 16px; }
h1 { font-size: 16px; margin: 0 0 8px; }
p.meta { color: #555; margin: 0 0 12px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #999; padding: 3px 4px; text-align: left; vertical-align: top; }
th { background: #1f4e79; color: #fff; }
tr:nth-child(even) td { background: #f2f2f2; }
@page { size: A3 landscape; margin: 10mm; }
@media print { thead { display: table-header-group; } }
</style>
</head>
<body>
<h1>Conversations export</h1>
<p class="meta">Generated {{.Generated}} &middot; {{len .Rows}} rows</p>
<table>
<thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

// HTML renders the print view: a static document with a fixed inline stylesheet.
func HTML(rows []model.Conversation, now time.Time) ([]byte, error) {
	data := struct {
		Generated string
		Headers   []string
		Rows      [][]string
	}{
		Generated: now.UTC().Format("2006-01-02 15:04 MST"),
		Headers:   Headers(),
		Rows:      make([][]string, len(rows)),
	}
	for i := range rows {
		data.Rows[i] = Record(&rows[i])
	}

	var buf bytes.Buffer
	if err := printTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
