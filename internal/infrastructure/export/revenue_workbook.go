// Package export renders stored revenue into spreadsheet files.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/estatehub/backend/internal/domain/revenue"
)

const (
	SummarySheet  = "Summary"
	BookingsSheet = "Bookings"

	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	moneyFormat = "#,##0.00"
)

var (
	summaryHeader = []string{"Month", "Bookings", "Revenue", "Calculated At"}
	bookingHeader = []string{"Month", "Booking", "Listing", "Address", "Tenant", "Check-in", "Check-out", "Status", "Amount"}
	bookingWidths = []float64{10, 18, 28, 36, 22, 12, 12, 12, 14}
)

// RevenueWorkbook builds a two-sheet xlsx for one landlord and year.
// Summary always lists all twelve months; months without a stored
// record show zero.
func RevenueWorkbook(adminID uuid.UUID, year int, records []revenue.MonthlyRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(BookingsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[int]revenue.MonthlyRecord, len(records))
	for _, r := range records {
		if r.Year == year {
			byMonth[r.Month] = r
		}
	}

	if err := writeSummary(f, styles, adminID, year, byMonth); err != nil {
		return nil, err
	}
	if err := writeBookings(f, styles, year, byMonth); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName returns the attachment name used for a landlord's export.
func FileName(adminID uuid.UUID, year int) string {
	return fmt.Sprintf("revenue-%s-%d.xlsx", adminID.String()[:8], year)
}

type styles struct {
	header int
	money  int
	total  int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	border := []excelize.Border{
		{Type: "bottom", Color: "000000", Style: 1},
	}
	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return s, fmt.Errorf("header style: %w", err)
	}
	s.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: ptr(moneyFormat)})
	if err != nil {
		return s, fmt.Errorf("money style: %w", err)
	}
	s.total, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true},
		CustomNumFmt: ptr(moneyFormat),
	})
	if err != nil {
		return s, fmt.Errorf("total style: %w", err)
	}
	return s, nil
}

func writeSummary(f *excelize.File, st styles, adminID uuid.UUID, year int, byMonth map[int]revenue.MonthlyRecord) error {
	sh := SummarySheet
	if err := f.SetCellValue(sh, "A1", fmt.Sprintf("Revenue %d for landlord %s", year, adminID)); err != nil {
		return err
	}
	if err := writeHeader(f, sh, 3, summaryHeader, st.header); err != nil {
		return err
	}

	total := decimal.Zero
	count := 0
	for m := 1; m <= 12; m++ {
		row := m + 3
		rec, ok := byMonth[m]
		values := []any{fmt.Sprintf("%d-%02d", year, m), 0, 0.0, ""}
		if ok {
			values[1] = rec.BookingCount
			values[2] = rec.TotalRevenue.InexactFloat64()
			values[3] = rec.CalculatedAt.UTC().Format(time.RFC3339)
			total = total.Add(rec.TotalRevenue)
			count += rec.BookingCount
		}
		if err := writeRow(f, sh, row, values); err != nil {
			return err
		}
		if err := f.SetCellStyle(sh, cell(3, row), cell(3, row), st.money); err != nil {
			return err
		}
	}

	totalRow := 16
	if err := writeRow(f, sh, totalRow, []any{"Total", count, total.InexactFloat64()}); err != nil {
		return err
	}
	if err := f.SetCellStyle(sh, cell(1, totalRow), cell(3, totalRow), st.total); err != nil {
		return err
	}
	return setWidths(f, sh, []float64{12, 10, 16, 24})
}

func writeBookings(f *excelize.File, st styles, year int, byMonth map[int]revenue.MonthlyRecord) error {
	sh := BookingsSheet
	if err := writeHeader(f, sh, 1, bookingHeader, st.header); err != nil {
		return err
	}
	row := 2
	for m := 1; m <= 12; m++ {
		rec, ok := byMonth[m]
		if !ok {
			continue
		}
		for _, b := range rec.Bookings {
			ref := b.Code
			if ref == "" {
				ref = b.BookingID.String()
			}
			values := []any{
				fmt.Sprintf("%d-%02d", year, m), ref, b.ListingTitle, b.ListingAddress,
				b.TenantRef, b.CheckInDate, b.CheckOutDate, b.Status, b.TotalPrice.InexactFloat64(),
			}
			if err := writeRow(f, sh, row, values); err != nil {
				return err
			}
			amount := cell(len(values), row)
			if err := f.SetCellStyle(sh, amount, amount, st.money); err != nil {
				return err
			}
			row++
		}
	}
	if row > 2 {
		if err := f.AutoFilter(sh, "A1:"+cell(len(bookingHeader), row-1), nil); err != nil {
			return fmt.Errorf("bookings filter: %w", err)
		}
	}
	return setWidths(f, sh, bookingWidths)
}

func writeHeader(f *excelize.File, sheet string, row int, header []string, style int) error {
	values := make([]any, len(header))
	for i, h := range header {
		values[i] = h
	}
	if err := writeRow(f, sheet, row, values); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell(1, row), cell(len(header), row), style)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	if err := f.SetSheetRow(sheet, cell(1, row), &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func setWidths(f *excelize.File, sheet string, widths []float64) error {
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func ptr[T any](v T) *T { return &v }
