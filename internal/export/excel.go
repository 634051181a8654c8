// Package export renders operator reports as Excel workbooks.
package export

import (
	"fmt"

	"parkgate/internal/models"
	"parkgate/internal/timeutil"

	"github.com/xuri/excelize/v2"
)

const bookingsSheet = "Bookings"

var bookingHeaders = []string{
	"Reference", "Booking ID", "User", "Slot", "Location",
	"Start", "End", "Status", "Duration (h)", "Amount",
}

// BookingsReport builds a workbook with one row per booking and a totals
// line. The caller owns closing the returned file.
func BookingsReport(bookings []*models.Booking, slots []*models.Slot) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	locations := make(map[string]string, len(slots))
	for _, slot := range slots {
		locations[slot.ID] = slot.Location
	}

	for i, header := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, header)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err == nil {
		lastHeader, _ := excelize.CoordinatesToCellName(len(bookingHeaders), 1)
		_ = f.SetCellStyle(bookingsSheet, "A1", lastHeader, headerStyle)
	}

	var total float64
	for i, booking := range bookings {
		row := i + 2
		location := booking.SlotLocation
		if location == "" {
			location = locations[booking.SlotID]
		}

		values := []interface{}{
			booking.Reference,
			booking.ID,
			booking.UserID,
			booking.SlotID,
			location,
			timeutil.FormatTimestamp(booking.StartTime),
			timeutil.FormatTimestamp(booking.EndTime),
			string(booking.Status),
			booking.DurationHours,
			booking.TotalAmount,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(bookingsSheet, cell, value)
		}
		total += booking.TotalAmount
	}

	totalRow := len(bookings) + 2
	labelCell, _ := excelize.CoordinatesToCellName(len(bookingHeaders)-1, totalRow)
	valueCell, _ := excelize.CoordinatesToCellName(len(bookingHeaders), totalRow)
	_ = f.SetCellValue(bookingsSheet, labelCell, "Total")
	_ = f.SetCellValue(bookingsSheet, valueCell, timeutil.RoundMoney(total))

	_ = f.SetColWidth(bookingsSheet, "A", "B", 14)
	_ = f.SetColWidth(bookingsSheet, "C", "E", 20)
	_ = f.SetColWidth(bookingsSheet, "F", "G", 22)

	return f, nil
}
