package export

import (
	"fmt"
	"io"

	"shareit/internal/models"

	"github.com/xuri/excelize/v2"
)

const bookingsSheet = "Bookings"

var bookingHeaders = []string{
	"ID", "Item", "Booker ID", "Status", "Start", "End", "Created",
}

// WriteBookingsReport streams an xlsx report of the given bookings. itemNames
// resolves item ids to display names; unknown ids fall back to the raw id.
func WriteBookingsReport(w io.Writer, bookings []models.Booking, itemNames map[int64]string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		return fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, header)
		_ = f.SetCellStyle(bookingsSheet, cell, cell, headerStyle)
	}

	for i, booking := range bookings {
		row := i + 2
		itemName, ok := itemNames[booking.ItemID]
		if !ok {
			itemName = fmt.Sprintf("item %d", booking.ItemID)
		}

		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("A%d", row), booking.ID)
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("B%d", row), itemName)
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("C%d", row), booking.BookerID)
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("D%d", row), string(booking.Status))
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("E%d", row), booking.Start.Format("02.01.2006 15:04"))
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("F%d", row), booking.End.Format("02.01.2006 15:04"))
		_ = f.SetCellValue(bookingsSheet, fmt.Sprintf("G%d", row), booking.CreatedAt.Format("02.01.2006 15:04"))
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 10)
	_ = f.SetColWidth(bookingsSheet, "B", "B", 25)
	_ = f.SetColWidth(bookingsSheet, "C", "D", 12)
	_ = f.SetColWidth(bookingsSheet, "E", "G", 20)

	_ = f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing file: %v", err)
	}
	return nil
}
