package export

import (
	"bytes"
	"testing"
	"time"

	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteBookingsReport(t *testing.T) {
	start := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	bookings := []models.Booking{
		{ID: 1, ItemID: 7, BookerID: 2, Status: models.StatusApproved, Start: start, End: start.Add(48 * time.Hour)},
		{ID: 2, ItemID: 8, BookerID: 3, Status: models.StatusWaiting, Start: start.Add(72 * time.Hour), End: start.Add(96 * time.Hour)},
	}
	itemNames := map[int64]string{7: "drill"}

	var buf bytes.Buffer
	require.NoError(t, WriteBookingsReport(&buf, bookings, itemNames))
	require.NotZero(t, buf.Len())

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue(bookingsSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "ID", name)

	item, err := f.GetCellValue(bookingsSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "drill", item)

	status, err := f.GetCellValue(bookingsSheet, "D3")
	require.NoError(t, err)
	assert.Equal(t, "WAITING", status)

	// Unknown item id falls back to the raw id
	fallback, err := f.GetCellValue(bookingsSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "item 8", fallback)
}

func TestWriteBookingsReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBookingsReport(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
