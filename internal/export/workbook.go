package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"roomreserve/internal/models"
)

const (
	ScheduleSheet = "Schedule"
	BookingsSheet = "Bookings"
)

var listHeaders = []string{"ID", "Room", "Date", "Start", "End", "Representative", "Phone", "People", "Purpose", "Created"}

// FileName returns the download name for a period.
func FileName(from, to time.Time) string {
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", from.Format(models.DateLayout), to.Format(models.DateLayout))
}

// BookingsWorkbook builds a workbook with a room-by-date grid and a flat booking list.
// The caller closes the returned file.
func BookingsWorkbook(rooms []models.Room, bookings []models.Booking, from, to time.Time) (*excelize.File, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("export period ends before it starts: %s > %s",
			from.Format(models.DateLayout), to.Format(models.DateLayout))
	}

	f := excelize.NewFile()

	index, err := f.NewSheet(ScheduleSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeSchedule(f, rooms, bookings, from, to); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeList(f, bookings); err != nil {
		f.Close()
		return nil, err
	}

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func writeSchedule(f *excelize.File, rooms []models.Room, bookings []models.Booking, from, to time.Time) error {
	_ = f.SetCellValue(ScheduleSheet, "A1", fmt.Sprintf("Period: %s - %s",
		from.Format(models.DateLayout), to.Format(models.DateLayout)))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	roomStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	bookedStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FCE4D6"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	// Заголовки - даты
	dateCols := make(map[string]int)
	col := 2
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(ScheduleSheet, cell, d.Format("01/02 Mon"))
		_ = f.SetCellStyle(ScheduleSheet, cell, cell, headerStyle)
		dateCols[d.Format(models.DateLayout)] = col
		col++
	}
	lastCol := col - 1

	roomRows := make(map[string]int)
	for i, room := range rooms {
		row := 3 + i
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(ScheduleSheet, cell, fmt.Sprintf("%s (%d)", room.Name, room.Capacity))
		_ = f.SetCellStyle(ScheduleSheet, cell, cell, roomStyle)
		roomRows[room.ID] = row
	}

	grouped := make(map[string][]models.Booking)
	for _, b := range bookings {
		grouped[b.RoomID+"|"+b.Date] = append(grouped[b.RoomID+"|"+b.Date], b)
	}
	for key, list := range grouped {
		roomID, date, _ := strings.Cut(key, "|")
		row, okRow := roomRows[roomID]
		c, okCol := dateCols[date]
		if !okRow || !okCol {
			continue
		}
		sort.Slice(list, func(i, j int) bool { return list[i].StartTime < list[j].StartTime })

		lines := make([]string, len(list))
		for i, b := range list {
			lines[i] = fmt.Sprintf("%s-%s %s (%d)", b.StartTime, b.EndTime, b.RepresentativeName, b.NumberOfPeople)
		}
		cell, _ := excelize.CoordinatesToCellName(c, row)
		_ = f.SetCellValue(ScheduleSheet, cell, strings.Join(lines, "\n"))
		_ = f.SetCellStyle(ScheduleSheet, cell, cell, bookedStyle)
	}

	// Настраиваем ширину колонок
	_ = f.SetColWidth(ScheduleSheet, "A", "A", 25)
	if lastCol >= 2 {
		first, _ := excelize.ColumnNumberToName(2)
		last, _ := excelize.ColumnNumberToName(lastCol)
		_ = f.SetColWidth(ScheduleSheet, first, last, 22)
	}

	// Объединяем ячейку для заголовка периода
	if lastCol >= 2 {
		lastName, _ := excelize.ColumnNumberToName(lastCol)
		_ = f.MergeCell(ScheduleSheet, "A1", lastName+"1")
	}
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(ScheduleSheet, "A1", "A1", titleStyle)
	return nil
}

func writeList(f *excelize.File, bookings []models.Booking) error {
	if _, err := f.NewSheet(BookingsSheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	for i, h := range listHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(BookingsSheet, cell, h)
	}

	sorted := append([]models.Booking(nil), bookings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		if sorted[i].StartTime != sorted[j].StartTime {
			return sorted[i].StartTime < sorted[j].StartTime
		}
		return sorted[i].RoomID < sorted[j].RoomID
	})

	for i, b := range sorted {
		row := []interface{}{
			b.ID, b.RoomName, b.Date, b.StartTime, b.EndTime,
			b.RepresentativeName, b.PhoneNumber, b.NumberOfPeople, b.Purpose,
			b.CreatedAt.UTC().Format(time.RFC3339),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(BookingsSheet, cell, &row); err != nil {
			return fmt.Errorf("error writing booking row: %w", err)
		}
	}
	return nil
}
