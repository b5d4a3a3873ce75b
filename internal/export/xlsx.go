// Package export writes query results to Excel workbooks.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"roomfinder/internal/client"
	"roomfinder/internal/model"
)

// Workbook appends rows to sheets sequentially.
type Workbook struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func NewWorkbook() *Workbook {
	return &Workbook{file: excelize.NewFile()}
}

// AddSheet starts a new sheet and makes it current. Excel forbids some characters in
// sheet names and limits them to 31 characters; both are fixed up here.
func (w *Workbook) AddSheet(name string) error {
	name = strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")").Replace(name)
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes a bold header row.
func (w *Workbook) WriteHeader(columns []string) error {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	if err := w.WriteRow(row); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		start, _ := excelize.CoordinatesToCellName(1, w.currentRow-1)
		end, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow-1)
		_ = w.file.SetCellStyle(w.currentSheet, start, end, style)
	}
	return nil
}

func (w *Workbook) WriteRow(row []any) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}
	cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.currentSheet, cell, &row); err != nil {
		return err
	}
	w.currentRow++
	return nil
}

func (w *Workbook) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *Workbook) SaveToFile(path string) error {
	return w.file.SaveAs(path)
}

func (w *Workbook) Close() error {
	return w.file.Close()
}

// FreeRooms writes a rendered orchestrator view as one sheet.
func FreeRooms(wr io.Writer, v client.View) error {
	wb := NewWorkbook()
	defer wb.Close()

	title := "Free rooms"
	if v.Query != nil {
		title = fmt.Sprintf("%s %s", v.Query.Building, v.Query.Weekday)
	}
	if err := wb.AddSheet(title); err != nil {
		return err
	}
	if err := wb.WriteHeader([]string{"Room", "Weekday", "Free from", "Free until", "Last updated"}); err != nil {
		return err
	}
	for _, r := range v.Rows {
		if err := wb.WriteRow([]any{r.Interval.Room, string(r.Interval.Weekday), r.Start, r.End, r.LastUpdated}); err != nil {
			return err
		}
	}
	return wb.Save(wr)
}

// RoomSchedule writes one room's free slots for a weekday as one sheet.
func RoomSchedule(wr io.Writer, room string, weekday model.Weekday, slots []model.RoomSlot) error {
	wb := NewWorkbook()
	defer wb.Close()

	if err := wb.AddSheet(fmt.Sprintf("%s %s", room, weekday)); err != nil {
		return err
	}
	if err := wb.WriteHeader([]string{"Room", "Weekday", "Free from", "Free until"}); err != nil {
		return err
	}
	for _, s := range slots {
		if err := wb.WriteRow([]any{s.Room, string(s.Weekday), client.FormatClock(s.FreeStart), client.FormatClock(s.FreeEnd)}); err != nil {
			return err
		}
	}
	return wb.Save(wr)
}
