package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"clinic/internal/availability"
)

// Professional is one professional's resolved availability for the workbook.
type Professional struct {
	ID       uuid.UUID
	Name     string
	TimeZone string
	Windows  []availability.BookableWindow
	Blocked  []availability.BlockedDate
}

var (
	windowColumns  = []string{"Professional", "Name", "Date", "Day", "Start", "End", "Duration", "Time zone"}
	blockedColumns = []string{"Professional", "Name", "Date", "Day", "Reason"}
	summaryColumns = []string{"Professional", "Name", "Windows", "Blocked days", "Total"}
)

// Workbook writes availability into an xlsx file with Summary, Windows and
// Blocked sheets.
type Workbook struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
	headerStyle  int
}

func NewWorkbook() *Workbook {
	return &Workbook{file: excelize.NewFile()}
}

// Write fills the workbook; professionals are ordered by name then id.
func (w *Workbook) Write(professionals []Professional) error {
	sorted := append([]Professional(nil), professionals...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	if err := w.addSheet("Summary", summaryColumns); err != nil {
		return err
	}
	for _, p := range sorted {
		total := availability.TotalDuration(p.Windows)
		if err := w.writeRow(p.ID.String(), p.Name, len(p.Windows), len(p.Blocked), availability.FormatDuration(total)); err != nil {
			return err
		}
	}

	if err := w.addSheet("Windows", windowColumns); err != nil {
		return err
	}
	for _, p := range sorted {
		for _, win := range p.Windows {
			err := w.writeRow(p.ID.String(), p.Name, win.Date.String(), win.Start.Weekday().String(),
				win.Start.Format("15:04"), win.End.Format("15:04"),
				availability.FormatDuration(win.Duration()), p.TimeZone)
			if err != nil {
				return err
			}
		}
	}

	if err := w.addSheet("Blocked", blockedColumns); err != nil {
		return err
	}
	for _, p := range sorted {
		for _, b := range p.Blocked {
			day := b.Date.In(time.UTC).Weekday().String()
			if err := w.writeRow(p.ID.String(), p.Name, b.Date.String(), day, b.Reason); err != nil {
				return err
			}
		}
	}
	return nil
}

// Save writes the xlsx bytes to wr.
func (w *Workbook) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *Workbook) SaveToFile(path string) error {
	return w.file.SaveAs(path)
}

func (w *Workbook) Close() error {
	return w.file.Close()
}

func (w *Workbook) addSheet(name string, columns []string) error {
	if w.currentSheet == "" {
		// Rename the default sheet
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
		style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("header style: %w", err)
		}
		w.headerStyle = style
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.currentSheet = name
	w.currentRow = 1

	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	if err := w.writeRow(row...); err != nil {
		return err
	}
	start, _ := excelize.CoordinatesToCellName(1, 1)
	end, _ := excelize.CoordinatesToCellName(len(columns), 1)
	return w.file.SetCellStyle(name, start, end, w.headerStyle)
}

func (w *Workbook) writeRow(values ...any) error {
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}
	w.currentRow++
	return nil
}
