// Package report exports reservations and their status-change logs to xlsx.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/utils"
)

const (
	SheetReservations  = "Reservations"
	SheetStatusChanges = "StatusChanges"
)

var (
	reservationColumns = []string{"ID", "Resource", "Customer", "Email", "Phone", "Start", "End", "Days",
		"Daily Rate", "Total", "Status", "Created"}
	statusColumns = []string{"Reservation ID", "Resource", "From", "To", "Actor", "Changed At", "Notes"}
)

type sheetWriter struct {
	file  *excelize.File
	sheet string
	row   int
	bold  int
}

func (w *sheetWriter) header(columns []string) error {
	if err := w.write(toRow(columns)); err != nil {
		return err
	}
	start, _ := excelize.CoordinatesToCellName(1, 1)
	end, _ := excelize.CoordinatesToCellName(len(columns), 1)
	return w.file.SetCellStyle(w.sheet, start, end, w.bold)
}

func (w *sheetWriter) write(values []any) error {
	w.row++
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheet, cell, v); err != nil {
			return fmt.Errorf("write %s!%s: %w", w.sheet, cell, err)
		}
	}
	return nil
}

func toRow(columns []string) []any {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	return row
}

// WriteStatusLog writes every reservation whose window overlaps [from, to]
// plus every status change made in that range. Times are written in loc.
func WriteStatusLog(out io.Writer, reservations []domain.Reservation, from, to time.Time, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	from, to = utils.StartOfDay(from.In(loc)), utils.StartOfDay(to.In(loc))
	if to.Before(from) {
		return fmt.Errorf("end date must be >= start date")
	}
	until := to.AddDate(0, 0, 1)

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetSheetName("Sheet1", SheetReservations); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetStatusChanges); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetStatusChanges, err)
	}

	rs := &sheetWriter{file: f, sheet: SheetReservations, bold: bold}
	cs := &sheetWriter{file: f, sheet: SheetStatusChanges, bold: bold}
	if err := rs.header(reservationColumns); err != nil {
		return err
	}
	if err := cs.header(statusColumns); err != nil {
		return err
	}

	for i := range reservations {
		r := &reservations[i]
		if r.Overlaps(from, to) {
			err := rs.write([]any{r.ID, r.ResourceName, r.CustomerName, r.CustomerEmail, r.CustomerPhone,
				r.StartDate, r.EndDate, r.TotalDays, r.DailyRate, r.TotalAmount, string(r.Status),
				r.CreatedAt.In(loc).Format(time.DateTime)})
			if err != nil {
				return err
			}
		}
		for _, c := range r.StatusChangeLogs {
			at := c.ChangedAt.In(loc)
			if at.Before(from) || !at.Before(until) {
				continue
			}
			err := cs.write([]any{r.ID, r.ResourceName, string(c.OldStatus), string(c.NewStatus), c.Actor,
				at.Format(time.DateTime), c.Notes})
			if err != nil {
				return err
			}
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
