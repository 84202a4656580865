package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/report"
)

// ExportStatusLog writes last month's reservations and status changes to
// <reports dir>/status-log-YYYY-MM.xlsx.
func (jr *JobRunner) ExportStatusLog() {
	jr.runWithRecovery("ExportStatusLog", func() error {
		ctx := context.Background()

		today := jr.clock.Today()
		from := today.AddDate(0, 0, 1-today.Day()).AddDate(0, -1, 0)
		to := from.AddDate(0, 1, -1)

		reservations, err := jr.store.Reservations().List(ctx, domain.ReservationFilter{})
		if err != nil {
			return fmt.Errorf("list reservations: %w", err)
		}

		if err := os.MkdirAll(jr.config.Reports.Dir, 0o755); err != nil {
			return fmt.Errorf("create reports dir: %w", err)
		}
		path := filepath.Join(jr.config.Reports.Dir, fmt.Sprintf("status-log-%s.xlsx", from.Format("2006-01")))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		if err := report.WriteStatusLog(f, reservations, from, to, jr.clock.Location); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close report: %w", err)
		}

		logger.Info("Exported status log", "path", path, "from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"))
		jr.services.Notifier.Notify(ctx, domain.NotificationInfo, fmt.Sprintf("Status log for %s exported to %s", from.Format("January 2006"), path))
		return nil
	})
}
