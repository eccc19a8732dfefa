package runstore

import (
	"context"
	"database/sql"
	"time"

	"invoiceflow/lib/runstore/db"
)

// Store keeps a ledger of completed run summaries. it records
// statistics only, never scraping state: every run re-derives its
// order list from the storefront.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) (Store, error) {
	_, err := database.Exec(db.Schema)
	if err != nil {
		return Store{}, err
	}
	return Store{db: database}, nil
}

type Run struct {
	StartedAt          time.Time
	FinishedAt         time.Time
	Success            bool
	DownloadsSucceeded int
	DownloadsFailed    int
	ItemsProcessed     int
	AmountsRecognized  int
	ItemsMissingAmount int
	Errors             int
}

func (s Store) Push(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
			started_at, finished_at, success,
			downloads_succeeded, downloads_failed,
			items_processed, amounts_recognized, items_missing_amount,
			errors
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.Unix(),
		run.FinishedAt.Unix(),
		run.Success,
		run.DownloadsSucceeded,
		run.DownloadsFailed,
		run.ItemsProcessed,
		run.AmountsRecognized,
		run.ItemsMissingAmount,
		run.Errors,
	)
	return err
}

// List returns the most recent runs, newest first.
func (s Store) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT started_at, finished_at, success,
			downloads_succeeded, downloads_failed,
			items_processed, amounts_recognized, items_missing_amount,
			errors
		FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished int64
		err := rows.Scan(
			&started,
			&finished,
			&run.Success,
			&run.DownloadsSucceeded,
			&run.DownloadsFailed,
			&run.ItemsProcessed,
			&run.AmountsRecognized,
			&run.ItemsMissingAmount,
			&run.Errors,
		)
		if err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(started, 0)
		run.FinishedAt = time.Unix(finished, 0)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
