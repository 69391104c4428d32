package load

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/gradstats/gradharvest/internal/derive"
	"github.com/gradstats/gradharvest/pkg/record"
)

const defaultSourceURL = "https://www.thegradcafe.com/survey/"

const defaultBatchSize = 1000

const insertSQL = `
	INSERT INTO applicants (
		program, comments, date_added, url,
		status, term, us_or_international,
		gpa, gre, gre_v, gre_aw, degree,
		llm_generated_program, llm_generated_university
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (comments, date_added, url) DO NOTHING
`

// Loader writes canonical records into the applicants table. Rows whose
// (comments, date_added, url) key already exists are skipped, so a
// re-run of the same input is a no-op.
type Loader struct {
	pool *pgxpool.Pool

	// SourceURL is recorded on every row as the listing origin.
	SourceURL string
	// BatchSize bounds how many inserts share one transaction.
	BatchSize int
}

// NewLoader builds a Loader over pool with default batching.
func NewLoader(pool *pgxpool.Pool) *Loader {
	return &Loader{
		pool:      pool,
		SourceURL: defaultSourceURL,
		BatchSize: defaultBatchSize,
	}
}

// Load inserts records and returns how many rows were actually written;
// conflict skips are excluded from the count. Commits happen per batch,
// so a failure mid-load keeps every fully committed batch and a re-run
// skips those rows via the unique constraint.
func (l *Loader) Load(ctx context.Context, records []record.Canonical) (int, error) {
	log.Info().Int("records", len(records)).Msg("Loading records into database")

	inserted := 0
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: opening transaction: %v", ErrStorageUnavailable, err)
	}

	for i, rec := range records {
		tag, err := tx.Exec(ctx, insertSQL, insertArgs(rec, l.SourceURL)...)
		if err != nil {
			tx.Rollback(ctx)
			return inserted, fmt.Errorf("%w: inserting row %d: %v", ErrStorageUnavailable, i, err)
		}
		inserted += int(tag.RowsAffected())

		if (i+1)%l.BatchSize == 0 {
			if err := tx.Commit(ctx); err != nil {
				return inserted, fmt.Errorf("%w: committing batch: %v", ErrStorageUnavailable, err)
			}
			log.Debug().Int("done", i+1).Int("inserted", inserted).Msg("Batch committed")
			if tx, err = l.pool.Begin(ctx); err != nil {
				return inserted, fmt.Errorf("%w: opening transaction: %v", ErrStorageUnavailable, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return inserted, fmt.Errorf("%w: committing final batch: %v", ErrStorageUnavailable, err)
	}

	log.Info().Int("inserted", inserted).Int("skipped", len(records)-inserted).Msg("Load complete")
	return inserted, nil
}

// insertArgs resolves one record into the applicants column values.
// Structured fields win; the pipe-delimited notes segments and keyword
// derivations back-fill what the record lacks.
func insertArgs(rec record.Canonical, sourceURL string) []any {
	notes := rec.Notes

	program := orDerived(rec.Program, derive.ProgramFromNotes(notes))
	university := orDerived(rec.School, derive.UniversityFromNotes(notes))
	status := orDerived(rec.Decision, derive.Status(notes))

	gre, greV, greAW := derive.GREParts(notes)

	return []any{
		program,
		notes,
		derive.Date(rec.DecisionDate),
		sourceURL,
		status,
		derive.Term(notes),
		derive.Nationality(notes),
		derive.ParseFloat(rec.GPA),
		gre,
		greV,
		greAW,
		derive.Degree(notes),
		program,
		university,
	}
}

// orDerived prefers the structured value, falling back to the derived
// one; both absent yields NULL.
func orDerived(value string, derived *string) *string {
	if value != "" {
		return &value
	}
	return derived
}
