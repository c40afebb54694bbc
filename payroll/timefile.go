package payroll

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// =============================================================================
// TIMEFILES - Submission protocol on top of a TimefileStore
// =============================================================================

// Timefiles stores submitted timefiles and undoes a submission that hit the
// (employee id, date) uniqueness constraint.
type Timefiles struct {
	store TimefileStore
	log   zerolog.Logger
}

// NewTimefiles wraps store with the submission protocol.
func NewTimefiles(store TimefileStore, log zerolog.Logger) *Timefiles {
	return &Timefiles{store: store, log: log}
}

// ReportExists reports whether reportID was used by an earlier submission.
// Callers check this before Submit; the two calls are not atomic.
func (t *Timefiles) ReportExists(ctx context.Context, reportID string) (bool, error) {
	exists, err := t.store.ReportExists(ctx, reportID)
	if err != nil {
		t.log.Error().Err(err).Str("report_id", reportID).Msg("report id lookup failed")
		return false, storeFailure("check report id", err)
	}
	return exists, nil
}

// Submit tags records with reportID and inserts them in one operation.
//
// On a duplicate (employee id, date) every row carrying reportID is deleted
// before a *DuplicateKeyError is returned. A failed delete is logged and
// attached to that error but does not replace it. Any other insert error is
// returned as a StoreFailure without rollback.
func (t *Timefiles) Submit(ctx context.Context, reportID string, records []TimeRecord) error {
	tagged := make([]TimeRecord, len(records))
	for i, r := range records {
		r.ReportID = reportID
		tagged[i] = r
	}

	err := t.store.InsertTimeRecords(ctx, tagged)
	if err == nil {
		return nil
	}

	if !errors.Is(err, ErrDuplicateKey) {
		t.log.Error().Err(err).Str("report_id", reportID).Int("records", len(tagged)).
			Msg("timefile insert failed")
		return storeFailure("insert timefile", err)
	}

	t.log.Warn().Err(err).Str("report_id", reportID).Msg("duplicate employee hours, rolling back submission")

	dupErr := &DuplicateKeyError{ReportID: reportID, Err: err}
	removed, rbErr := t.store.DeleteReport(ctx, reportID)
	if rbErr != nil {
		t.log.Error().Err(rbErr).Str("report_id", reportID).Msg("rollback of timefile failed")
		dupErr.RollbackErr = rbErr
		return dupErr
	}

	t.log.Info().Str("report_id", reportID).Int64("removed", removed).Msg("timefile rolled back")
	return dupErr
}

// All returns every stored record ordered by employee id, then date.
func (t *Timefiles) All(ctx context.Context) ([]TimeRecord, error) {
	records, err := t.store.LoadTimeRecords(ctx)
	if err != nil {
		t.log.Error().Err(err).Msg("loading timefiles failed")
		return nil, storeFailure("load timefiles", err)
	}
	return records, nil
}

// ForReport returns the records submitted under reportID.
func (t *Timefiles) ForReport(ctx context.Context, reportID string) ([]TimeRecord, error) {
	records, err := t.store.LoadReportRecords(ctx, reportID)
	if err != nil {
		t.log.Error().Err(err).Str("report_id", reportID).Msg("loading report records failed")
		return nil, storeFailure("load report records", err)
	}
	return records, nil
}
