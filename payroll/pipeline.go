/*
pipeline.go - Ingestion state machine

PURPOSE:
  Drives one timefile submission from decoded rows to a replaced payroll
  report. One Run per uploaded file; runs are sequential internally and
  share nothing but the injected stores.

STATES:
  Receiving   -> rows are read one by one and validated as they arrive
  Validating  -> end-of-stream checks (report id present, rows present)
  Submitting  -> report id uniqueness check, then bulk insert
  Aggregating -> every stored record is read back and aggregated
  Replacing   -> the persisted report is replaced
  Done
  Aborted is reachable from every state.

REPORT ID ROW:
  The row whose date column holds "report id" carries the submission's
  report id in its hours worked column. It is not a time record.

CANCELLATION:
  Store calls use StoreTimeout. Once the bulk insert has been issued the
  run continues on a context detached from the caller, so a submission
  always ends committed (with a recomputed report) or rolled back.

SEE ALSO:
  - timefile.go: Insert and rollback protocol
  - aggregate.go: Report computation
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultStoreTimeout bounds every store call when no timeout is configured.
const DefaultStoreTimeout = 10 * time.Second

// =============================================================================
// STATES
// =============================================================================

// State is a step of a pipeline run.
type State int

const (
	StateReceiving State = iota
	StateValidating
	StateSubmitting
	StateAggregating
	StateReplacing
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateReceiving:
		return "receiving"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateAggregating:
		return "aggregating"
	case StateReplacing:
		return "replacing"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// =============================================================================
// PIPELINE
// =============================================================================

// Result describes a finished run.
type Result struct {
	RunID    string
	ReportID string
	Records  int
	Report   []PayrollRow
	State    State
	// AbortedIn is the state the run was in when it aborted.
	AbortedIn State
}

// Pipeline ingests timefiles and keeps the payroll report up to date.
type Pipeline struct {
	timefiles    *Timefiles
	reports      ReportStore
	log          zerolog.Logger
	storeTimeout time.Duration
}

// NewPipeline wires a pipeline over the given stores. A non-positive
// storeTimeout falls back to DefaultStoreTimeout.
func NewPipeline(timefiles TimefileStore, reports ReportStore, log zerolog.Logger, storeTimeout time.Duration) *Pipeline {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &Pipeline{
		timefiles:    NewTimefiles(timefiles, log),
		reports:      reports,
		log:          log,
		storeTimeout: storeTimeout,
	}
}

// Timefiles exposes the submission adapter used by the pipeline.
func (p *Pipeline) Timefiles() *Timefiles {
	return p.timefiles
}

// Report returns the persisted payroll report.
func (p *Pipeline) Report(ctx context.Context) ([]PayrollRow, error) {
	ctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()

	rows, err := p.reports.LoadReport(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("loading payroll report failed")
		return nil, storeFailure("load report", err)
	}
	return rows, nil
}

// run carries the state of a single submission.
type run struct {
	res *Result
	log zerolog.Logger
}

func (r *run) enter(s State) {
	r.res.State = s
	r.log.Debug().Stringer("state", s).Msg("pipeline state")
}

func (r *run) abort(err error) (*Result, error) {
	r.res.AbortedIn = r.res.State
	r.res.State = StateAborted

	ev := r.log.Warn()
	if !IsClientError(err) {
		ev = r.log.Error()
	}
	ev.Err(err).Stringer("aborted_in", r.res.AbortedIn).Str("report_id", r.res.ReportID).Msg("timefile rejected")
	return r.res, err
}

// Run ingests every row of src as one submission.
func (p *Pipeline) Run(ctx context.Context, src RowSource) (*Result, error) {
	id := uuid.NewString()
	r := &run{
		res: &Result{RunID: id},
		log: p.log.With().Str("run_id", id).Logger(),
	}

	r.enter(StateReceiving)
	reportID, records, err := receive(src)
	if err != nil {
		return r.abort(err)
	}
	r.res.ReportID = reportID
	r.res.Records = len(records)

	r.enter(StateValidating)
	if reportID == "" {
		return r.abort(&BadInputError{Err: errors.New("no report id row found")})
	}
	if len(records) == 0 {
		return r.abort(&BadInputError{Err: errors.New("file contains no time records")})
	}

	r.enter(StateSubmitting)
	var exists bool
	err = p.withTimeout(ctx, func(ctx context.Context) (err error) {
		exists, err = p.timefiles.ReportExists(ctx, reportID)
		return err
	})
	if err != nil {
		return r.abort(err)
	}
	if exists {
		return r.abort(&DuplicateReportError{ReportID: reportID})
	}

	// From here on the caller cannot cancel the run.
	detached := context.WithoutCancel(ctx)

	err = p.withTimeout(detached, func(ctx context.Context) error {
		return p.timefiles.Submit(ctx, reportID, records)
	})
	if err != nil {
		return r.abort(err)
	}

	r.enter(StateAggregating)
	var all []TimeRecord
	err = p.withTimeout(detached, func(ctx context.Context) (err error) {
		all, err = p.timefiles.All(ctx)
		return err
	})
	if err != nil {
		return r.abort(err)
	}
	report := Aggregate(all)

	r.enter(StateReplacing)
	err = p.withTimeout(detached, func(ctx context.Context) error {
		return p.reports.ReplaceReport(ctx, report)
	})
	if err != nil {
		r.log.Error().Err(err).Int("rows", len(report)).Msg("replacing payroll report failed")
		return r.abort(storeFailure("replace report", err))
	}

	r.res.Report = report
	r.enter(StateDone)
	r.log.Info().Str("report_id", reportID).Int("records", len(records)).Int("payroll_rows", len(report)).
		Msg("timefile ingested")
	return r.res, nil
}

func (p *Pipeline) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()
	return fn(ctx)
}

// receive reads src to the end, validating each row as it arrives. It stops
// at the first invalid row. The returned report id is empty when the file
// had no report id row.
func receive(src RowSource) (string, []TimeRecord, error) {
	var (
		reportID string
		records  []TimeRecord
	)

	for n := 1; ; n++ {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return reportID, records, nil
		}
		if err != nil {
			return "", nil, &BadInputError{Row: n, Err: err}
		}

		if row.IsReportIDRow() {
			if reportID != "" {
				return "", nil, &BadInputError{Row: n, Err: errors.New("more than one report id row")}
			}
			id, err := ValidateReportIDRow(row)
			if err != nil {
				return "", nil, &BadInputError{Row: n, Err: err}
			}
			reportID = id
			continue
		}

		if err := ValidateRow(row); err != nil {
			return "", nil, &BadInputError{Row: n, Err: err}
		}
		rec, err := NormalizeRow(row)
		if err != nil {
			return "", nil, &BadInputError{Row: n, Err: err}
		}
		records = append(records, rec)
	}
}
