// Package bulk moves customer data in and out of the directory as CSV.
// Exports fetch the full filtered set in one shot. Imports run in two
// phases: a local preview that validates the file without any network
// traffic, and a commit that ships the same file for per-row upserts
// keyed by email.
package bulk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/mgajardo/backdesk/internal/domain/customer"
	"github.com/mgajardo/backdesk/internal/domain/session"
	"github.com/mgajardo/backdesk/internal/outcome"
	"github.com/mgajardo/backdesk/internal/remote"
)

// Engine performs CSV export and two-phase import. At most one import
// phase runs at a time; a second invocation fails with
// ErrImportInFlight instead of queueing.
type Engine struct {
	api      API
	sessions Sessions
	caches   Invalidator
	sink     outcome.Sink
	logger   *slog.Logger

	importing atomic.Bool
}

// NewEngine creates an Engine. caches and sink may be nil.
func NewEngine(api API, sessions Sessions, caches Invalidator, sink outcome.Sink, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		api:      api,
		sessions: sessions,
		caches:   caches,
		sink:     sink,
		logger:   logger,
	}
}

// Preview parses and validates the file at path without touching the
// network. Running it repeatedly on the same file yields the same
// report.
func (e *Engine) Preview(ctx context.Context, path string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !e.importing.CompareAndSwap(false, true) {
		return nil, ErrImportInFlight
	}
	defer e.importing.Store(false)

	_, data, err := readImportFile(path)
	if err != nil {
		return nil, err
	}
	scan, err := ParseCustomers(data)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("import preview",
		"file", path,
		"rows", scan.RowsScanned,
		"errors", len(scan.RowErrors),
		"skipped", scan.SkippedBlank)
	return &Report{
		Mode:         ModePreview,
		RowsScanned:  scan.RowsScanned,
		RowErrors:    scan.RowErrors,
		SkippedBlank: scan.SkippedBlank,
	}, nil
}

// Commit re-validates the file and ships it for per-row upserts keyed
// by email. A row failing at write time is recorded in the report and
// does not abort the rest. The returned report reconciles the service's
// accounting with the local scan.
func (e *Engine) Commit(ctx context.Context, path string) (*Report, error) {
	if _, ok := e.sessions.Current(); !ok {
		return nil, session.ErrNotAuthenticated
	}
	if !e.importing.CompareAndSwap(false, true) {
		return nil, ErrImportInFlight
	}
	defer e.importing.Store(false)

	name, data, err := readImportFile(path)
	if err != nil {
		return nil, err
	}
	scan, err := ParseCustomers(data)
	if err != nil {
		return nil, err
	}

	run := uuid.NewString()
	e.logger.Debug("import commit",
		"run", run,
		"file", name,
		"rows", scan.RowsScanned)

	result, err := e.api.ImportCSV(ctx, name, data)
	if err != nil {
		e.reportFailure("customer import failed", err)
		return nil, err
	}

	// The service re-scans the same bytes, so the counts should agree.
	if result.Rows != scan.RowsScanned {
		e.logger.Warn("import row counts disagree",
			"run", run,
			"local", scan.RowsScanned,
			"remote", result.Rows)
	}

	report := &Report{
		Mode:          ModeCommit,
		RowsScanned:   scan.RowsScanned,
		ImportedCount: result.Imported,
		RowErrors:     mergeRowErrors(scan.RowErrors, result.Errors),
		SkippedBlank:  scan.SkippedBlank,
	}

	// Rows were written server-side, cached listings are stale even if
	// the report below fails to reconcile.
	e.invalidate()
	if report.ImportedCount+len(report.RowErrors) > report.RowsScanned {
		err := &remote.ServiceError{Message: "import report does not reconcile with the submitted file"}
		e.reportFailure("customer import failed", err)
		return nil, err
	}

	e.reportSuccess("customer import committed",
		fmt.Sprintf("imported %d of %d rows from %s", report.ImportedCount, report.RowsScanned, name))
	return report, nil
}

// ExportCSV fetches the full matching set and writes it to dst. The
// body is read in full before a byte is written, so dst never holds a
// partial export. Returns the number of bytes written.
func (e *Engine) ExportCSV(ctx context.Context, filter customer.ListFilter, dst io.Writer) (int64, error) {
	if _, ok := e.sessions.Current(); !ok {
		return 0, session.ErrNotAuthenticated
	}

	data, err := e.api.ExportCSV(ctx, filter)
	if err != nil {
		e.reportFailure("customer export failed", err)
		return 0, err
	}
	n, err := dst.Write(data)
	if err != nil {
		e.reportFailure("customer export failed", err)
		return int64(n), fmt.Errorf("writing export: %w", err)
	}

	e.reportSuccess("customers exported", fmt.Sprintf("%d bytes", n))
	return int64(n), nil
}

// mergeRowErrors folds the local scan into the service report. The
// service entry wins when both flag the same row; rows only the local
// scan caught are kept so the report never understates the problems.
func mergeRowErrors(local []RowError, served []remote.ImportRowError) []RowError {
	merged := make(map[int]RowError, len(local)+len(served))
	for _, re := range served {
		merged[re.Row] = RowError{Row: re.Row, Field: re.Field, Message: re.Message}
	}
	for _, re := range local {
		if _, ok := merged[re.Row]; !ok {
			merged[re.Row] = re
		}
	}
	if len(merged) == 0 {
		return nil
	}
	out := make([]RowError, 0, len(merged))
	rows := make([]int, 0, len(merged))
	for row := range merged {
		rows = append(rows, row)
	}
	slices.Sort(rows)
	for _, row := range rows {
		out = append(out, merged[row])
	}
	return out
}

func readImportFile(path string) (string, []byte, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil, fileError("was not selected")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fileError("cannot be read: " + err.Error())
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", nil, fileError("is empty")
	}
	return filepath.Base(path), data, nil
}

func (e *Engine) invalidate() {
	if e.caches != nil {
		e.caches.InvalidateCache()
	}
}

func (e *Engine) reportSuccess(title, detail string) {
	if e.sink != nil {
		e.sink.Report(outcome.KindSuccess, title, detail)
	}
}

// reportFailure forwards a failure to the sink. Unauthorized is
// excluded: the session store already reports the expiry once.
func (e *Engine) reportFailure(title string, err error) {
	if e.sink == nil || errors.Is(err, remote.ErrUnauthorized) {
		return
	}
	e.sink.Report(outcome.KindFailure, title, err.Error())
}
