package bulk_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mgajardo/backdesk/internal/bulk"
	"github.com/mgajardo/backdesk/internal/domain/customer"
	"github.com/mgajardo/backdesk/internal/domain/session"
	"github.com/mgajardo/backdesk/internal/outcome"
	"github.com/mgajardo/backdesk/internal/remote"
	"github.com/mgajardo/backdesk/internal/remote/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct{ authed bool }

func (f fakeSessions) Current() (remote.Identity, bool) {
	return remote.Identity{ID: 7, Email: "ana@example.com"}, f.authed
}

type recordingSink struct {
	mu      sync.Mutex
	reports []string
}

func (s *recordingSink) Report(kind outcome.Kind, title, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, string(kind)+": "+title)
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateCache() { c.calls++ }

func writeImportFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestEngine_Preview_ThreeRowExample(t *testing.T) {
	api := &mocks.Directory{}
	// Preview is local, it works without a session.
	engine := bulk.NewEngine(api, fakeSessions{authed: false}, nil, nil, nil)
	path := writeImportFile(t, "clientes.csv", threeRowFile)

	first, err := engine.Preview(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, bulk.ModePreview, first.Mode)
	require.Equal(t, 3, first.RowsScanned)
	require.Equal(t, 0, first.ImportedCount)
	require.Len(t, first.RowErrors, 2)
	require.Equal(t, 3, first.RowErrors[0].Row)
	require.Equal(t, 4, first.RowErrors[1].Row)

	second, err := engine.Preview(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, first, second)

	api.AssertNotCalled(t, "ImportCSV", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_Preview_FileProblems(t *testing.T) {
	engine := bulk.NewEngine(&mocks.Directory{}, fakeSessions{authed: true}, nil, nil, nil)
	ctx := context.Background()

	var verr *customer.ValidationError

	_, err := engine.Preview(ctx, "")
	require.True(t, errors.As(err, &verr))

	_, err = engine.Preview(ctx, filepath.Join(t.TempDir(), "missing.csv"))
	require.True(t, errors.As(err, &verr))
	require.Contains(t, verr.FieldMessages()["file"], "cannot be read")

	_, err = engine.Preview(ctx, writeImportFile(t, "empty.csv", "  \n\n"))
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "is empty", verr.FieldMessages()["file"])
}

func TestEngine_Commit_ShipsFileAndReconciles(t *testing.T) {
	ctx := context.Background()
	api := &mocks.Directory{}
	api.On("ImportCSV", ctx, "clientes.csv", []byte(threeRowFile)).Return(remote.ImportResult{
		Rows:     3,
		Imported: 1,
		Errors: []remote.ImportRowError{
			{Row: 3, Field: "email", Message: "is required"},
			{Row: 4, Field: "email", Message: "duplicates row 2 in this file"},
		},
	}, nil)

	sink := &recordingSink{}
	caches := &countingInvalidator{}
	engine := bulk.NewEngine(api, fakeSessions{authed: true}, caches, sink, nil)
	path := writeImportFile(t, "clientes.csv", threeRowFile)

	report, err := engine.Commit(ctx, path)
	require.NoError(t, err)
	require.Equal(t, bulk.ModeCommit, report.Mode)
	require.Equal(t, 3, report.RowsScanned)
	require.Equal(t, 1, report.ImportedCount)
	require.Len(t, report.RowErrors, 2)
	require.Equal(t, 3, report.RowErrors[0].Row)
	require.Equal(t, 4, report.RowErrors[1].Row)

	require.Equal(t, 1, caches.calls)
	require.Equal(t, []string{"success: customer import committed"}, sink.reports)
	api.AssertExpectations(t)
}

func TestEngine_Commit_RequiresSession(t *testing.T) {
	api := &mocks.Directory{}
	engine := bulk.NewEngine(api, fakeSessions{authed: false}, nil, nil, nil)
	path := writeImportFile(t, "clientes.csv", threeRowFile)

	_, err := engine.Commit(context.Background(), path)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	api.AssertNotCalled(t, "ImportCSV", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_Commit_FileProblemBeforeNetwork(t *testing.T) {
	api := &mocks.Directory{}
	sink := &recordingSink{}
	engine := bulk.NewEngine(api, fakeSessions{authed: true}, nil, sink, nil)
	path := writeImportFile(t, "clientes.csv", "first_name,email\nAna,ana@example.com\n")

	_, err := engine.Commit(context.Background(), path)

	var verr *customer.ValidationError
	require.True(t, errors.As(err, &verr))
	api.AssertNotCalled(t, "ImportCSV", mock.Anything, mock.Anything, mock.Anything)
	require.Empty(t, sink.reports)
}

func TestEngine_Commit_ServiceFailureReported(t *testing.T) {
	ctx := context.Background()
	api := &mocks.Directory{}
	cause := &remote.TransportError{Op: "POST /customers/import", Err: errors.New("connection reset")}
	api.On("ImportCSV", ctx, mock.Anything, mock.Anything).Return(remote.ImportResult{}, cause)

	sink := &recordingSink{}
	caches := &countingInvalidator{}
	engine := bulk.NewEngine(api, fakeSessions{authed: true}, caches, sink, nil)
	path := writeImportFile(t, "clientes.csv", threeRowFile)

	_, err := engine.Commit(ctx, path)

	var terr *remote.TransportError
	require.True(t, errors.As(err, &terr))
	require.Equal(t, 0, caches.calls)
	require.Equal(t, []string{"failure: customer import failed"}, sink.reports)
}

func TestEngine_Commit_KeepsServerOnlyRowErrors(t *testing.T) {
	file := "first_name,last_name,email,phone,tax_id,status\n" +
		"Ana,Reyes,ana@example.com,123456,,active\n" +
		"Bruno,Silva,bruno@example.com,223344,,active\n"

	ctx := context.Background()
	api := &mocks.Directory{}
	api.On("ImportCSV", ctx, mock.Anything, mock.Anything).Return(remote.ImportResult{
		Rows:     2,
		Imported: 1,
		Errors:   []remote.ImportRowError{{Row: 3, Field: "email", Message: "conflicts with another customer"}},
	}, nil)

	engine := bulk.NewEngine(api, fakeSessions{authed: true}, nil, nil, nil)
	path := writeImportFile(t, "clientes.csv", file)

	report, err := engine.Commit(ctx, path)
	require.NoError(t, err)
	require.Equal(t, 1, report.ImportedCount)
	require.Len(t, report.RowErrors, 1)
	require.Equal(t, 3, report.RowErrors[0].Row)
	require.Equal(t, "conflicts with another customer", report.RowErrors[0].Message)
}

func TestEngine_Commit_MalformedServiceReport(t *testing.T) {
	file := "first_name,last_name,email,phone,tax_id,status\n" +
		"Ana,Reyes,ana@example.com,123456,,active\n"

	ctx := context.Background()
	api := &mocks.Directory{}
	api.On("ImportCSV", ctx, mock.Anything, mock.Anything).Return(remote.ImportResult{Rows: 1, Imported: 3}, nil)

	sink := &recordingSink{}
	caches := &countingInvalidator{}
	engine := bulk.NewEngine(api, fakeSessions{authed: true}, caches, sink, nil)
	path := writeImportFile(t, "clientes.csv", file)

	_, err := engine.Commit(ctx, path)

	var serr *remote.ServiceError
	require.True(t, errors.As(err, &serr))
	require.Contains(t, serr.Message, "does not reconcile")

	// Rows were written before the report came back wrong.
	require.Equal(t, 1, caches.calls)
	require.Equal(t, []string{"failure: customer import failed"}, sink.reports)
}

func TestEngine_SingleImportInFlight(t *testing.T) {
	ctx := context.Background()
	api := &mocks.Directory{}
	sink := &recordingSink{}
	engine := bulk.NewEngine(api, fakeSessions{authed: true}, nil, sink, nil)
	path := writeImportFile(t, "clientes.csv", "first_name,last_name,email,phone,tax_id,status\nAna,Reyes,ana@example.com,123456,,active\n")

	nested := false
	api.On("ImportCSV", ctx, mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		_, err := engine.Preview(ctx, path)
		require.ErrorIs(t, err, bulk.ErrImportInFlight)
		nested = true
	}).Return(remote.ImportResult{Rows: 1, Imported: 1}, nil)

	report, err := engine.Commit(ctx, path)
	require.NoError(t, err)
	require.True(t, nested)
	require.Equal(t, 1, report.ImportedCount)

	// The guard releases once the commit returns.
	_, err = engine.Preview(ctx, path)
	require.NoError(t, err)
}

func TestEngine_Export_WritesAfterFullRead(t *testing.T) {
	ctx := context.Background()
	payload := []byte("first_name,last_name,email,phone,tax_id,status\nAna,Reyes,ana@example.com,123456,,active\n")
	filter := customer.ListFilter{Status: customer.FilterActive}

	api := &mocks.Directory{}
	api.On("ExportCSV", ctx, filter).Return(payload, nil)

	sink := &recordingSink{}
	engine := bulk.NewEngine(api, fakeSessions{authed: true}, nil, sink, nil)

	var dst bytes.Buffer
	n, err := engine.ExportCSV(ctx, filter, &dst)
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), n)
	require.Equal(t, payload, dst.Bytes())
	require.Equal(t, []string{"success: customers exported"}, sink.reports)
}

func TestEngine_Export_FailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	api := &mocks.Directory{}
	cause := &remote.ServiceError{Status: 502, Message: "bad gateway"}
	api.On("ExportCSV", ctx, mock.Anything).Return(nil, cause)

	sink := &recordingSink{}
	engine := bulk.NewEngine(api, fakeSessions{authed: true}, nil, sink, nil)

	var dst bytes.Buffer
	n, err := engine.ExportCSV(ctx, customer.ListFilter{}, &dst)

	var serr *remote.ServiceError
	require.True(t, errors.As(err, &serr))
	require.Zero(t, n)
	require.Zero(t, dst.Len())
	require.Equal(t, []string{"failure: customer export failed"}, sink.reports)
}

func TestEngine_Export_RequiresSession(t *testing.T) {
	api := &mocks.Directory{}
	engine := bulk.NewEngine(api, fakeSessions{authed: false}, nil, nil, nil)

	var dst bytes.Buffer
	_, err := engine.ExportCSV(context.Background(), customer.ListFilter{}, &dst)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	api.AssertNotCalled(t, "ExportCSV", mock.Anything, mock.Anything)
}

func TestEngine_Export_UnauthorizedStaysQuiet(t *testing.T) {
	ctx := context.Background()
	api := &mocks.Directory{}
	api.On("ExportCSV", ctx, mock.Anything).Return(nil, remote.ErrUnauthorized)

	sink := &recordingSink{}
	engine := bulk.NewEngine(api, fakeSessions{authed: true}, nil, sink, nil)

	var dst bytes.Buffer
	_, err := engine.ExportCSV(ctx, customer.ListFilter{}, &dst)
	require.ErrorIs(t, err, remote.ErrUnauthorized)
	require.Empty(t, sink.reports)
}
