package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"codejudge/internal/common/db"
	"codejudge/internal/submission/model"
)

type stubDB struct {
	execQuery    string
	execArgs     []interface{}
	rowsAffected int64
	execErr      error
	row          db.Row
}

func (s *stubDB) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	return nil, errors.New("not implemented")
}

func (s *stubDB) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	if s.row != nil {
		return s.row
	}
	return errRow{err: sql.ErrNoRows}
}

func (s *stubDB) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	s.execQuery = query
	s.execArgs = args
	if s.execErr != nil {
		return nil, s.execErr
	}
	return stubResult{affected: s.rowsAffected}, nil
}

func (s *stubDB) Transaction(ctx context.Context, fn func(tx db.Transaction) error) error {
	return errors.New("not implemented")
}

func (s *stubDB) Ping(ctx context.Context) error { return nil }
func (s *stubDB) Close() error                   { return nil }

type stubResult struct {
	affected int64
}

func (r stubResult) LastInsertId() (int64, error) { return 0, nil }
func (r stubResult) RowsAffected() (int64, error) { return r.affected, nil }

type errRow struct {
	err error
}

func (r errRow) Scan(dest ...interface{}) error { return r.err }

func TestResolveGuardsOnPendingState(t *testing.T) {
	database := &stubDB{rowsAffected: 1}
	repo := NewSubmissionRepository(database)

	won, err := repo.Resolve(context.Background(), "sub-1", Resolution{
		State:        model.StateCompleted,
		Verdict:      model.VerdictAccepted,
		TimeTakenMS:  100,
		MemoryUsedKB: 2048,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !won {
		t.Fatal("one affected row means the transition won")
	}

	if !strings.Contains(database.execQuery, "state = ?") ||
		!strings.Contains(database.execQuery, "AND state = ?") {
		t.Fatalf("resolve must be a conditional update, got: %s", database.execQuery)
	}
	lastArg := database.execArgs[len(database.execArgs)-1]
	if lastArg != string(model.StatePending) {
		t.Fatalf("state guard arg = %v, want PENDING", lastArg)
	}
}

func TestResolveLosesWhenNoRowAffected(t *testing.T) {
	database := &stubDB{rowsAffected: 0}
	repo := NewSubmissionRepository(database)

	won, err := repo.Resolve(context.Background(), "sub-1", Resolution{
		State:   model.StateFailed,
		Verdict: model.VerdictInternalError,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if won {
		t.Fatal("zero affected rows means another transition already won")
	}
}

func TestResolveRejectsNonTerminalState(t *testing.T) {
	repo := NewSubmissionRepository(&stubDB{})
	if _, err := repo.Resolve(context.Background(), "sub-1", Resolution{State: model.StatePending}); err == nil {
		t.Fatal("resolving to PENDING must be rejected")
	}
}

func TestGetByIDMapsNoRows(t *testing.T) {
	repo := NewSubmissionRepository(&stubDB{})
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("err = %v, want ErrSubmissionNotFound", err)
	}
}

func TestCreateDefaultsToPending(t *testing.T) {
	database := &stubDB{}
	repo := NewSubmissionRepository(database)

	submission := &Submission{
		SubmissionID: "sub-1",
		ProblemID:    7,
		UserID:       42,
		Language:     "go",
		SourceCode:   "package main",
	}
	if err := repo.Create(context.Background(), submission); err != nil {
		t.Fatalf("create: %v", err)
	}
	if submission.State != model.StatePending {
		t.Fatalf("state = %s, want PENDING", submission.State)
	}
	if submission.CreatedAt.IsZero() {
		t.Fatal("created_at must be set")
	}
	if !strings.Contains(database.execQuery, "INSERT INTO submissions") {
		t.Fatalf("unexpected query: %s", database.execQuery)
	}
}
