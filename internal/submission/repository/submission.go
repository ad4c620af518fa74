package repository

import (
	"context"
	"errors"
	"time"

	"codejudge/internal/common/db"
	"codejudge/internal/submission/model"
)

var ErrSubmissionNotFound = errors.New("submission not found")

// Submission is the persistent record of one submission. SubmissionID is
// the externally visible identifier and the join key for judge results.
type Submission struct {
	SubmissionID string
	ProblemID    int64
	UserID       int64
	Username     string
	Language     string
	SourceCode   string
	State        model.State
	Verdict      model.Verdict
	TimeTakenMS  *int64
	MemoryUsedKB *int64
	ErrorDetail  string
	CreatedAt    time.Time
	ResolvedAt   *time.Time
}

// Resolution carries the terminal outcome applied to a pending submission.
type Resolution struct {
	State        model.State
	Verdict      model.Verdict
	TimeTakenMS  int64
	MemoryUsedKB int64
	ErrorDetail  string
}

// SubmissionRepository defines data access for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *Submission) error
	GetByID(ctx context.Context, submissionID string) (*Submission, error)
	// Resolve applies the terminal outcome iff the submission is still
	// PENDING. It returns false when another transition already won.
	Resolve(ctx context.Context, submissionID string, resolution Resolution) (bool, error)
}

// MySQLSubmissionRepository implements SubmissionRepository using MySQL.
type MySQLSubmissionRepository struct {
	db db.Database
}

// NewSubmissionRepository creates a submission repository.
func NewSubmissionRepository(database db.Database) SubmissionRepository {
	return &MySQLSubmissionRepository{db: database}
}

const submissionColumns = `submission_id, problem_id, user_id, username, language, source_code,
	state, verdict, time_taken_ms, memory_used_kb, error_detail, created_at, resolved_at`

// Create inserts a new PENDING submission record.
func (r *MySQLSubmissionRepository) Create(ctx context.Context, submission *Submission) error {
	if submission == nil {
		return errors.New("submission is nil")
	}
	if submission.SubmissionID == "" {
		return errors.New("submissionID is required")
	}
	if submission.State == "" {
		submission.State = model.StatePending
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now()
	}
	query := `INSERT INTO submissions
		(submission_id, problem_id, user_id, username, language, source_code, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(ctx, query,
		submission.SubmissionID,
		submission.ProblemID,
		submission.UserID,
		submission.Username,
		submission.Language,
		submission.SourceCode,
		string(submission.State),
		submission.CreatedAt,
	)
	return err
}

// GetByID retrieves a submission by its external identifier.
func (r *MySQLSubmissionRepository) GetByID(ctx context.Context, submissionID string) (*Submission, error) {
	if submissionID == "" {
		return nil, errors.New("submissionID is required")
	}
	query := "SELECT " + submissionColumns + " FROM submissions WHERE submission_id = ? LIMIT 1"
	row := r.db.QueryRow(ctx, query, submissionID)
	submission := &Submission{}
	var verdict, errorDetail *string
	if err := row.Scan(
		&submission.SubmissionID,
		&submission.ProblemID,
		&submission.UserID,
		&submission.Username,
		&submission.Language,
		&submission.SourceCode,
		&submission.State,
		&verdict,
		&submission.TimeTakenMS,
		&submission.MemoryUsedKB,
		&errorDetail,
		&submission.CreatedAt,
		&submission.ResolvedAt,
	); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	if verdict != nil {
		submission.Verdict = model.Verdict(*verdict)
	}
	if errorDetail != nil {
		submission.ErrorDetail = *errorDetail
	}
	return submission, nil
}

// Resolve performs the single permitted transition out of PENDING. The
// state guard in the WHERE clause makes concurrent deliveries of the same
// result race safely: exactly one update reports an affected row.
func (r *MySQLSubmissionRepository) Resolve(ctx context.Context, submissionID string, resolution Resolution) (bool, error) {
	if submissionID == "" {
		return false, errors.New("submissionID is required")
	}
	if !resolution.State.Terminal() {
		return false, errors.New("resolution state must be terminal")
	}
	query := `UPDATE submissions
		SET state = ?, verdict = ?, time_taken_ms = ?, memory_used_kb = ?, error_detail = ?, resolved_at = ?
		WHERE submission_id = ? AND state = ?`
	result, err := r.db.Exec(ctx, query,
		string(resolution.State),
		string(resolution.Verdict),
		resolution.TimeTakenMS,
		resolution.MemoryUsedKB,
		resolution.ErrorDetail,
		time.Now(),
		submissionID,
		string(model.StatePending),
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
