package service

import (
	"context"
	stderrors "errors"

	problemrepo "codejudge/internal/problem/repository"
	"codejudge/internal/submission/model"
	"codejudge/internal/submission/repository"
	"codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// GetStatus returns the client-facing view of a submission. While the
// submission is PENDING the view carries no verdict or metrics.
func (s *DispatchService) GetStatus(ctx context.Context, submissionID string) (*model.SubmissionView, error) {
	if submissionID == "" {
		return nil, errors.ValidationError("submission_id", "is required")
	}
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if stderrors.Is(err, repository.ErrSubmissionNotFound) {
			return nil, errors.Newf(errors.SubmissionNotFound, "submission %s not found", submissionID)
		}
		return nil, errors.Wrap(err, errors.DatabaseError)
	}

	view := &model.SubmissionView{
		ID:             submission.SubmissionID,
		State:          submission.State,
		ProblemID:      submission.ProblemID,
		Language:       submission.Language,
		SubmissionTime: submission.CreatedAt,
	}
	if submission.State.Terminal() {
		view.Verdict = submission.Verdict
		view.TimeTakenMS = submission.TimeTakenMS
		view.MemoryUsedKB = submission.MemoryUsedKB
		view.Error = submission.ErrorDetail
	}

	// Title is denormalized into the view, not the row. A lookup failure
	// degrades the view instead of failing the request.
	if problem, err := s.problems.GetByID(ctx, submission.ProblemID); err == nil {
		view.ProblemTitle = problem.Title
	} else if !stderrors.Is(err, problemrepo.ErrProblemNotFound) {
		logger.Warn(ctx, "problem title lookup failed",
			zap.Int64("problem_id", submission.ProblemID),
			zap.Error(err),
		)
	}
	return view, nil
}
