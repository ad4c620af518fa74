package service

import (
	"context"
	stderrors "errors"

	"codejudge/internal/common/mq"
	"codejudge/internal/submission/model"
	"codejudge/internal/submission/repository"
	"codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// ReconcileService consumes judge results and applies the terminal
// transition to the matching submission. Delivery is at least once, so
// every path here must be idempotent.
type ReconcileService struct {
	submissions repository.SubmissionRepository
}

// NewReconcileService creates a reconcile service.
func NewReconcileService(submissions repository.SubmissionRepository) *ReconcileService {
	return &ReconcileService{submissions: submissions}
}

// HandleResult processes one result delivery.
//
// The return value drives redelivery: nil acknowledges the message, an
// error requests redelivery. Malformed payloads and results for unknown
// submissions are logged and acknowledged, since redelivering them can
// never succeed. Transient store failures are returned so the broker
// retries the delivery.
func (s *ReconcileService) HandleResult(ctx context.Context, message *mq.Message) error {
	result, err := model.DecodeResultMessage(message.Body)
	if err != nil {
		logger.Warn(ctx, "dropping undecodable result",
			zap.Int("code", int(errors.ResultDecodeFailed)),
			zap.Error(err),
		)
		return nil
	}

	submission, err := s.submissions.GetByID(ctx, result.ID)
	if err != nil {
		if stderrors.Is(err, repository.ErrSubmissionNotFound) {
			logger.Warn(ctx, "dropping result for unknown submission",
				zap.Int("code", int(errors.ResultProtocolViolation)),
				zap.String("submission_id", result.ID),
			)
			return nil
		}
		return errors.Wrap(err, errors.DatabaseError)
	}

	if submission.State.Terminal() {
		logger.Debug(ctx, "duplicate result for resolved submission",
			zap.String("submission_id", result.ID),
			zap.String("state", string(submission.State)),
		)
		return nil
	}

	resolution := buildResolution(result)
	won, err := s.submissions.Resolve(ctx, result.ID, resolution)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}
	if !won {
		// A concurrent delivery resolved it first. Nothing left to do.
		logger.Debug(ctx, "lost resolve race", zap.String("submission_id", result.ID))
		return nil
	}

	logger.Info(ctx, "submission reconciled",
		zap.String("submission_id", result.ID),
		zap.String("state", string(resolution.State)),
		zap.String("verdict", string(resolution.Verdict)),
	)
	return nil
}

// buildResolution maps a wire result onto a terminal transition. A worker
// that reports an evaluation error produced no trustworthy verdict, so
// the submission is FAILED whatever verdict the payload carries.
func buildResolution(result *model.ResultMessage) repository.Resolution {
	state := model.StateCompleted
	if result.Failed() {
		state = model.StateFailed
	}
	return repository.Resolution{
		State:        state,
		Verdict:      model.Verdict(result.Verdict),
		TimeTakenMS:  result.TimeMS,
		MemoryUsedKB: result.MemoryKB,
		ErrorDetail:  result.Error,
	}
}
