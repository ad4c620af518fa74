package service

import (
	"context"
	stderrors "errors"
	"time"

	"codejudge/internal/auth"
	"codejudge/internal/common/mq"
	problemrepo "codejudge/internal/problem/repository"
	"codejudge/internal/submission/model"
	"codejudge/internal/submission/repository"
	"codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultJobTopic       = "judge.jobs"
	defaultMaxCodeBytes   = 64 * 1024
	defaultStoreTimeout   = 3 * time.Second
	defaultPublishTimeout = 5 * time.Second
)

var supportedLanguages = map[string]bool{
	"c":      true,
	"cpp":    true,
	"java":   true,
	"python": true,
	"go":     true,
}

// SubmitInput carries a submission request into the dispatcher.
type SubmitInput struct {
	ProblemID  int64
	Language   string
	SourceCode string
}

// SubmitOutput is returned to the caller after a successful dispatch.
type SubmitOutput struct {
	SubmissionID string
	State        model.State
}

// DispatchConfig tunes the dispatcher.
type DispatchConfig struct {
	JobTopic       string        `yaml:"jobTopic"`
	MaxCodeBytes   int           `yaml:"maxCodeBytes"`
	StoreTimeout   time.Duration `yaml:"storeTimeout"`
	PublishTimeout time.Duration `yaml:"publishTimeout"`
}

// DispatchService accepts submissions, persists them, and publishes
// evaluation jobs. The PENDING row is always written before the job goes
// out, so every published job references a durable record.
type DispatchService struct {
	submissions repository.SubmissionRepository
	problems    problemrepo.ProblemRepository
	producer    mq.Producer
	cfg         DispatchConfig
}

// NewDispatchService creates a dispatch service.
func NewDispatchService(
	submissions repository.SubmissionRepository,
	problems problemrepo.ProblemRepository,
	producer mq.Producer,
	cfg DispatchConfig,
) *DispatchService {
	if cfg.JobTopic == "" {
		cfg.JobTopic = defaultJobTopic
	}
	if cfg.MaxCodeBytes <= 0 {
		cfg.MaxCodeBytes = defaultMaxCodeBytes
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	return &DispatchService{
		submissions: submissions,
		problems:    problems,
		producer:    producer,
		cfg:         cfg,
	}
}

// Submit validates the request, persists a PENDING submission, and
// publishes the evaluation job. A publish failure leaves the PENDING row
// in place and reports DispatchIncomplete with the submission id attached,
// so the caller can retry via Redispatch without losing the record.
func (s *DispatchService) Submit(ctx context.Context, principal auth.Principal, input SubmitInput) (*SubmitOutput, error) {
	if principal.UserID <= 0 {
		return nil, errors.New(errors.Unauthorized)
	}
	if input.ProblemID <= 0 {
		return nil, errors.ValidationError("problem_id", "must be positive")
	}
	if input.Language == "" {
		return nil, errors.ValidationError("language", "is required")
	}
	if !supportedLanguages[input.Language] {
		return nil, errors.ValidationError("language", "is not supported")
	}
	if input.SourceCode == "" {
		return nil, errors.ValidationError("code", "is required")
	}
	if len(input.SourceCode) > s.cfg.MaxCodeBytes {
		return nil, errors.Newf(errors.CodeTooLarge, "code exceeds %d bytes", s.cfg.MaxCodeBytes)
	}

	problem, err := s.problems.GetByID(ctx, input.ProblemID)
	if err != nil {
		if stderrors.Is(err, problemrepo.ErrProblemNotFound) {
			return nil, errors.Newf(errors.ProblemNotFound, "problem %d not found", input.ProblemID)
		}
		return nil, errors.Wrap(err, errors.DatabaseError)
	}

	submission := &repository.Submission{
		SubmissionID: uuid.NewString(),
		ProblemID:    problem.ID,
		UserID:       principal.UserID,
		Username:     principal.Username,
		Language:     input.Language,
		SourceCode:   input.SourceCode,
		State:        model.StatePending,
		CreatedAt:    time.Now(),
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	err = s.submissions.Create(storeCtx, submission)
	cancel()
	if err != nil {
		return nil, errors.Wrap(err, errors.SubmissionCreateFailed)
	}

	if err := s.publishJob(ctx, submission, problem); err != nil {
		logger.Error(ctx, "job publish failed, submission left pending",
			zap.String("submission_id", submission.SubmissionID),
			zap.Error(err),
		)
		return nil, errors.Wrap(err, errors.QueueUnavailable).
			WithDetail("submission_id", submission.SubmissionID)
	}

	logger.Info(ctx, "submission dispatched",
		zap.String("submission_id", submission.SubmissionID),
		zap.Int64("problem_id", problem.ID),
		zap.String("language", input.Language),
	)
	return &SubmitOutput{
		SubmissionID: submission.SubmissionID,
		State:        model.StatePending,
	}, nil
}

// Redispatch republishes the evaluation job for a submission whose
// original publish failed. It refuses submissions that already reached a
// terminal state. Republishing one that was in fact delivered is safe:
// the reconciler collapses duplicate results into a single transition.
func (s *DispatchService) Redispatch(ctx context.Context, submissionID string) error {
	if submissionID == "" {
		return errors.ValidationError("submission_id", "is required")
	}
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if stderrors.Is(err, repository.ErrSubmissionNotFound) {
			return errors.Newf(errors.SubmissionNotFound, "submission %s not found", submissionID)
		}
		return errors.Wrap(err, errors.DatabaseError)
	}
	if submission.State != model.StatePending {
		return errors.Newf(errors.InvalidParams, "submission %s is already %s", submissionID, submission.State)
	}

	problem, err := s.problems.GetByID(ctx, submission.ProblemID)
	if err != nil {
		return errors.Wrap(err, errors.DatabaseError)
	}

	if err := s.publishJob(ctx, submission, problem); err != nil {
		return errors.Wrap(err, errors.QueueUnavailable).
			WithDetail("submission_id", submissionID)
	}
	logger.Info(ctx, "submission redispatched", zap.String("submission_id", submissionID))
	return nil
}

func (s *DispatchService) publishJob(ctx context.Context, submission *repository.Submission, problem *problemrepo.Problem) error {
	job := &model.JobMessage{
		SchemaVersion:    model.JobSchemaVersion,
		SubmissionID:     submission.SubmissionID,
		Code:             submission.SourceCode,
		Language:         submission.Language,
		ProblemID:        problem.ID,
		TimeLimitSeconds: problem.TimeLimitSeconds,
		MemoryLimitMB:    problem.MemoryLimitMB,
		TestCaseCount:    problem.TestCaseCount,
	}
	body, err := job.Encode()
	if err != nil {
		return err
	}
	message := mq.NewMessage(body)
	message.ID = submission.SubmissionID

	publishCtx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
	defer cancel()
	return s.producer.Publish(publishCtx, s.cfg.JobTopic, message)
}
