package service

import (
	"context"
	"sync"

	"codejudge/internal/common/mq"
	problemrepo "codejudge/internal/problem/repository"
	"codejudge/internal/submission/repository"
)

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	submissions map[string]*repository.Submission

	createErr  error
	getErr     error
	resolveErr error
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{submissions: make(map[string]*repository.Submission)}
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, submission *repository.Submission) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *submission
	f.submissions[submission.SubmissionID] = &clone
	return nil
}

func (f *fakeSubmissionRepo) GetByID(ctx context.Context, submissionID string) (*repository.Submission, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	submission, ok := f.submissions[submissionID]
	if !ok {
		return nil, repository.ErrSubmissionNotFound
	}
	clone := *submission
	return &clone, nil
}

func (f *fakeSubmissionRepo) Resolve(ctx context.Context, submissionID string, resolution repository.Resolution) (bool, error) {
	if f.resolveErr != nil {
		return false, f.resolveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	submission, ok := f.submissions[submissionID]
	if !ok || submission.State.Terminal() {
		return false, nil
	}
	submission.State = resolution.State
	submission.Verdict = resolution.Verdict
	submission.TimeTakenMS = &resolution.TimeTakenMS
	submission.MemoryUsedKB = &resolution.MemoryUsedKB
	submission.ErrorDetail = resolution.ErrorDetail
	return true, nil
}

func (f *fakeSubmissionRepo) get(submissionID string) *repository.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submissions[submissionID]
}

type fakeProblemRepo struct {
	problems map[int64]*problemrepo.Problem
	getErr   error
}

func newFakeProblemRepo(problems ...*problemrepo.Problem) *fakeProblemRepo {
	repo := &fakeProblemRepo{problems: make(map[int64]*problemrepo.Problem)}
	for _, p := range problems {
		repo.problems[p.ID] = p
	}
	return repo
}

func (f *fakeProblemRepo) GetByID(ctx context.Context, problemID int64) (*problemrepo.Problem, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	problem, ok := f.problems[problemID]
	if !ok {
		return nil, problemrepo.ErrProblemNotFound
	}
	return problem, nil
}

type publishedMessage struct {
	topic   string
	message *mq.Message
}

type fakeProducer struct {
	mu         sync.Mutex
	published  []publishedMessage
	publishErr error

	// onPublish runs inside Publish before the message is recorded.
	onPublish func(topic string, message *mq.Message)
}

func (f *fakeProducer) Publish(ctx context.Context, topic string, message *mq.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onPublish != nil {
		f.onPublish(topic, message)
	}
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishedMessage{topic: topic, message: message})
	return nil
}

func (f *fakeProducer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func (f *fakeProducer) last() publishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[len(f.published)-1]
}
