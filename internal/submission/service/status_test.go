package service

import (
	"context"
	"testing"

	"codejudge/internal/submission/model"
	"codejudge/internal/submission/repository"
	pkgerrors "codejudge/pkg/errors"
)

func TestGetStatusPendingHidesVerdict(t *testing.T) {
	submissions := newFakeSubmissionRepo()
	_ = submissions.Create(context.Background(), pendingSubmission("sub-1"))
	dispatch := newTestDispatch(submissions, &fakeProducer{})

	view, err := dispatch.GetStatus(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if view.State != model.StatePending {
		t.Fatalf("state = %s, want PENDING", view.State)
	}
	if view.Verdict != "" || view.TimeTakenMS != nil || view.MemoryUsedKB != nil {
		t.Fatal("pending view must not expose verdict or metrics")
	}
	if view.ProblemTitle != "Two Sum" {
		t.Fatalf("problem title = %q", view.ProblemTitle)
	}
}

func TestGetStatusResolvedExposesOutcome(t *testing.T) {
	submissions := newFakeSubmissionRepo()
	_ = submissions.Create(context.Background(), pendingSubmission("sub-2"))
	won, err := submissions.Resolve(context.Background(), "sub-2", repository.Resolution{
		State:        model.StateCompleted,
		Verdict:      model.VerdictAccepted,
		TimeTakenMS:  77,
		MemoryUsedKB: 1024,
	})
	if err != nil || !won {
		t.Fatalf("setup resolve: won=%v err=%v", won, err)
	}
	dispatch := newTestDispatch(submissions, &fakeProducer{})

	view, err := dispatch.GetStatus(context.Background(), "sub-2")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if view.State != model.StateCompleted || view.Verdict != model.VerdictAccepted {
		t.Fatalf("view = %+v", view)
	}
	if view.TimeTakenMS == nil || *view.TimeTakenMS != 77 {
		t.Fatal("resolved view must expose time taken")
	}
	if view.MemoryUsedKB == nil || *view.MemoryUsedKB != 1024 {
		t.Fatal("resolved view must expose memory used")
	}
}

func TestGetStatusUnknownSubmission(t *testing.T) {
	dispatch := newTestDispatch(newFakeSubmissionRepo(), &fakeProducer{})
	_, err := dispatch.GetStatus(context.Background(), "missing")
	if pkgerrors.GetCode(err) != pkgerrors.SubmissionNotFound {
		t.Fatalf("code = %d, want SubmissionNotFound", pkgerrors.GetCode(err))
	}
}

func TestGetStatusSurvivesMissingProblem(t *testing.T) {
	submissions := newFakeSubmissionRepo()
	submission := pendingSubmission("sub-3")
	submission.ProblemID = 999
	_ = submissions.Create(context.Background(), submission)
	dispatch := newTestDispatch(submissions, &fakeProducer{})

	view, err := dispatch.GetStatus(context.Background(), "sub-3")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if view.ProblemTitle != "" {
		t.Fatalf("problem title = %q, want empty when lookup fails", view.ProblemTitle)
	}
}
