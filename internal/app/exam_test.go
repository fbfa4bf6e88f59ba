package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"talent-assessment-service/internal/app"
	"talent-assessment-service/internal/domain"
	"talent-assessment-service/internal/infra/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newExamFixture(t *testing.T, cfg app.ExamConfig) (*app.SessionManager, *app.Exam, *fakeClock) {
	t.Helper()
	ctx := context.Background()
	manager := newTestManager(memory.NewStore(), &stubGenerator{questions: threeQuestions()},
		&stubEvaluator{result: domain.Evaluation{Score: 77, Analysis: "Good"}})
	session, err := manager.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	resolved, err := manager.ResolveHandoffLink(app.HandoffLink("http://host/app", session.ID))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	clock := &fakeClock{now: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)}
	return manager, app.NewExamWithClock(manager, resolved, cfg, clock.Now), clock
}

func TestExamConsentGate(t *testing.T) {
	ctx := context.Background()
	manager, exam, clock := newExamFixture(t, app.ExamConfig{})

	if exam.Phase() != app.PhaseConsent {
		t.Fatalf("expected CONSENT, got %s", exam.Phase())
	}
	clock.Advance(10 * time.Minute)
	if exam.Remaining() != app.DefaultExamDuration {
		t.Fatalf("timer must not run before consent, remaining %s", exam.Remaining())
	}
	if _, err := exam.Answer("q1", "x"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected answer to be rejected before consent, got %v", err)
	}
	if _, err := exam.Next(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected navigation to be rejected before consent, got %v", err)
	}

	view, err := exam.Accept(ctx)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if view.Phase != app.PhaseInProgress || view.Question == nil || view.Question.ID != "q1" {
		t.Fatalf("unexpected view %+v", view)
	}
	if got, _ := manager.Get(exam.SessionID()); got.Status != domain.StatusInProgress {
		t.Fatalf("expected session IN_PROGRESS, got %s", got.Status)
	}
	if _, err := exam.Accept(ctx); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected second accept to fail, got %v", err)
	}
}

func TestExamCountdownFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	_, exam, clock := newExamFixture(t, app.ExamConfig{})
	if _, err := exam.Accept(ctx); err != nil {
		t.Fatalf("accept: %v", err)
	}

	clock.Advance(1500 * time.Millisecond)
	if got := exam.View().RemainingSeconds; got != 3599 {
		t.Fatalf("expected 3599 seconds, got %d", got)
	}

	clock.Advance(2 * time.Hour)
	if exam.Remaining() != 0 {
		t.Fatalf("expected remaining floored at zero, got %s", exam.Remaining())
	}

	view, submitted, err := exam.Tick(ctx)
	if err != nil || submitted {
		t.Fatalf("expiry must not auto-submit by default, submitted=%v err=%v", submitted, err)
	}
	if view.Phase != app.PhaseInProgress {
		t.Fatalf("expected exam still in progress, got %s", view.Phase)
	}
}

func TestExamAutoSubmitOnExpiry(t *testing.T) {
	ctx := context.Background()
	manager, exam, clock := newExamFixture(t, app.ExamConfig{Duration: time.Minute, AutoSubmitOnExpiry: true})
	if _, err := exam.Accept(ctx); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := exam.Answer("q1", "partial"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	clock.Advance(30 * time.Second)
	if _, submitted, _ := exam.Tick(ctx); submitted {
		t.Fatalf("submitted before expiry")
	}
	clock.Advance(31 * time.Second)
	view, submitted, err := exam.Tick(ctx)
	if err != nil || !submitted {
		t.Fatalf("expected auto-submit, submitted=%v err=%v", submitted, err)
	}
	if view.Phase != app.PhaseFinished {
		t.Fatalf("expected FINISHED, got %s", view.Phase)
	}
	got, _ := manager.Get(exam.SessionID())
	if got.Status != domain.StatusCompleted || got.Answers["q1"] != "partial" {
		t.Fatalf("unexpected stored session %+v", got)
	}
}

func TestExamNavigation(t *testing.T) {
	ctx := context.Background()
	_, exam, _ := newExamFixture(t, app.ExamConfig{})
	if _, err := exam.Accept(ctx); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := exam.Prev(); !errors.Is(err, domain.ErrNavigation) {
		t.Fatalf("expected no navigation before the first question, got %v", err)
	}
	if _, err := exam.Goto(2); !errors.Is(err, domain.ErrNavigation) {
		t.Fatalf("expected skipping ahead to fail, got %v", err)
	}
	if view, err := exam.Next(); err != nil || view.Index != 1 {
		t.Fatalf("next: index=%d err=%v", view.Index, err)
	}
	if view, err := exam.Next(); err != nil || view.Index != 2 {
		t.Fatalf("next: index=%d err=%v", view.Index, err)
	}
	if _, err := exam.Next(); !errors.Is(err, domain.ErrNavigation) {
		t.Fatalf("expected no navigation past the last question, got %v", err)
	}
	if view, err := exam.Goto(0); err != nil || view.Index != 0 {
		t.Fatalf("back to start: index=%d err=%v", view.Index, err)
	}
	if _, err := exam.Goto(2); !errors.Is(err, domain.ErrNavigation) {
		t.Fatalf("forward moves are limited to one step, got %v", err)
	}
	if view, err := exam.Goto(1); err != nil || view.Index != 1 {
		t.Fatalf("one step forward: index=%d err=%v", view.Index, err)
	}
}

func TestExamAnswersOverwriteAndValidateOptions(t *testing.T) {
	ctx := context.Background()
	_, exam, _ := newExamFixture(t, app.ExamConfig{})
	if _, err := exam.Accept(ctx); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := exam.Answer("q1", "first"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	view, err := exam.Answer("q1", "second")
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if view.Answers["q1"] != "second" || len(view.Answers) != 1 {
		t.Fatalf("expected overwrite, got %v", view.Answers)
	}

	if _, err := exam.Answer("q2", "Z"); !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("expected invalid option, got %v", err)
	}
	if _, err := exam.Answer("q2", "B"); err != nil {
		t.Fatalf("valid option: %v", err)
	}
	if _, err := exam.Answer("nope", "x"); !errors.Is(err, domain.ErrUnknownQuestion) {
		t.Fatalf("expected unknown question, got %v", err)
	}
}

func TestExamSubmitIsTerminal(t *testing.T) {
	ctx := context.Background()
	manager, exam, _ := newExamFixture(t, app.ExamConfig{})
	if _, err := exam.Accept(ctx); err != nil {
		t.Fatalf("accept: %v", err)
	}
	_, _ = exam.Answer("q1", "a")

	if _, err := exam.Submit(ctx); !errors.Is(err, domain.ErrNotAtLastQuestion) {
		t.Fatalf("expected submit to require the last question, got %v", err)
	}
	_, _ = exam.Next()
	_, _ = exam.Answer("q2", "A")
	_, _ = exam.Next()
	_, _ = exam.Answer("q3", "c")

	view, err := exam.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if view.Phase != app.PhaseFinished || view.Question != nil {
		t.Fatalf("unexpected finished view %+v", view)
	}
	if _, err := exam.Submit(ctx); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected FINISHED to be terminal, got %v", err)
	}
	if _, err := exam.Answer("q1", "late"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected no answers after finish, got %v", err)
	}

	stored, _ := manager.Get(exam.SessionID())
	if stored.Status != domain.StatusCompleted || stored.Score == nil || *stored.Score != 77 {
		t.Fatalf("unexpected stored session %+v", stored)
	}
	if _, err := manager.ResolveHandoffLink("/exam/" + exam.SessionID()); !errors.Is(err, domain.ErrNoActiveAssessment) {
		t.Fatalf("expected finished exam to be unresolvable, got %v", err)
	}
}
