package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"talent-assessment-service/internal/domain"
)

// ExamPhase is the candidate-side state of a resolved session.
type ExamPhase string

const (
	PhaseConsent    ExamPhase = "CONSENT"
	PhaseInProgress ExamPhase = "IN_PROGRESS"
	PhaseFinished   ExamPhase = "FINISHED"
)

// DefaultExamDuration is the countdown started when the candidate accepts the terms.
const DefaultExamDuration = 3600 * time.Second

// ExamBackend is the part of the session manager an exam reports to.
type ExamBackend interface {
	StartSession(ctx context.Context, id string) (domain.AssessmentSession, error)
	CompleteSession(ctx context.Context, id string, answers map[string]string) (domain.AssessmentSession, error)
}

// ExamConfig holds the countdown policy.
type ExamConfig struct {
	Duration time.Duration
	// AutoSubmitOnExpiry submits the current answers once the countdown hits zero.
	AutoSubmitOnExpiry bool
}

// CandidateQuestion is a question as shown to the candidate (no rationale).
type CandidateQuestion struct {
	ID               string          `json:"id"`
	Category         domain.Category `json:"type"`
	Text             string          `json:"text"`
	Options          []string        `json:"options,omitempty"`
	IsMultipleChoice bool            `json:"isMultipleChoice"`
}

// ExamView is a snapshot of an exam for rendering.
type ExamView struct {
	SessionID        string             `json:"sessionId"`
	CandidateName    string             `json:"candidateName"`
	Phase            ExamPhase          `json:"phase"`
	Index            int                `json:"index"`
	Total            int                `json:"total"`
	Question         *CandidateQuestion `json:"question,omitempty"`
	Answers          map[string]string  `json:"answers"`
	RemainingSeconds int                `json:"remainingSeconds"`
}

// Exam drives one candidate through CONSENT -> IN_PROGRESS -> FINISHED for a
// single session it holds by value. It never touches the store; the final
// answer map is reported to the backend.
type Exam struct {
	backend ExamBackend
	session domain.AssessmentSession
	cfg     ExamConfig
	now     func() time.Time

	mu         sync.Mutex
	phase      ExamPhase
	index      int
	answers    map[string]string
	startedAt  time.Time
	finishedAt time.Time
}

func NewExam(backend ExamBackend, session domain.AssessmentSession, cfg ExamConfig) *Exam {
	return NewExamWithClock(backend, session, cfg, time.Now)
}

// NewExamWithClock is test-only for deterministic countdowns.
func NewExamWithClock(backend ExamBackend, session domain.AssessmentSession, cfg ExamConfig, now func() time.Time) *Exam {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultExamDuration
	}
	return &Exam{
		backend: backend,
		session: session.Clone(),
		cfg:     cfg,
		now:     now,
		phase:   PhaseConsent,
		answers: make(map[string]string),
	}
}

// SessionID returns the id of the session under examination.
func (e *Exam) SessionID() string {
	return e.session.ID
}

// Accept acknowledges the data-usage terms and starts the countdown.
func (e *Exam) Accept(ctx context.Context) (ExamView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseConsent {
		return e.viewLocked(), fmt.Errorf("%w: accept in %s", domain.ErrInvalidTransition, e.phase)
	}
	if _, err := e.backend.StartSession(ctx, e.session.ID); err != nil {
		return e.viewLocked(), err
	}
	e.phase = PhaseInProgress
	e.startedAt = e.now()
	return e.viewLocked(), nil
}

// Answer records text for a question, replacing any earlier answer.
// Multiple-choice answers must be one of the options.
func (e *Exam) Answer(questionID, text string) (ExamView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseInProgress {
		return e.viewLocked(), fmt.Errorf("%w: answer in %s", domain.ErrInvalidTransition, e.phase)
	}
	q, ok := e.session.Question(questionID)
	if !ok {
		return e.viewLocked(), fmt.Errorf("%w: %q", domain.ErrUnknownQuestion, questionID)
	}
	if q.IsMultipleChoice && !q.HasOption(text) {
		return e.viewLocked(), fmt.Errorf("%w: %q", domain.ErrInvalidOption, text)
	}
	e.answers[questionID] = text
	return e.viewLocked(), nil
}

// Goto moves to index: any earlier question, the current one, or exactly one step forward.
func (e *Exam) Goto(index int) (ExamView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gotoLocked(index)
}

// Next moves one question forward.
func (e *Exam) Next() (ExamView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gotoLocked(e.index + 1)
}

// Prev moves one question back.
func (e *Exam) Prev() (ExamView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gotoLocked(e.index - 1)
}

func (e *Exam) gotoLocked(index int) (ExamView, error) {
	if e.phase != PhaseInProgress {
		return e.viewLocked(), fmt.Errorf("%w: navigate in %s", domain.ErrInvalidTransition, e.phase)
	}
	if index < 0 || index >= len(e.session.Questions) || index > e.index+1 {
		return e.viewLocked(), fmt.Errorf("%w: %d from %d", domain.ErrNavigation, index, e.index)
	}
	e.index = index
	return e.viewLocked(), nil
}

// Submit sends the answers from the last question and finishes the exam.
func (e *Exam) Submit(ctx context.Context) (ExamView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseInProgress {
		return e.viewLocked(), fmt.Errorf("%w: submit in %s", domain.ErrInvalidTransition, e.phase)
	}
	if e.index != len(e.session.Questions)-1 {
		return e.viewLocked(), domain.ErrNotAtLastQuestion
	}
	return e.submitLocked(ctx)
}

// Tick reports the countdown and, when auto-submit is enabled and time has
// run out, submits. The second result reports whether this tick submitted.
func (e *Exam) Tick(ctx context.Context) (ExamView, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == PhaseInProgress && e.cfg.AutoSubmitOnExpiry && e.remainingLocked() == 0 {
		view, err := e.submitLocked(ctx)
		return view, err == nil, err
	}
	return e.viewLocked(), false, nil
}

func (e *Exam) submitLocked(ctx context.Context) (ExamView, error) {
	answers := make(map[string]string, len(e.answers))
	for k, v := range e.answers {
		answers[k] = v
	}
	if _, err := e.backend.CompleteSession(ctx, e.session.ID, answers); err != nil {
		return e.viewLocked(), err
	}
	e.finishedAt = e.now()
	e.phase = PhaseFinished
	return e.viewLocked(), nil
}

// Remaining returns the countdown, in whole seconds, floored at zero.
func (e *Exam) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remainingLocked()
}

// Phase returns the current phase.
func (e *Exam) Phase() ExamPhase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// View returns the current snapshot.
func (e *Exam) View() ExamView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

func (e *Exam) remainingLocked() time.Duration {
	if e.phase == PhaseConsent {
		return e.cfg.Duration
	}
	until := e.now()
	if e.phase == PhaseFinished {
		until = e.finishedAt
	}
	elapsed := until.Sub(e.startedAt).Truncate(time.Second)
	remaining := e.cfg.Duration - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (e *Exam) viewLocked() ExamView {
	view := ExamView{
		SessionID:        e.session.ID,
		CandidateName:    e.session.CandidateName,
		Phase:            e.phase,
		Index:            e.index,
		Total:            len(e.session.Questions),
		Answers:          make(map[string]string, len(e.answers)),
		RemainingSeconds: int(e.remainingLocked() / time.Second),
	}
	for k, v := range e.answers {
		view.Answers[k] = v
	}
	if e.phase == PhaseInProgress && e.index < len(e.session.Questions) {
		q := e.session.Questions[e.index]
		view.Question = &CandidateQuestion{
			ID:               q.ID,
			Category:         q.Category,
			Text:             q.Text,
			Options:          append([]string(nil), q.Options...),
			IsMultipleChoice: q.IsMultipleChoice,
		}
	}
	return view
}
