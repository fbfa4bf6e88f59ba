package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"talent-assessment-service/internal/domain"
	"talent-assessment-service/internal/validator"
)

// DefaultStorageKey is the store key holding the serialized session list.
const DefaultStorageKey = "assessment:sessions"

// FallbackAnalysis is stored when the evaluator cannot score a submission.
const FallbackAnalysis = "Automatic evaluation was unavailable for this submission; the answers need a manual review."

// SessionManager owns the ordered session list (newest first) and is the only
// writer of the snapshot under its storage key. Every mutation rewrites the
// whole list.
type SessionManager struct {
	store     KVStore
	generator QuestionGenerator
	evaluator Evaluator

	key     string
	baseURL string
	log     zerolog.Logger
	now     func() time.Time
	newID   func() string
	sf      singleflight.Group

	mu       sync.RWMutex
	sessions []domain.AssessmentSession
}

// Option customizes a SessionManager.
type Option func(*SessionManager)

// WithStorageKey overrides DefaultStorageKey.
func WithStorageKey(key string) Option {
	return func(m *SessionManager) {
		if key != "" {
			m.key = key
		}
	}
}

// WithBaseURL sets the application address handoff links are built on.
func WithBaseURL(baseURL string) Option {
	return func(m *SessionManager) { m.baseURL = baseURL }
}

// WithLogger sets the logger used for soft failures.
func WithLogger(log zerolog.Logger) Option {
	return func(m *SessionManager) { m.log = log }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *SessionManager) { m.now = now }
}

// WithIDGenerator is used by tests for deterministic session ids.
func WithIDGenerator(newID func() string) Option {
	return func(m *SessionManager) { m.newID = newID }
}

func NewSessionManager(store KVStore, generator QuestionGenerator, evaluator Evaluator, opts ...Option) *SessionManager {
	m := &SessionManager{
		store:     store,
		generator: generator,
		evaluator: evaluator,
		key:       DefaultStorageKey,
		log:       zerolog.Nop(),
		now:       time.Now,
		newID:     uuid.NewString,
		sessions:  []domain.AssessmentSession{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load replaces the in-memory list with the persisted snapshot. A missing,
// unreadable or corrupt snapshot leaves an empty list. It returns the number
// of sessions loaded.
func (m *SessionManager) Load(ctx context.Context) int {
	sessions := []domain.AssessmentSession{}

	raw, ok, err := m.store.Get(ctx, m.key)
	switch {
	case err != nil:
		m.log.Warn().Err(err).Str("key", m.key).Msg("read session snapshot; starting empty")
	case !ok:
		m.log.Debug().Str("key", m.key).Msg("no session snapshot yet")
	default:
		var decoded []domain.AssessmentSession
		if err := json.Unmarshal(raw, &decoded); err != nil {
			m.log.Warn().Err(err).Str("key", m.key).Msg("corrupt session snapshot; starting empty")
			break
		}
		for _, s := range decoded {
			if s.Answers == nil {
				s.Answers = map[string]string{}
			}
			sessions = append(sessions, s)
		}
	}

	m.mu.Lock()
	m.sessions = sessions
	m.mu.Unlock()

	m.log.Info().Int("sessions", len(sessions)).Msg("sessions loaded")
	return len(sessions)
}

// List returns a copy of all sessions, newest first.
func (m *SessionManager) List() []domain.AssessmentSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.AssessmentSession, len(m.sessions))
	for i, s := range m.sessions {
		out[i] = s.Clone()
	}
	return out
}

// Get returns the session with id.
func (m *SessionManager) Get(id string) (domain.AssessmentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx := m.indexLocked(id)
	if idx < 0 {
		return domain.AssessmentSession{}, domain.ErrSessionNotFound
	}
	return m.sessions[idx].Clone(), nil
}

// Create validates in, asks the generator for a question set and prepends a new
// PENDING session. Nothing changes when generation fails.
func (m *SessionManager) Create(ctx context.Context, in domain.CreateSessionInput) (domain.AssessmentSession, error) {
	in = trimInput(in)
	if err := validator.Struct(in); err != nil {
		return domain.AssessmentSession{}, err
	}

	generated, err := m.generator.GenerateQuestions(ctx, domain.GenerationRequest{
		Module:    in.Module,
		Seniority: in.Seniority,
		Industry:  in.Industry,
		Context:   in.Context,
	})
	if err != nil {
		m.log.Error().Err(err).Str("module", in.Module).Msg("question generation failed")
		return domain.AssessmentSession{}, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	questions, err := normalizeQuestions(generated)
	if err != nil {
		m.log.Error().Err(err).Str("module", in.Module).Msg("generated question set rejected")
		return domain.AssessmentSession{}, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	session := domain.AssessmentSession{
		ID:             m.newID(),
		CandidateName:  in.CandidateName,
		CandidateEmail: in.CandidateEmail,
		Module:         in.Module,
		Seniority:      in.Seniority,
		Industry:       in.Industry,
		Context:        in.Context,
		Status:         domain.StatusPending,
		Questions:      questions,
		Answers:        map[string]string{},
		CreatedAt:      m.timestamp(),
		ConsentGiven:   true,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	next := make([]domain.AssessmentSession, 0, len(m.sessions)+1)
	next = append(next, session)
	next = append(next, m.sessions...)
	if err := m.persistLocked(ctx, next); err != nil {
		return domain.AssessmentSession{}, err
	}

	m.log.Info().Str("session_id", session.ID).Int("questions", len(questions)).Msg("session created")
	return session.Clone(), nil
}

// Delete removes the session with id if present and persists the result.
// Deleting an unknown id is not an error.
func (m *SessionManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make([]domain.AssessmentSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.ID != id {
			next = append(next, s)
		}
	}
	return m.persistLocked(ctx, next)
}

// BuildHandoffLink returns the shareable exam link for a session that has not
// been completed.
func (m *SessionManager) BuildHandoffLink(id string) (string, error) {
	session, err := m.Get(id)
	if err != nil {
		return "", err
	}
	if session.Status == domain.StatusCompleted {
		return "", domain.ErrSessionCompleted
	}
	return HandoffLink(m.baseURL, session.ID), nil
}

// ResolveHandoffLink returns the session a locator points to when it exists and
// is not completed. Failures match domain.ErrNoActiveAssessment plus the cause.
func (m *SessionManager) ResolveHandoffLink(locator string) (domain.AssessmentSession, error) {
	id, err := ParseHandoffLocator(locator)
	if err != nil {
		return domain.AssessmentSession{}, fmt.Errorf("%w: %w", domain.ErrNoActiveAssessment, err)
	}
	session, err := m.Get(id)
	if err != nil {
		return domain.AssessmentSession{}, fmt.Errorf("%w: %w", domain.ErrNoActiveAssessment, err)
	}
	if session.Status == domain.StatusCompleted {
		return domain.AssessmentSession{}, fmt.Errorf("%w: %w", domain.ErrNoActiveAssessment, domain.ErrSessionCompleted)
	}
	return session, nil
}

// StartSession marks a PENDING session IN_PROGRESS once the candidate accepts
// the consent terms. Starting an IN_PROGRESS session again is a no-op.
func (m *SessionManager) StartSession(ctx context.Context, id string) (domain.AssessmentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return domain.AssessmentSession{}, domain.ErrSessionNotFound
	}
	current := m.sessions[idx]
	switch current.Status {
	case domain.StatusCompleted:
		return domain.AssessmentSession{}, domain.ErrSessionCompleted
	case domain.StatusInProgress:
		return current.Clone(), nil
	}

	updated := current.Clone()
	updated.Status = domain.StatusInProgress
	next := m.replaceLocked(idx, updated)
	if err := m.persistLocked(ctx, next); err != nil {
		return domain.AssessmentSession{}, err
	}
	return updated.Clone(), nil
}

// CompleteSession evaluates answers and moves the session to COMPLETED.
// An evaluator failure never blocks completion: the session is stored with a
// zero score and FallbackAnalysis. Concurrent completions of the same id share
// one evaluation.
func (m *SessionManager) CompleteSession(ctx context.Context, id string, answers map[string]string) (domain.AssessmentSession, error) {
	result, err, _ := m.sf.Do(id, func() (interface{}, error) {
		return m.complete(ctx, id, answers)
	})
	if err != nil {
		return domain.AssessmentSession{}, err
	}
	return result.(domain.AssessmentSession).Clone(), nil
}

func (m *SessionManager) complete(ctx context.Context, id string, answers map[string]string) (domain.AssessmentSession, error) {
	session, err := m.Get(id)
	if err != nil {
		return domain.AssessmentSession{}, err
	}
	if session.Status == domain.StatusCompleted {
		return domain.AssessmentSession{}, domain.ErrSessionCompleted
	}

	full, err := completeAnswerMap(session, answers)
	if err != nil {
		return domain.AssessmentSession{}, err
	}

	evaluation := m.evaluate(ctx, session, full)

	m.mu.Lock()
	defer m.mu.Unlock()

	// The list may have changed while the evaluator ran.
	idx := m.indexLocked(id)
	if idx < 0 {
		return domain.AssessmentSession{}, domain.ErrSessionNotFound
	}
	if m.sessions[idx].Status == domain.StatusCompleted {
		return domain.AssessmentSession{}, domain.ErrSessionCompleted
	}

	updated := m.sessions[idx].Clone()
	completedAt := m.timestamp()
	score := evaluation.Score
	analysis := evaluation.Analysis
	updated.Status = domain.StatusCompleted
	updated.Answers = full
	updated.Score = &score
	updated.Analysis = &analysis
	updated.CompletedAt = &completedAt

	next := m.replaceLocked(idx, updated)
	if err := m.persistLocked(ctx, next); err != nil {
		return domain.AssessmentSession{}, err
	}

	m.log.Info().Str("session_id", id).Int("score", score).Msg("session completed")
	return updated, nil
}

func (m *SessionManager) evaluate(ctx context.Context, session domain.AssessmentSession, answers map[string]string) domain.Evaluation {
	evaluation, err := m.evaluator.Evaluate(ctx, domain.EvaluationRequest{
		Module:    session.Module,
		Seniority: session.Seniority,
		Industry:  session.Industry,
		Answers:   answers,
	})
	if err == nil && (evaluation.Score < 0 || evaluation.Score > 100) {
		err = fmt.Errorf("%w: score %d out of range", domain.ErrEvaluationFailed, evaluation.Score)
	}
	if err != nil {
		m.log.Warn().Err(err).Str("session_id", session.ID).Msg("evaluation unavailable; using fallback")
		return domain.Evaluation{Score: 0, Analysis: FallbackAnalysis}
	}
	return evaluation
}

// Stats summarizes the list for the dashboard. The average is taken over
// sessions holding a non-zero score.
func (m *SessionManager) Stats() domain.DashboardStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := domain.DashboardStats{
		Total:     len(m.sessions),
		Benchmark: []domain.BenchmarkPoint{},
	}
	sum, scored := 0, 0
	for _, s := range m.sessions {
		switch s.Status {
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusInProgress:
			stats.InProgress++
		case domain.StatusCompleted:
			stats.Completed++
		}
		if s.Score == nil {
			continue
		}
		sum += *s.Score
		if *s.Score != 0 {
			scored++
		}
		if s.Status == domain.StatusCompleted {
			stats.Benchmark = append(stats.Benchmark, domain.BenchmarkPoint{
				SessionID:     s.ID,
				CandidateName: s.CandidateName,
				Score:         *s.Score,
			})
		}
	}
	if scored == 0 {
		scored = 1
	}
	stats.AverageScore = int(math.Round(float64(sum) / float64(scored)))
	return stats
}

// persistLocked writes next to the store and, only on success, makes it the
// in-memory list. Callers hold m.mu.
func (m *SessionManager) persistLocked(ctx context.Context, next []domain.AssessmentSession) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersist, err)
	}
	if err := m.store.Put(ctx, m.key, data); err != nil {
		m.log.Error().Err(err).Str("key", m.key).Msg("write session snapshot")
		return fmt.Errorf("%w: %w", domain.ErrPersist, err)
	}
	m.sessions = next
	return nil
}

func (m *SessionManager) replaceLocked(idx int, updated domain.AssessmentSession) []domain.AssessmentSession {
	next := make([]domain.AssessmentSession, len(m.sessions))
	copy(next, m.sessions)
	next[idx] = updated
	return next
}

func (m *SessionManager) indexLocked(id string) int {
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// timestamp matches the snapshot's millisecond precision so reloads compare equal.
func (m *SessionManager) timestamp() time.Time {
	return m.now().UTC().Truncate(time.Millisecond)
}

// completeAnswerMap rejects answers for unknown questions and fills unanswered
// ones with an empty string so the keys equal the question ids.
func completeAnswerMap(session domain.AssessmentSession, answers map[string]string) (map[string]string, error) {
	full := make(map[string]string, len(session.Questions))
	for _, id := range session.QuestionIDs() {
		full[id] = ""
	}
	for id, text := range answers {
		if _, ok := full[id]; !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownQuestion, id)
		}
		full[id] = text
	}
	return full, nil
}

func trimInput(in domain.CreateSessionInput) domain.CreateSessionInput {
	in.CandidateName = strings.TrimSpace(in.CandidateName)
	in.CandidateEmail = strings.TrimSpace(in.CandidateEmail)
	in.Module = strings.TrimSpace(in.Module)
	in.Industry = strings.TrimSpace(in.Industry)
	in.Context = strings.TrimSpace(in.Context)
	return in
}
