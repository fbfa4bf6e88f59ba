package domain

import "time"

// Status is the lifecycle state of an assessment session.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Seniority is the tier a candidate is assessed against.
type Seniority string

const (
	SeniorityJunior Seniority = "Junior"
	SeniorityMid    Seniority = "Mid"
	SenioritySenior Seniority = "Senior"
)

// Category tags what a question measures.
type Category string

const (
	CategoryTechnical Category = "TECHNICAL"
	CategoryBusiness  Category = "BUSINESS"
	CategorySoftSkill Category = "SOFT_SKILL"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTechnical, CategoryBusiness, CategorySoftSkill:
		return true
	}
	return false
}

// Question is produced by the generation call and never mutated afterwards.
type Question struct {
	ID               string   `json:"id"`
	Category         Category `json:"type"`
	Text             string   `json:"text"`
	Options          []string `json:"options,omitempty"`
	IsMultipleChoice bool     `json:"isMultipleChoice"`
	Rationale        string   `json:"logicExplanation,omitempty"`
}

// HasOption reports whether answer is one of the question's choices.
func (q Question) HasOption(answer string) bool {
	for _, opt := range q.Options {
		if opt == answer {
			return true
		}
	}
	return false
}

// AssessmentSession is one candidate's assessment from creation through scoring.
// Score and Analysis are set only once Status is COMPLETED.
type AssessmentSession struct {
	ID             string            `json:"id"`
	CandidateName  string            `json:"candidateName"`
	CandidateEmail string            `json:"candidateEmail"`
	Module         string            `json:"role"`
	Seniority      Seniority         `json:"seniority"`
	Industry       string            `json:"industry"`
	Context        string            `json:"knowledgeSourceContext,omitempty"`
	Status         Status            `json:"status"`
	Questions      []Question        `json:"questions"`
	Answers        map[string]string `json:"answers"`
	Score          *int              `json:"score,omitempty"`
	Analysis       *string           `json:"analysis,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	CompletedAt    *time.Time        `json:"completedAt,omitempty"`
	ConsentGiven   bool              `json:"consentLGPD"`
}

// QuestionIDs returns the ids of the session's questions in order.
func (s AssessmentSession) QuestionIDs() []string {
	ids := make([]string, len(s.Questions))
	for i, q := range s.Questions {
		ids[i] = q.ID
	}
	return ids
}

// Question looks up a question by id.
func (s AssessmentSession) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Clone returns a deep copy so callers can hand sessions out by value.
func (s AssessmentSession) Clone() AssessmentSession {
	out := s
	if s.Questions != nil {
		out.Questions = make([]Question, len(s.Questions))
		for i, q := range s.Questions {
			if q.Options != nil {
				q.Options = append([]string(nil), q.Options...)
			}
			out.Questions[i] = q
		}
	}
	if s.Answers != nil {
		out.Answers = make(map[string]string, len(s.Answers))
		for k, v := range s.Answers {
			out.Answers[k] = v
		}
	}
	if s.Score != nil {
		score := *s.Score
		out.Score = &score
	}
	if s.Analysis != nil {
		analysis := *s.Analysis
		out.Analysis = &analysis
	}
	if s.CompletedAt != nil {
		completed := *s.CompletedAt
		out.CompletedAt = &completed
	}
	return out
}

// CreateSessionInput is the validated payload for creating a session.
type CreateSessionInput struct {
	CandidateName  string    `json:"candidateName" validate:"required"`
	CandidateEmail string    `json:"candidateEmail" validate:"required,email"`
	Module         string    `json:"role" validate:"required"`
	Seniority      Seniority `json:"seniority" validate:"required,oneof=Junior Mid Senior"`
	Industry       string    `json:"industry" validate:"required"`
	Context        string    `json:"context"`
}

// GenerationRequest is what the question generator receives.
type GenerationRequest struct {
	Module    string
	Seniority Seniority
	Industry  string
	Context   string
}

// EvaluationRequest is what the evaluator receives.
type EvaluationRequest struct {
	Module    string
	Seniority Seniority
	Industry  string
	Answers   map[string]string
}

// Evaluation is the scored outcome of a completed session.
type Evaluation struct {
	Score    int    `json:"score"`
	Analysis string `json:"analysis"`
}

// BenchmarkPoint is one completed candidate's score for the dashboard chart.
type BenchmarkPoint struct {
	SessionID     string `json:"sessionId"`
	CandidateName string `json:"candidateName"`
	Score         int    `json:"score"`
}

// DashboardStats summarizes the session list.
type DashboardStats struct {
	Total        int              `json:"total"`
	Pending      int              `json:"pending"`
	InProgress   int              `json:"inProgress"`
	Completed    int              `json:"completed"`
	AverageScore int              `json:"averageScore"`
	Benchmark    []BenchmarkPoint `json:"benchmark"`
}
