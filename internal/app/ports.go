package app

import (
	"context"

	"talent-assessment-service/internal/domain"
)

// KVStore abstracts the durable single-key store that holds the session snapshot
// (in-memory, file, Redis, Postgres, Mongo).
type KVStore interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put replaces the stored value.
	Put(ctx context.Context, key string, value []byte) error
}

// QuestionGenerator drafts the question set for a new session.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, req domain.GenerationRequest) ([]domain.Question, error)
}

// Evaluator scores a submitted answer map.
type Evaluator interface {
	Evaluate(ctx context.Context, req domain.EvaluationRequest) (domain.Evaluation, error)
}
