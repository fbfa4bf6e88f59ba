package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session has the requested id.
	ErrSessionNotFound = errors.New("assessment session not found")
	// ErrSessionCompleted is returned when a completed session is re-entered or re-submitted.
	ErrSessionCompleted = errors.New("assessment session already completed")
	// ErrNoActiveAssessment is the common class for handoff links that cannot be resumed.
	ErrNoActiveAssessment = errors.New("no active assessment")
	// ErrGenerationFailed wraps any failure of the question generation call.
	ErrGenerationFailed = errors.New("question generation failed")
	// ErrEvaluationFailed wraps any failure of the evaluation call.
	ErrEvaluationFailed = errors.New("evaluation failed")
	// ErrInvalidQuestionSet indicates a generated question set is empty or malformed.
	ErrInvalidQuestionSet = errors.New("invalid question set")
	// ErrUnknownQuestion indicates an answer keyed by an id the session does not have.
	ErrUnknownQuestion = errors.New("unknown question")
	// ErrInvalidLocator indicates a handoff locator without an exam path.
	ErrInvalidLocator = errors.New("invalid handoff locator")
	// ErrPersist indicates the session snapshot could not be written.
	ErrPersist = errors.New("persist sessions")
	// ErrAIDisabled is returned by the AI client when no API key is configured.
	ErrAIDisabled = errors.New("ai client not configured")

	// ErrInvalidTransition is returned when an exam action is not allowed in its current phase.
	ErrInvalidTransition = errors.New("invalid exam transition")
	// ErrNavigation is returned for out-of-range or too-far-forward question navigation.
	ErrNavigation = errors.New("question navigation not allowed")
	// ErrInvalidOption is returned when a multiple-choice answer is not one of the options.
	ErrInvalidOption = errors.New("answer is not one of the options")
	// ErrNotAtLastQuestion is returned when submission is attempted before the last question.
	ErrNotAtLastQuestion = errors.New("submission only allowed from the last question")
)
