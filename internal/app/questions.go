package app

import (
	"fmt"
	"strconv"
	"strings"

	"talent-assessment-service/internal/domain"
)

// normalizeQuestions validates a generated question set and makes ids unique.
// A record missing its id, text or a known category rejects the whole set.
// Later duplicates of an id are re-keyed "<id>-<n>".
func normalizeQuestions(in []domain.Question) ([]domain.Question, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: no questions", domain.ErrInvalidQuestionSet)
	}

	seen := make(map[string]struct{}, len(in))
	out := make([]domain.Question, 0, len(in))
	for i, q := range in {
		q.ID = strings.TrimSpace(q.ID)
		q.Text = strings.TrimSpace(q.Text)
		if q.ID == "" {
			return nil, fmt.Errorf("%w: question %d has no id", domain.ErrInvalidQuestionSet, i)
		}
		if q.Text == "" {
			return nil, fmt.Errorf("%w: question %q has no text", domain.ErrInvalidQuestionSet, q.ID)
		}
		if !q.Category.Valid() {
			return nil, fmt.Errorf("%w: question %q has category %q", domain.ErrInvalidQuestionSet, q.ID, q.Category)
		}

		if _, dup := seen[q.ID]; dup {
			base := q.ID
			for n := 2; ; n++ {
				candidate := base + "-" + strconv.Itoa(n)
				if _, taken := seen[candidate]; !taken {
					q.ID = candidate
					break
				}
			}
		}
		seen[q.ID] = struct{}{}

		if q.IsMultipleChoice && len(q.Options) == 0 {
			q.IsMultipleChoice = false
		}
		if q.Options != nil {
			q.Options = append([]string(nil), q.Options...)
		}
		out = append(out, q)
	}
	return out, nil
}
