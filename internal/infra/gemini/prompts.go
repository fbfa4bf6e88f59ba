package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"talent-assessment-service/internal/domain"
)

var seniorityGuidance = map[domain.Seniority]string{
	domain.SeniorityJunior: "basic transactions, navigation, core concepts and guided task execution",
	domain.SeniorityMid:    "configuration, troubleshooting, integrated processes and functional or technical autonomy",
	domain.SenioritySenior: "solution architecture, clean core, platform extensions, cross-module impact, technical leadership and delivery best practices",
}

func buildGenerationPrompt(req domain.GenerationRequest, count int) string {
	context := strings.TrimSpace(req.Context)
	if context == "" {
		context = "No extra context provided."
	}

	technical := count * 4 / 10
	business := count * 4 / 10
	soft := count - technical - business

	return fmt.Sprintf(`Act as a senior solution architect and technical recruiter.
Generate %d precise questions to assess a %s consultant at %s level in the %s industry.

Focus for this level: %s.

Additional project context:
%s

Requirements:
- %d TECHNICAL questions specific to %s.
- %d BUSINESS process questions for the %s industry.
- %d SOFT_SKILL questions about behavior in critical projects.
- Every question id must be unique.
- Multiple-choice questions must list their options.

Return ONLY JSON matching the provided schema.`,
		count, req.Module, req.Seniority, req.Industry,
		guidanceFor(req.Seniority),
		context,
		technical, req.Module, business, req.Industry, soft)
}

func buildEvaluationPrompt(req domain.EvaluationRequest) (string, error) {
	answers, err := json.MarshalIndent(req.Answers, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`Evaluate the candidate's answers.
Profile: %s %s in the %s industry.

Candidate answers (by question id):
%s

Criteria:
1. Technical accuracy of the terminology.
2. Understanding of %s business flows.
3. Maturity of the answers (soft skills).

Return a score from 0 to 100 and a detailed critical analysis split into strengths and points of attention.`,
		req.Module, req.Seniority, req.Industry, answers, req.Industry), nil
}

func guidanceFor(s domain.Seniority) string {
	if g, ok := seniorityGuidance[s]; ok {
		return g
	}
	return seniorityGuidance[domain.SeniorityMid]
}

func questionSetSchema(seniority domain.Seniority) map[string]interface{} {
	return map[string]interface{}{
		"type": "ARRAY",
		"items": map[string]interface{}{
			"type": "OBJECT",
			"properties": map[string]interface{}{
				"id":   map[string]interface{}{"type": "STRING"},
				"type": map[string]interface{}{"type": "STRING", "enum": []string{"TECHNICAL", "BUSINESS", "SOFT_SKILL"}},
				"text": map[string]interface{}{"type": "STRING"},
				"options": map[string]interface{}{
					"type":  "ARRAY",
					"items": map[string]interface{}{"type": "STRING"},
				},
				"isMultipleChoice": map[string]interface{}{"type": "BOOLEAN"},
				"logicExplanation": map[string]interface{}{
					"type":        "STRING",
					"description": fmt.Sprintf("Why this question validates the %s level", seniority),
				},
			},
			"required": []string{"id", "type", "text", "isMultipleChoice"},
		},
	}
}

func evaluationSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "OBJECT",
		"properties": map[string]interface{}{
			"score":    map[string]interface{}{"type": "NUMBER"},
			"analysis": map[string]interface{}{"type": "STRING"},
		},
		"required": []string{"score", "analysis"},
	}
}
