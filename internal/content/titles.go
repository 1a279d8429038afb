package content

import "strings"

type titleRule struct {
	title    string
	keywords []string
}

// titleRules is ordered; ties go to the earlier rule.
var titleRules = []titleRule{
	{"Requirements", []string{"requirement", "must", "shall", "functional", "acceptance criteria", "user story"}},
	{"Architecture", []string{"architecture", "component", "service", "layer", "deployment", "infrastructure"}},
	{"User Flow", []string{"user flow", "journey", "screen", "navigat", "onboarding", "clicks"}},
	{"Data Model", []string{"data model", "entity", "schema", "table", "field", "relationship"}},
	{"API Design", []string{"endpoint", "api", "request", "response", "http", "rest"}},
	{"Test Plan", []string{"test", "coverage", "qa", "regression", "assert"}},
}

// InferTitle picks the title whose keywords occur most often in text, or
// "Generated Content" when none occur.
func InferTitle(text string) string {
	lower := strings.ToLower(text)

	best, bestScore := fallbackTitle, 0
	for _, rule := range titleRules {
		score := 0
		for _, kw := range rule.keywords {
			score += strings.Count(lower, kw)
		}
		if score > bestScore {
			best, bestScore = rule.title, score
		}
	}
	return best
}
