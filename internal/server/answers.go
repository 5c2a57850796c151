package server

import (
	"fmt"

	"github.com/grantline/assist/pkg/types"
)

// composeAnswer builds a deterministic canned answer for a question. The
// text varies by scope so streams are distinguishable in demos and tests.
func composeAnswer(scope types.Scope, text string) (string, []types.Citation) {
	switch scope.Kind {
	case types.ScopeGrant:
		answer := fmt.Sprintf("Looking at grant %s: %q touches its eligibility and reporting requirements. "+
			"The award terms set quarterly reporting, and the next deadline falls at the end of this quarter.", scope.ID, text)
		return answer, []types.Citation{
			{
				Index:     1,
				Title:     "Award terms and conditions",
				URL:       fmt.Sprintf("https://grantline.app/grants/%s/terms", scope.ID),
				Excerpt:   "Recipients shall submit quarterly performance reports.",
				SourceRef: "terms:reporting",
			},
		}
	case types.ScopeWorkstream:
		answer := fmt.Sprintf("In workstream %s, the most recent activity relevant to %q is the updated task list. "+
			"Two tasks are overdue and one is blocked on a budget revision.", scope.ID, text)
		return answer, []types.Citation{
			{
				Index:     1,
				Title:     "Workstream activity log",
				URL:       fmt.Sprintf("https://grantline.app/workstreams/%s/activity", scope.ID),
				Excerpt:   "Budget revision pending approval.",
				SourceRef: "activity:latest",
			},
		}
	default:
		answer := fmt.Sprintf("Across your portfolio, %q matches three open grants. "+
			"Two close within thirty days and one application is still in draft.", text)
		return answer, []types.Citation{
			{
				Index:     1,
				Title:     "Portfolio deadlines",
				URL:       "https://grantline.app/portfolio/deadlines",
				Excerpt:   "Three grants with upcoming close dates.",
				SourceRef: "portfolio:deadlines",
			},
		}
	}
}

// suggestionsFor returns the canned follow-up questions per scope kind.
func suggestionsFor(kind types.ScopeKind) []string {
	switch kind {
	case types.ScopeGrant:
		return []string{
			"What are the reporting deadlines?",
			"Summarize the award terms",
			"Who is the program officer?",
		}
	case types.ScopeWorkstream:
		return []string{
			"Which tasks are overdue?",
			"What is blocked right now?",
			"Draft a status update",
		}
	default:
		return []string{
			"What grants are closing soon?",
			"Show applications in draft",
			"Summarize this month's funding activity",
		}
	}
}

// scopeLabel renders a scope for progress messages.
func scopeLabel(scope types.Scope) string {
	if scope.ID == "" {
		return string(scope.Kind)
	}
	return fmt.Sprintf("%s %s", scope.Kind, scope.ID)
}
