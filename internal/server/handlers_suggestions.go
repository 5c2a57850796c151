package server

import (
	"net/http"
)

// handleSuggestions returns scope-appropriate suggested questions.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromQuery(r)
	writeJSON(w, http.StatusOK, map[string][]string{
		"questions": suggestionsFor(scope.Kind),
	})
}
