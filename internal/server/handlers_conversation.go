package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grantline/assist/pkg/types"
)

// handleConversation returns the full history for one conversation.
func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var conv types.Conversation
	if err := s.storage.Get(r.Context(), conversationPath(id), &conv); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// handleRecent returns the most recent conversation in a scope.
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromQuery(r)

	var id string
	if err := s.storage.Get(r.Context(), recentPath(scope), &id); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no conversations in scope")
		return
	}

	var conv types.Conversation
	if err := s.storage.Get(r.Context(), conversationPath(id), &conv); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// scopeFromQuery decodes the scope query parameters, defaulting to global.
func scopeFromQuery(r *http.Request) types.Scope {
	kind := types.ScopeKind(r.URL.Query().Get("scope"))
	if kind == "" {
		kind = types.ScopeGlobal
	}
	return types.Scope{Kind: kind, ID: r.URL.Query().Get("scopeID")}
}
