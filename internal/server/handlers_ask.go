package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/grantline/assist/internal/logging"
	"github.com/grantline/assist/internal/stream"
	"github.com/grantline/assist/pkg/types"
)

// askRequest mirrors the wire shape of the ask endpoint.
type askRequest struct {
	Scope          types.Scope     `json:"scope"`
	Text           string          `json:"text"`
	ConversationID string          `json:"conversationID"`
	Mentions       []types.Mention `json:"mentions"`
}

// handleAsk answers a question with a canned, streamed response and
// persists the exchange.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "text is required")
		return
	}

	conv := s.loadOrCreateConversation(r.Context(), req)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sw := stream.NewWriter(w)
	answer, citations := composeAnswer(req.Scope, req.Text)

	sw.Progress(types.Progress{Step: "searching", Detail: scopeLabel(req.Scope)})

	for _, word := range strings.SplitAfter(answer, " ") {
		if !s.pace(r.Context()) {
			return // client went away mid-stream
		}
		if err := sw.Token(word); err != nil {
			return
		}
	}
	for _, c := range citations {
		if err := sw.Citation(c); err != nil {
			return
		}
	}
	if err := sw.Suggestions(suggestionsFor(req.Scope.Kind)); err != nil {
		return
	}

	now := time.Now().UnixMilli()
	userMsg := types.Message{
		ID:             ulid.Make().String(),
		ConversationID: conv.ID,
		Role:           types.RoleUser,
		Content:        req.Text,
		Time:           types.MessageTime{Created: now},
	}
	assistantMsg := types.Message{
		ID:             ulid.Make().String(),
		ConversationID: conv.ID,
		Role:           types.RoleAssistant,
		Content:        answer,
		Citations:      citations,
		Time:           types.MessageTime{Created: now},
	}
	conv.Messages = append(conv.Messages, userMsg, assistantMsg)
	conv.Time.Updated = now
	s.persistConversation(r.Context(), conv)

	if err := sw.Done(stream.Done{ConversationID: conv.ID, MessageID: assistantMsg.ID}); err != nil {
		return
	}
	sw.Sentinel()
}

// pace waits the configured token delay, reporting false when the client
// disconnects first.
func (s *Server) pace(ctx context.Context) bool {
	if s.config.TokenDelay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-time.After(s.config.TokenDelay):
		return true
	case <-ctx.Done():
		return false
	}
}

// loadOrCreateConversation resumes the requested conversation or starts a
// fresh one titled after the question.
func (s *Server) loadOrCreateConversation(ctx context.Context, req askRequest) *types.Conversation {
	if req.ConversationID != "" {
		var conv types.Conversation
		if err := s.storage.Get(ctx, conversationPath(req.ConversationID), &conv); err == nil {
			return &conv
		}
		logging.Debug().Str("conversationID", req.ConversationID).Msg("unknown conversation id on ask, starting fresh")
	}

	now := time.Now().UnixMilli()
	return &types.Conversation{
		ID:    ulid.Make().String(),
		Scope: req.Scope,
		Title: titleFor(req.Text),
		Time:  types.ConversationTime{Created: now, Updated: now},
	}
}

// persistConversation writes the conversation and updates the per-scope
// recent pointer. Persistence trouble is logged, not surfaced; the stream
// already carries the answer.
func (s *Server) persistConversation(ctx context.Context, conv *types.Conversation) {
	if err := s.storage.Put(ctx, conversationPath(conv.ID), conv); err != nil {
		logging.Warn().Err(err).Str("conversationID", conv.ID).Msg("failed to persist conversation")
		return
	}
	if err := s.storage.Put(ctx, recentPath(conv.Scope), conv.ID); err != nil {
		logging.Warn().Err(err).Str("scope", conv.Scope.Key()).Msg("failed to update recent pointer")
	}
}

func conversationPath(id string) []string {
	return []string{"conversations", id}
}

func recentPath(scope types.Scope) []string {
	if scope.ID == "" {
		return []string{"recent", string(scope.Kind)}
	}
	return []string{"recent", string(scope.Kind), scope.ID}
}

// titleFor derives a conversation title from the first question,
// truncating on a rune boundary.
func titleFor(text string) string {
	const max = 48
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
