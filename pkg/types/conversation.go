package types

import "strings"

// ScopeKind is the category of a conversation scope.
type ScopeKind string

const (
	// ScopeGlobal is the application-wide assistant.
	ScopeGlobal ScopeKind = "global"
	// ScopeGrant is the assistant attached to a single grant record.
	ScopeGrant ScopeKind = "grant"
	// ScopeWorkstream is the assistant attached to a workstream.
	ScopeWorkstream ScopeKind = "workstream"
)

// Scope identifies a logical conversation context: a category plus an
// optional entity id. Two sessions with different scopes never share state.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
}

// Key derives the storage key for this scope. Global scopes have no entity
// id; entity-bound scopes are keyed as "kind/id".
func (s Scope) Key() string {
	if s.ID == "" {
		return string(s.Kind)
	}
	return string(s.Kind) + "/" + s.ID
}

// ParseScope parses a "kind" or "kind/id" string as produced by Key.
func ParseScope(raw string) Scope {
	kind, id, _ := strings.Cut(raw, "/")
	return Scope{Kind: ScopeKind(kind), ID: id}
}

// Conversation is one stored conversation thread within a scope.
type Conversation struct {
	ID                 string           `json:"id"`
	Scope              Scope            `json:"scope"`
	Title              string           `json:"title"`
	Time               ConversationTime `json:"time"`
	Messages           []Message        `json:"messages"`
	SuggestedQuestions []string         `json:"suggestedQuestions,omitempty"`
}

// ConversationTime contains timestamps for a conversation, in Unix milliseconds.
type ConversationTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}
