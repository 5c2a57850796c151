// Package types provides the core data types shared by the assist client.
package types

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single committed entry in a conversation. Messages are
// immutable once appended to a conversation's history.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationID,omitempty"`
	Role           Role        `json:"role"`
	Content        string      `json:"content"`
	Citations      []Citation  `json:"citations,omitempty"`
	Time           MessageTime `json:"time"`
}

// MessageTime contains timestamps for a message, in Unix milliseconds.
type MessageTime struct {
	Created int64 `json:"created"`
}

// Citation is a structured reference to a source backing part of an
// assistant response. Order of arrival within one response is preserved.
type Citation struct {
	Index         int    `json:"index"`
	Title         string `json:"title"`
	URL           string `json:"url,omitempty"`
	Excerpt       string `json:"excerpt,omitempty"`
	SourceRef     string `json:"sourceRef,omitempty"`
	PublishedDate string `json:"publishedDate,omitempty"`
}

// Mention is a structured reference attached to an outgoing question,
// e.g. a grant or workstream the user tagged in the composer.
type Mention struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// Progress is an advisory indicator of what the backend is doing while
// it prepares an answer. It is never persisted.
type Progress struct {
	Step   string `json:"step"`
	Detail string `json:"detail,omitempty"`
}
