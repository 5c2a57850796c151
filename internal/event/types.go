package event

import "github.com/grantline/assist/pkg/types"

// StreamDeltaData is the data for stream.delta events.
type StreamDeltaData struct {
	Scope types.Scope `json:"scope"`
	Delta string      `json:"delta"`
}

// StreamCitationData is the data for stream.citation events.
type StreamCitationData struct {
	Scope    types.Scope    `json:"scope"`
	Citation types.Citation `json:"citation"`
}

// StreamProgressData is the data for stream.progress events.
type StreamProgressData struct {
	Scope    types.Scope    `json:"scope"`
	Progress types.Progress `json:"progress"`
}

// MessageCreatedData is the data for message.created events.
type MessageCreatedData struct {
	Scope types.Scope    `json:"scope"`
	Info  *types.Message `json:"info"`
}

// ConversationLoadedData is the data for conversation.loaded events.
type ConversationLoadedData struct {
	Scope          types.Scope `json:"scope"`
	ConversationID string      `json:"conversationID"`
	Title          string      `json:"title,omitempty"`
}

// SuggestionsUpdatedData is the data for suggestions.updated events.
type SuggestionsUpdatedData struct {
	Scope     types.Scope `json:"scope"`
	Questions []string    `json:"questions"`
}

// SessionUpdatedData is the data for session.updated events.
type SessionUpdatedData struct {
	Scope types.Scope `json:"scope"`
}

// SessionErrorData is the data for session.error events.
type SessionErrorData struct {
	Scope types.Scope `json:"scope"`
	Error string      `json:"error"`
}

// SessionIdleData is the data for session.idle events.
type SessionIdleData struct {
	Scope types.Scope `json:"scope"`
}
