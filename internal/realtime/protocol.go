package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/collabpad/collabpad/internal/document"
)

// Client-to-server messages form a closed set: decoding yields one of the
// concrete types below and dispatch switches over them exhaustively, so an
// unhandled kind is a compile-visible gap rather than a silent string miss.

type ClientMessage interface {
	isClientMessage()
}

// JoinMessage attaches the connection to a document after token validation.
type JoinMessage struct {
	Token      string `json:"token"`
	DocumentID string `json:"documentId"`
}

// ContentChangeMessage carries a full-content replacement edit.
type ContentChangeMessage struct {
	DocumentID     string `json:"documentId"`
	Content        string `json:"content"`
	CursorPosition *int   `json:"cursorPosition,omitempty"`
}

// UserExitMessage is an explicit leave.
type UserExitMessage struct {
	UserID     string `json:"userId"`
	DocumentID string `json:"documentId"`
}

func (JoinMessage) isClientMessage()          {}
func (ContentChangeMessage) isClientMessage() {}
func (UserExitMessage) isClientMessage()      {}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeClientMessage parses one inbound frame. Unknown types are an error so
// the caller can log and drop them.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case "join":
		var m JoinMessage
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("decode join: %w", err)
		}
		return m, nil
	case "contentChange":
		var m ContentChangeMessage
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("decode contentChange: %w", err)
		}
		return m, nil
	case "userExit":
		var m UserExitMessage
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("decode userExit: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

// Server-to-client events.
const (
	EventDocumentContent = "documentContent"
	EventActiveUsers     = "activeUsers"
	EventContentUpdate   = "contentUpdate"
	EventUserExited      = "userExited"
)

// DocumentContentPayload is unicast to a freshly joined connection.
type DocumentContentPayload struct {
	Content     string                   `json:"content"`
	ActiveUsers []document.PresenceEntry `json:"activeUsers"`
}

// ContentUpdatePayload fans out an edit to the other connections on a document.
type ContentUpdatePayload struct {
	Content        string `json:"content"`
	CursorPosition *int   `json:"cursorPosition,omitempty"`
	UserID         string `json:"userId"`
	Username       string `json:"username"`
}

// UserExitedPayload announces a presence removal.
type UserExitedPayload struct {
	UserID string `json:"userId"`
}

// ServerMessage is an outbound frame: event name plus payload, marshaled once
// and fanned out as raw bytes.
type ServerMessage struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

func (m *ServerMessage) encode() ([]byte, error) {
	return json.Marshal(m)
}
