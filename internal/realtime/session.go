package realtime

import (
	"context"

	"github.com/google/uuid"

	"github.com/collabpad/collabpad/internal/document/manager"
	"github.com/collabpad/collabpad/internal/models"
	"github.com/collabpad/collabpad/internal/presence"
	"github.com/collabpad/collabpad/pkg/logger"
)

// TokenVerifier validates a raw bearer token and returns the user id.
type TokenVerifier interface {
	Subject(ctx context.Context, raw string) (string, error)
}

// UserLookup resolves a user id to the stored user. Returns (nil, nil) when
// no such user exists.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Server bundles the collaborators the realtime layer drives. One instance is
// constructed at startup and shared by all connections.
type Server struct {
	registry *Registry
	hub      *Hub
	presence *presence.Store
	docs     *manager.Manager
	verifier TokenVerifier
	users    UserLookup
}

func NewServer(reg *Registry, hub *Hub, pres *presence.Store, docs *manager.Manager, ver TokenVerifier, users UserLookup) *Server {
	return &Server{registry: reg, hub: hub, presence: pres, docs: docs, verifier: ver, users: users}
}

type sessionState int

const (
	stateUnjoined sessionState = iota
	stateJoined
	stateClosed
)

// session is the per-connection protocol state machine:
// Unjoined -> Joined -> Closed. Closed is terminal; a reconnecting client
// gets a fresh connection and a fresh session.
type session struct {
	id   uuid.UUID
	send chan []byte
	srv  *Server

	state    sessionState
	token    string // kept from the join handshake, re-verified on every edit
	userID   string
	username string
	docID    string
}

func (s *Server) newSession(send chan []byte) *session {
	return &session{id: uuid.New(), send: send, srv: s}
}

// handle processes one inbound message. Messages on one connection arrive
// from a single read loop, so per-connection ordering is free.
func (s *session) handle(ctx context.Context, msg ClientMessage) {
	switch m := msg.(type) {
	case JoinMessage:
		s.handleJoin(ctx, m)
	case ContentChangeMessage:
		s.handleContentChange(ctx, m)
	case UserExitMessage:
		s.handleUserExit(ctx, m)
	}
}

// handleJoin validates the token, records the session and delivers initial
// state. An invalid token leaves the connection Unjoined with no visible
// event; the failure is only logged.
func (s *session) handleJoin(ctx context.Context, m JoinMessage) {
	if s.state == stateClosed {
		return
	}
	userID, err := s.srv.verifier.Subject(ctx, m.Token)
	if err != nil {
		logger.Warnf("join rejected for %s: %v", s.id, err)
		return
	}
	user, err := s.srv.users.GetByID(ctx, userID)
	if err != nil || user == nil {
		logger.Warnf("join rejected for %s: unknown user %s (%v)", s.id, userID, err)
		return
	}

	doc, err := s.srv.docs.GetOrCreate(ctx, m.DocumentID, userID)
	if err != nil {
		logger.Errorf("join %s: load document %s: %v", s.id, m.DocumentID, err)
		return
	}

	// A second join on the same connection overwrites the first association.
	// Presence on the old document is orphaned until the staleness sweep.
	if prevDoc, rejoined := s.srv.registry.Join(s.id, userID, m.DocumentID); rejoined {
		s.srv.hub.Detach(prevDoc, s.id)
	}
	s.state = stateJoined
	s.token = m.Token
	s.userID = userID
	s.username = user.Username
	s.docID = m.DocumentID

	active := s.srv.presence.Upsert(ctx, m.DocumentID, userID, user.Username, nil)
	s.srv.hub.Attach(m.DocumentID, s.id, s.send)

	s.srv.hub.ToConnection(s.id, &ServerMessage{
		Event:   EventDocumentContent,
		Payload: DocumentContentPayload{Content: doc.Content, ActiveUsers: active},
	})
	s.srv.hub.ToDocument(m.DocumentID, &ServerMessage{Event: EventActiveUsers, Payload: active}, uuid.Nil)
}

// handleContentChange re-validates the handshake token on every edit; a
// failure drops the edit silently rather than closing the connection.
func (s *session) handleContentChange(ctx context.Context, m ContentChangeMessage) {
	if s.state != stateJoined {
		return
	}
	userID, err := s.srv.verifier.Subject(ctx, s.token)
	if err != nil || userID != s.userID {
		logger.Debugf("edit dropped on %s: token no longer valid", s.id)
		return
	}

	s.srv.docs.ApplyEdit(m.DocumentID, m.Content, s.userID)
	active := s.srv.presence.Upsert(ctx, m.DocumentID, s.userID, s.username, m.CursorPosition)

	s.srv.hub.ToDocument(m.DocumentID, &ServerMessage{
		Event: EventContentUpdate,
		Payload: ContentUpdatePayload{
			Content:        m.Content,
			CursorPosition: m.CursorPosition,
			UserID:         s.userID,
			Username:       s.username,
		},
	}, s.id)
	s.srv.hub.ToDocument(m.DocumentID, &ServerMessage{Event: EventActiveUsers, Payload: active}, uuid.Nil)
}

// handleUserExit is the explicit leave: presence removal plus broadcasts,
// then the session is closed.
func (s *session) handleUserExit(ctx context.Context, m UserExitMessage) {
	if s.state != stateJoined {
		return
	}
	active := s.srv.presence.Remove(ctx, m.DocumentID, m.UserID)

	s.srv.registry.Leave(s.id)
	s.srv.hub.Detach(m.DocumentID, s.id)
	s.state = stateClosed

	s.srv.hub.ToDocument(m.DocumentID, &ServerMessage{Event: EventUserExited, Payload: UserExitedPayload{UserID: m.UserID}}, uuid.Nil)
	s.srv.hub.ToDocument(m.DocumentID, &ServerMessage{Event: EventActiveUsers, Payload: active}, uuid.Nil)
}

// disconnect performs the same cleanup as an explicit exit, driven by the
// transport-level close instead of an application message. Safe to call for
// connections that never joined.
func (s *session) disconnect(ctx context.Context) {
	if s.state != stateJoined {
		s.state = stateClosed
		return
	}
	userID, docID, ok := s.srv.registry.Leave(s.id)
	s.state = stateClosed
	if !ok {
		return
	}
	s.srv.hub.Detach(docID, s.id)
	active := s.srv.presence.Remove(ctx, docID, userID)

	s.srv.hub.ToDocument(docID, &ServerMessage{Event: EventUserExited, Payload: UserExitedPayload{UserID: userID}}, uuid.Nil)
	s.srv.hub.ToDocument(docID, &ServerMessage{Event: EventActiveUsers, Payload: active}, uuid.Nil)
}
