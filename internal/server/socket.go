package server

import (
	"fmt"

	"github.com/vk/calcgrid/internal/ctxlog"
	"github.com/vk/calcgrid/internal/session"
	"github.com/zishang520/socket.io/v2/socket"
)

// Inbound socket.io events.
const (
	EventJoin   = "join"
	EventEdit   = "edit"
	EventToggle = "toggle"
)

func (s *Server) setupSocket() {
	logger := ctxlog.FromContext(s.ctx)
	_ = s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		logger.Debug("Socket connected.", "sid", client.Id())

		_ = client.On(EventJoin, func(args ...any) {
			msg := argMap(args)
			id := str(msg, "session")
			sess, err := s.sessions.Get(id)
			if err != nil {
				s.socketError(client, err)
				return
			}
			client.Join(socket.Room(id))
			logger.Debug("Socket joined session.", "sid", client.Id(), "session", id)
			_ = client.Emit("state", sess.State())
		})

		_ = client.On(EventEdit, func(args ...any) {
			msg := argMap(args)
			sess, err := s.lookupForEdit(str(msg, "session"))
			if err != nil {
				s.socketError(client, err)
				return
			}
			if err := sess.Edit(s.ctx, str(msg, "variable"), str(msg, "value")); err != nil {
				s.socketError(client, err)
			}
		})

		_ = client.On(EventToggle, func(args ...any) {
			msg := argMap(args)
			sess, err := s.lookupForEdit(str(msg, "session"))
			if err != nil {
				s.socketError(client, err)
				return
			}
			if err := sess.SelectOutput(s.ctx, str(msg, "group"), str(msg, "output")); err != nil {
				s.socketError(client, err)
			}
		})
	})
}

// lookupForEdit looks up a session for an inbound edit, applying the rate limit.
func (s *Server) lookupForEdit(id string) (*session.Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.limiter.allow(sess.ID().String()); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Server) socketError(client *socket.Socket, err error) {
	ctxlog.FromContext(s.ctx).Warn("Socket request failed.", "sid", client.Id(), "error", err)
	_ = client.Emit(EventError, errorResponse{Error: err.Error()})
}

// argMap returns the first event argument as an object, or an empty one.
func argMap(args []any) map[string]any {
	if len(args) > 0 {
		if m, ok := args[0].(map[string]any); ok {
			return m
		}
	}
	return map[string]any{}
}

// str reads a field as a string, formatting numbers as sent.
func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
