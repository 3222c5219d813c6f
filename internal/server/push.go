package server

import (
	"github.com/google/uuid"
	"github.com/vk/calcgrid/internal/calc"
	"github.com/vk/calcgrid/internal/session"
	"github.com/zishang520/socket.io/v2/socket"
)

// Event names pushed to session rooms.
const (
	EventValueChanged      = "value_changed"
	EventValidationChanged = "validation_changed"
	EventDirectionChanged  = "direction_changed"
	EventError             = "calc_error"
)

// Emitter broadcasts an event to a room.
type Emitter interface {
	Emit(room, event string, payload any)
}

// socketEmitter broadcasts through a socket.io server.
type socketEmitter struct {
	io *socket.Server
}

func (e socketEmitter) Emit(room, event string, payload any) {
	_ = e.io.To(socket.Room(room)).Emit(event, payload)
}

// ValuePayload is the body of value_changed.
type ValuePayload struct {
	Session    string `json:"session"`
	Calculator string `json:"calculator"`
	Variable   string `json:"variable"`
	Value      any    `json:"value"`
	Formatted  string `json:"formatted"`
	Unit       string `json:"unit,omitempty"`
}

// ValidationPayload is the body of validation_changed.
type ValidationPayload struct {
	Session    string `json:"session"`
	Calculator string `json:"calculator"`
	Variable   string `json:"variable"`
	Level      string `json:"level"`
	Message    string `json:"message,omitempty"`
	Border     string `json:"border"`
	Background string `json:"background"`
}

// DirectionPayload is the body of direction_changed.
type DirectionPayload struct {
	Session    string `json:"session"`
	Calculator string `json:"calculator"`
	Variable   string `json:"variable"`
	Direction  string `json:"direction"`
}

// roomObserver forwards calculator events to the room of one session.
type roomObserver struct {
	room    string
	emitter Emitter
}

func observerFor(e Emitter) session.ObserverFactory {
	return func(id uuid.UUID) calc.Observer {
		return &roomObserver{room: id.String(), emitter: e}
	}
}

func (o *roomObserver) ValueChanged(e calc.ValueEvent) {
	o.emitter.Emit(o.room, EventValueChanged, ValuePayload{
		Session:    o.room,
		Calculator: e.Calculator,
		Variable:   e.Variable,
		Value:      session.JSONValue(e.Value),
		Formatted:  e.Formatted,
		Unit:       e.Unit,
	})
}

func (o *roomObserver) ValidationChanged(e calc.ValidationEvent) {
	o.emitter.Emit(o.room, EventValidationChanged, ValidationPayload{
		Session:    o.room,
		Calculator: e.Calculator,
		Variable:   e.Variable,
		Level:      e.Result.Level.String(),
		Message:    e.Result.Message,
		Border:     e.Result.Level.BorderColor(),
		Background: e.Result.Level.BackgroundColor(),
	})
}

func (o *roomObserver) DirectionChanged(e calc.DirectionEvent) {
	o.emitter.Emit(o.room, EventDirectionChanged, DirectionPayload{
		Session:    o.room,
		Calculator: e.Calculator,
		Variable:   e.Variable,
		Direction:  e.Direction.String(),
	})
}
