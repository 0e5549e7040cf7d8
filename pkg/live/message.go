package live

import (
	"encoding/json"

	"github.com/vango-dev/vbind/internal/errors"
	"github.com/vango-dev/vbind/pkg/state"
)

// Message types.
const (
	TypeEvent  = "event"
	TypeCall   = "call"
	TypeRender = "render"
	TypeResult = "result"
	TypeError  = "error"
	TypeReload = "reload"
)

// ClientMessage is sent by browsers.
type ClientMessage struct {
	Type string `json:"type"`

	// Event fields.
	HID         string  `json:"hid,omitempty"`
	Event       string  `json:"event,omitempty"`
	Value       *string `json:"value,omitempty"`
	Data        string  `json:"data,omitempty"`
	Key         string  `json:"key,omitempty"`
	Checked     bool    `json:"checked,omitempty"`
	IsComposing bool    `json:"isComposing,omitempty"`

	// Call fields.
	Name string          `json:"name,omitempty"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ServerMessage is sent to browsers.
type ServerMessage struct {
	Type   string `json:"type"`
	HTML   string `json:"html,omitempty"`
	Name   string `json:"name,omitempty"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

func decodeMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.New(errors.CodeInvalidInput).WithDetail("malformed live message").Wrap(err)
	}
	switch msg.Type {
	case TypeEvent:
		if msg.HID == "" || msg.Event == "" {
			return nil, errors.New(errors.CodeInvalidInput).WithDetail("event message needs hid and event")
		}
	case TypeCall:
		if msg.Name == "" {
			return nil, errors.New(errors.CodeInvalidInput).WithDetail("call message needs name")
		}
	default:
		return nil, errors.New(errors.CodeInvalidInput).WithDetailf("unknown message type %q", msg.Type)
	}
	return &msg, nil
}

// args decodes the call arguments into engine values.
func (m *ClientMessage) args() ([]any, error) {
	if len(m.Args) == 0 {
		return nil, nil
	}
	v, err := state.FromJSON(m.Args)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput).WithDetail("call args must be JSON").Wrap(err)
	}
	arr, ok := v.(*state.Array)
	if !ok {
		return []any{v}, nil
	}
	return arr.Items(), nil
}

func errorMessage(err error) ServerMessage {
	msg := ServerMessage{Type: TypeError, Error: err.Error()}
	if ve, ok := errors.As(err); ok {
		msg.Code = ve.Code
		msg.Error = ve.FormatCompact()
		if ve.Wrapped != nil {
			msg.Error += ": " + ve.Wrapped.Error()
		}
	}
	return msg
}
