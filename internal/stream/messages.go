package stream

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/pathrecorder/internal/codec"
	"github.com/OCAP2/pathrecorder/pkg/core"
)

// TypePath is the envelope type carrying a full path document.
const TypePath = "path"

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewPathEnvelope encodes p with the path codec and wraps it.
func NewPathEnvelope(p core.Path) (Envelope, error) {
	doc, err := codec.Marshal(p)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: TypePath, Payload: doc}, nil
}

func encodeFrame(p core.Path) ([]byte, error) {
	env, err := NewPathEnvelope(p)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEncode, err)
	}
	return data, nil
}

// DecodePath extracts the path from a received frame.
func DecodePath(frame []byte) (core.Path, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return core.Path{}, fmt.Errorf("%w: %w", core.ErrDecode, err)
	}
	if env.Type != TypePath {
		return core.Path{}, fmt.Errorf("%w: unexpected message type %q", core.ErrDecode, env.Type)
	}
	return codec.Unmarshal(env.Payload)
}
