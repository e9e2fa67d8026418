package domain

import (
	"encoding/json"
	"fmt"
)

// Op is the operation requested by an inbound message.
type Op int

const (
	OpSubscribe Op = iota
	OpUnsubscribe
)

// String returns the wire name of the operation.
func (o Op) String() string {
	switch o {
	case OpSubscribe:
		return "Subscribe"
	case OpUnsubscribe:
		return "Unsubscribe"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// ParseOp maps a wire name to its Op.
func ParseOp(s string) (Op, error) {
	switch s {
	case "Subscribe":
		return OpSubscribe, nil
	case "Unsubscribe":
		return OpUnsubscribe, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOp, s)
	}
}

// Message is a decoded inbound subscription request.
type Message struct {
	Op      Op
	Payload Category
	Target  string
}

// wireMessage mirrors the raw envelope so that missing fields are
// distinguishable from unknown values.
type wireMessage struct {
	Op      string `json:"op"`
	Payload string `json:"payload"`
	Target  string `json:"target"`
}

// DecodeMessage parses and validates an inbound message. A missing or
// unknown op or payload, and a missing target on an Object request, are
// decode errors; the transport treats those as connection-level failures.
func DecodeMessage(data []byte) (*Message, error) {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	if wire.Op == "" {
		return nil, fmt.Errorf("%w: missing op", ErrInvalidMessage)
	}
	if wire.Payload == "" {
		return nil, fmt.Errorf("%w: missing payload", ErrInvalidMessage)
	}

	op, err := ParseOp(wire.Op)
	if err != nil {
		return nil, err
	}

	payload, err := ParseCategory(wire.Payload)
	if err != nil {
		return nil, err
	}

	if payload == CategoryObject && wire.Target == "" {
		return nil, fmt.Errorf("%w: missing target for Object request", ErrInvalidMessage)
	}

	return &Message{
		Op:      op,
		Payload: payload,
		Target:  wire.Target,
	}, nil
}

// Envelope is the frame wrapping every broadcast delivery.
type Envelope struct {
	Subscription string          `json:"subscription"`
	Payload      json.RawMessage `json:"payload"`
}

// EncodeEnvelope serializes the broadcast frame for a candidate.
func EncodeEnvelope(candidate Candidate) ([]byte, error) {
	return json.Marshal(Envelope{
		Subscription: candidate.Category.String(),
		Payload:      candidate.Payload,
	})
}
