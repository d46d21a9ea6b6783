package push

import (
	"time"

	"github.com/thenoetrevino/collabflow/internal/models"
)

// ProtocolVersion is stamped on every message. Peers log a mismatch but keep
// talking.
const ProtocolVersion = 1

// MessageType names a wire message.
type MessageType string

const (
	TypeSubscribe MessageType = "subscribe"
	TypePush      MessageType = "push"
	TypeDelivery  MessageType = "delivery"
	TypePing      MessageType = "ping"
	TypePong      MessageType = "pong"
	TypeAck       MessageType = "ack"
)

// Subscribe registers a connection as a device of a user.
type Subscribe struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// Push asks the relay to deliver a payload to every device of a user.
type Push struct {
	UserID  string             `json:"userId"`
	Payload models.PushPayload `json:"payload"`
}

// Delivery is a push as received by a device.
type Delivery struct {
	SequenceID int64              `json:"sequenceId"`
	UserID     string             `json:"userId"`
	Payload    models.PushPayload `json:"payload"`
	SentAt     time.Time          `json:"sentAt"`
}

// Ack confirms a subscription.
type Ack struct {
	UserID string `json:"userId"`
}

// Message is one JSON line on the relay socket.
type Message struct {
	Version   int         `json:"version"`
	Type      MessageType `json:"type"`
	Subscribe *Subscribe  `json:"subscribe,omitempty"`
	Push      *Push       `json:"push,omitempty"`
	Delivery  *Delivery   `json:"delivery,omitempty"`
	Ack       *Ack        `json:"ack,omitempty"`
}
