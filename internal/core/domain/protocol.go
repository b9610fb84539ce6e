package domain

import (
	"encoding/json"
	"fmt"
)

// Inbound events
const (
	EventSignIn      = "signIn"
	EventSendMessage = "sendMessage"
	EventSignOut     = "signOut"
	EventGreeting    = "chat message"
)

// Outbound events
const (
	EventSignedIn        = "signedIn"
	EventMessageReceived = "messageReceived"
	EventErrorNotice     = "errorNotice"
	EventBroadcastNotice = "broadcastNotice"
	EventWelcome         = "welcome"
)

// Envelope wraps every frame on the wire in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SignIn announces the identity bound to a connection, optionally naming a
// peer to notify.
type SignIn struct {
	Identity       Identity `json:"id"`
	TargetIdentity Identity `json:"targetId,omitempty"`
}

// SendMessage is the inbound shape of a directed message
type SendMessage struct {
	Sender  Identity        `json:"sourceId"`
	Target  Identity        `json:"targetId"`
	Message json.RawMessage `json:"message"`
	Path    string          `json:"path,omitempty"`
	IsImage bool            `json:"isImage,omitempty"`
}

func (m SendMessage) Directed() DirectedMessage {
	return DirectedMessage{
		Sender:  m.Sender,
		Target:  m.Target,
		Payload: m.Message,
		Path:    m.Path,
		IsImage: m.IsImage,
	}
}

// Greeting is the one-shot hello a client sends after connecting
type Greeting struct {
	Name string `json:"name"`
}

// SignedIn is delivered to a peer or back to the signer as acknowledgment
type SignedIn struct {
	Identity Identity `json:"id"`
}

// MessageReceived carries a directed message to its recipient
type MessageReceived struct {
	Sender  Identity        `json:"sourceId"`
	Message json.RawMessage `json:"message"`
	Path    string          `json:"path,omitempty"`
	IsImage bool            `json:"isImage,omitempty"`
}

// ErrorNotice is the WS-safe error frame
type ErrorNotice struct {
	Code   string   `json:"code"`
	Error  string   `json:"error"`
	Target Identity `json:"targetId,omitempty"`
}

// Encode marshals an outbound frame.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// EncodeRaw wraps an already encoded payload without re-marshalling it.
func EncodeRaw(event string, data json.RawMessage) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Data: data})
}
