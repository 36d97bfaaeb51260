package event

import (
	"encoding/json"
	"fmt"

	"github.com/wppweb/gateway/domains/provider"
)

// Event is the closed set of live provider events the ingestor understands.
// Dispatch happens through a type switch, so adding a variant is a
// compile-time-checked change.
type Event interface {
	isEvent()
}

type QRCodeUpdated struct {
	Code   string
	Base64 string
}

type ConnectionStateChanged struct {
	State       string
	ProfileName string
	OwnerJid    string
}

type MessagesUpserted struct {
	Messages []provider.MessageRecord
}

type StatusUpdate struct {
	Key    provider.MessageKey `json:"key"`
	Status string              `json:"status"`
}

type MessageStatusChanged struct {
	Updates []StatusUpdate
}

type ContactsChanged struct {
	Count int
}

type ChatsChanged struct {
	Count int
}

type PresenceChanged struct {
	RemoteJid string
	Presence  string
}

type ApplicationStartup struct{}

func (QRCodeUpdated) isEvent()          {}
func (ConnectionStateChanged) isEvent() {}
func (MessagesUpserted) isEvent()       {}
func (MessageStatusChanged) isEvent()   {}
func (ContactsChanged) isEvent()        {}
func (ChatsChanged) isEvent()           {}
func (PresenceChanged) isEvent()        {}
func (ApplicationStartup) isEvent()     {}

// ErrUnknownEvent marks provider event names this gateway does not consume.
// Callers usually log and drop these.
type ErrUnknownEvent struct {
	Name string
}

func (e *ErrUnknownEvent) Error() string {
	return fmt.Sprintf("unknown provider event %q", e.Name)
}

type qrcodePayload struct {
	QRCode struct {
		Code   string `json:"code"`
		Base64 string `json:"base64"`
	} `json:"qrcode"`
	Code   string `json:"code"`
	Base64 string `json:"base64"`
}

type connectionPayload struct {
	State        string `json:"state"`
	StatusReason int    `json:"statusReason,omitempty"`
	ProfileName  string `json:"profileName,omitempty"`
	OwnerJid     string `json:"wuid,omitempty"`
}

type presencePayload struct {
	ID        string `json:"id"`
	Presences map[string]struct {
		LastKnownPresence string `json:"lastKnownPresence"`
	} `json:"presences,omitempty"`
}

// Decode maps a provider webhook/socket event name plus its raw data body
// onto an Event variant. The messages body tolerates the provider's three
// historical shapes: a bare object, a bare array, and {messages:[...]}.
func Decode(name string, data json.RawMessage) (Event, error) {
	switch name {
	case "qrcode.updated":
		var p qrcodePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode qrcode.updated: %w", err)
		}
		code := p.QRCode.Code
		if code == "" {
			code = p.Code
		}
		b64 := p.QRCode.Base64
		if b64 == "" {
			b64 = p.Base64
		}
		return QRCodeUpdated{Code: code, Base64: b64}, nil

	case "connection.update":
		var p connectionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode connection.update: %w", err)
		}
		return ConnectionStateChanged{State: p.State, ProfileName: p.ProfileName, OwnerJid: p.OwnerJid}, nil

	case "messages.upsert":
		records, err := decodeMessages(data)
		if err != nil {
			return nil, fmt.Errorf("decode messages.upsert: %w", err)
		}
		return MessagesUpserted{Messages: records}, nil

	case "messages.update":
		updates, err := decodeStatusUpdates(data)
		if err != nil {
			return nil, fmt.Errorf("decode messages.update: %w", err)
		}
		return MessageStatusChanged{Updates: updates}, nil

	case "contacts.upsert", "contacts.update":
		var items []json.RawMessage
		_ = json.Unmarshal(data, &items)
		return ContactsChanged{Count: len(items)}, nil

	case "chats.upsert", "chats.update":
		var items []json.RawMessage
		_ = json.Unmarshal(data, &items)
		return ChatsChanged{Count: len(items)}, nil

	case "presence.update":
		var p presencePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode presence.update: %w", err)
		}
		presence := ""
		for _, v := range p.Presences {
			presence = v.LastKnownPresence
			break
		}
		return PresenceChanged{RemoteJid: p.ID, Presence: presence}, nil

	case "application.startup":
		return ApplicationStartup{}, nil
	}

	return nil, &ErrUnknownEvent{Name: name}
}

func decodeMessages(data json.RawMessage) ([]provider.MessageRecord, error) {
	var wrapped struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Messages) > 0 {
		data = wrapped.Messages
	}

	var many []provider.MessageRecord
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}

	var one provider.MessageRecord
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	return []provider.MessageRecord{one}, nil
}

func decodeStatusUpdates(data json.RawMessage) ([]StatusUpdate, error) {
	var many []StatusUpdate
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}

	var one StatusUpdate
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	return []StatusUpdate{one}, nil
}
