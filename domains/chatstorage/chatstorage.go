package chatstorage

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONMap stores a free-form object as a JSON text column. Works on both
// sqlite and postgres.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return fmt.Errorf("unsupported JSONMap source type %T", value)
}

// GroupMetadata is the cached provider group document as persisted on the
// contact row.
type GroupMetadata struct {
	Subject      string   `json:"subject"`
	Creation     int64    `json:"creation,omitempty"`
	Owner        string   `json:"owner,omitempty"`
	Description  string   `json:"description,omitempty"`
	Participants []string `json:"participants,omitempty"`
	Size         int      `json:"size,omitempty"`
}

func (g *GroupMetadata) Value() (driver.Value, error) {
	if g == nil {
		return nil, nil
	}
	return json.Marshal(g)
}

func (g *GroupMetadata) Scan(value any) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, g)
	case string:
		return json.Unmarshal([]byte(v), g)
	}
	return fmt.Errorf("unsupported GroupMetadata source type %T", value)
}

type Contact struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	InstanceID    string         `gorm:"size:64;uniqueIndex:idx_contact_natural;not null" json:"instance_id"`
	Phone         string         `gorm:"size:64;uniqueIndex:idx_contact_natural;not null" json:"phone"`
	Name          string         `gorm:"size:255" json:"name,omitempty"`
	PushName      string         `gorm:"size:255" json:"push_name,omitempty"`
	ProfilePicURL string         `gorm:"size:512" json:"profile_pic_url,omitempty"`
	IsGroup       bool           `json:"is_group"`
	GroupMetadata *GroupMetadata `gorm:"type:text" json:"group_metadata,omitempty"`
	LastSeen      *time.Time     `json:"last_seen,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// LastMessageSummary is the denormalized snapshot kept on the chat row.
type LastMessageSummary struct {
	MessageID string    `json:"message_id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	FromMe    bool      `json:"from_me"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

func (s *LastMessageSummary) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *LastMessageSummary) Scan(value any) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return fmt.Errorf("unsupported LastMessageSummary source type %T", value)
}

type Chat struct {
	ID              string              `gorm:"primaryKey;size:36" json:"id"`
	InstanceID      string              `gorm:"size:64;uniqueIndex:idx_chat_natural;not null" json:"instance_id"`
	ChatID          string              `gorm:"size:128;uniqueIndex:idx_chat_natural;not null" json:"chat_id"`
	ContactID       *string             `gorm:"size:36;index" json:"contact_id,omitempty"`
	Contact         *Contact            `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	LastMessage     *LastMessageSummary `gorm:"type:text" json:"last_message,omitempty"`
	LastMessageTime *time.Time          `gorm:"index" json:"last_message_time,omitempty"`
	UnreadCount     int                 `gorm:"default:0" json:"unread_count"`
	Pinned          bool                `json:"pinned"`
	Archived        bool                `json:"archived"`
	Muted           bool                `json:"muted"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type Message struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	InstanceID      string    `gorm:"size:64;uniqueIndex:idx_message_natural;not null" json:"instance_id"`
	MessageID       string    `gorm:"size:128;uniqueIndex:idx_message_natural;not null" json:"message_id"`
	ChatID          string    `gorm:"size:128;index:idx_message_chat;not null" json:"chat_id"`
	ChatRowID       *string   `gorm:"size:36" json:"-"`
	ContactID       *string   `gorm:"size:36" json:"contact_id,omitempty"`
	FromMe          bool      `json:"from_me"`
	Participant     string    `gorm:"size:128" json:"participant,omitempty"`
	Type            string    `gorm:"size:32;not null" json:"type"`
	Content         string    `gorm:"type:text" json:"content"`
	MediaURL        string    `gorm:"size:1024" json:"media_url,omitempty"`
	MediaMimeType   string    `gorm:"size:128" json:"media_mime_type,omitempty"`
	MediaSize       int64     `json:"media_size,omitempty"`
	Status          string    `gorm:"size:32" json:"status"`
	Timestamp       time.Time `gorm:"index:idx_message_chat" json:"timestamp"`
	QuotedMessageID string    `gorm:"size:128" json:"quoted_message_id,omitempty"`
	Metadata        JSONMap   `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IChatStorageRepository is the persistence gateway shared by the bulk
// synchronizer and the event ingestor. Find-or-create operations are keyed
// by natural key and report whether a row was created. InsertMessageIfNew
// must be atomic on the (instance_id, message_id) unique index so a live
// event racing a bulk sync cannot double-insert.
type IChatStorageRepository interface {
	InitializeSchema() error

	FindOrCreateContact(ctx context.Context, instanceID, phone string, defaults *Contact) (*Contact, bool, error)
	UpdateContact(ctx context.Context, id string, patch map[string]any) error

	FindOrCreateChat(ctx context.Context, instanceID, chatID string, defaults *Chat) (*Chat, bool, error)
	UpdateChat(ctx context.Context, id string, patch map[string]any) error
	FindChat(ctx context.Context, instanceID, chatID string) (*Chat, error)
	ListChats(ctx context.Context, instanceID string, limit, offset int, search string) ([]*Chat, int64, error)
	IncrementUnread(ctx context.Context, id string) (int, error)
	ResetUnread(ctx context.Context, id string) error

	InsertMessageIfNew(ctx context.Context, msg *Message) (bool, error)
	FindMessage(ctx context.Context, instanceID, messageID string) (*Message, error)
	UpdateMessageStatus(ctx context.Context, instanceID, messageID, status string) (bool, error)
	ExistingMessageIDs(ctx context.Context, instanceID, chatID string) (map[string]struct{}, error)
	LatestMessage(ctx context.Context, instanceID, chatID string) (*Message, error)
	RecentMessages(ctx context.Context, instanceID, chatID string, limit int) ([]*Message, error)
	ListMessages(ctx context.Context, instanceID, chatID string, limit, offset int, search string) ([]*Message, int64, error)
	CountMessages(ctx context.Context, instanceID string) (int64, error)
}
