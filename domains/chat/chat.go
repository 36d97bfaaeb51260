package chat

import (
	"context"
	"time"
)

type ListChatsRequest struct {
	Instance string `json:"-"`
	Limit    int    `json:"limit" query:"limit"`
	Offset   int    `json:"offset" query:"offset"`
	Search   string `json:"search" query:"search"`
}

type LastMessageInfo struct {
	MessageID string    `json:"message_id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	FromMe    bool      `json:"from_me"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

type ChatInfo struct {
	ChatID        string           `json:"chat_id"`
	Name          string           `json:"name"`
	IsGroup       bool             `json:"is_group"`
	ProfilePicURL string           `json:"profile_pic_url,omitempty"`
	UnreadCount   int              `json:"unread_count"`
	Pinned        bool             `json:"pinned"`
	Archived      bool             `json:"archived"`
	Muted         bool             `json:"muted"`
	LastMessage   *LastMessageInfo `json:"last_message,omitempty"`
}

type PaginationResponse struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

type ListChatsResponse struct {
	Data       []ChatInfo         `json:"data"`
	Pagination PaginationResponse `json:"pagination"`
}

type ListMessagesRequest struct {
	Instance string `json:"-"`
	ChatID   string `json:"-"`
	Limit    int    `json:"limit" query:"limit"`
	Offset   int    `json:"offset" query:"offset"`
	Search   string `json:"search" query:"search"`
}

// MessageInfo is one rendered history entry. SenderName is only set on
// incoming group messages, where the UI labels each bubble with its author.
type MessageInfo struct {
	MessageID       string         `json:"message_id"`
	ChatID          string         `json:"chat_id"`
	FromMe          bool           `json:"from_me"`
	Participant     string         `json:"participant,omitempty"`
	SenderName      string         `json:"sender_name,omitempty"`
	Type            string         `json:"type"`
	Content         string         `json:"content"`
	MediaURL        string         `json:"media_url,omitempty"`
	MediaMimeType   string         `json:"media_mime_type,omitempty"`
	Status          string         `json:"status"`
	Timestamp       time.Time      `json:"timestamp"`
	QuotedMessageID string         `json:"quoted_message_id,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

type ListMessagesResponse struct {
	Data       []MessageInfo      `json:"data"`
	Pagination PaginationResponse `json:"pagination"`
}

type MarkReadRequest struct {
	Instance   string   `json:"-"`
	ChatID     string   `json:"-"`
	MessageIDs []string `json:"message_ids,omitempty"`
}

type ToggleRequest struct {
	Instance string `json:"-"`
	ChatID   string `json:"-"`
	Value    bool   `json:"value"`
}

type PresenceRequest struct {
	Instance string `json:"-"`
	ChatID   string `json:"-"`
	Presence string `json:"presence"` // composing | recording | paused | available
}

type IChatUsecase interface {
	ListChats(ctx context.Context, request ListChatsRequest) (ListChatsResponse, error)
	ListMessages(ctx context.Context, request ListMessagesRequest) (ListMessagesResponse, error)
	MarkAsRead(ctx context.Context, request MarkReadRequest) error
	SetArchived(ctx context.Context, request ToggleRequest) error
	SetPinned(ctx context.Context, request ToggleRequest) error
	SetPresence(ctx context.Context, request PresenceRequest) error
}
