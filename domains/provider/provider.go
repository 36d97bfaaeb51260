package provider

import (
	"context"

	"github.com/wppweb/gateway/pkg/whatsapp"
)

// MessageKey identifies one message on the provider side.
type MessageKey struct {
	ID          string `json:"id"`
	RemoteJid   string `json:"remoteJid"`
	FromMe      bool   `json:"fromMe"`
	Participant string `json:"participant,omitempty"`
}

// MessageRecord is one item of a paginated message listing or a live
// messages.upsert event. Timestamps arrive quoted or plain depending on
// the provider version.
type MessageRecord struct {
	Key              MessageKey               `json:"key"`
	Message          *whatsapp.MessagePayload `json:"message"`
	MessageTimestamp whatsapp.Int64String     `json:"messageTimestamp"`
	Status           string                   `json:"status,omitempty"`
	PushName         string                   `json:"pushName,omitempty"`
}

// ChatRecord is one item of a paginated chat listing.
type ChatRecord struct {
	ID            string         `json:"id"`
	RemoteJid     string         `json:"remoteJid"`
	Name          string         `json:"name,omitempty"`
	PushName      string         `json:"pushName,omitempty"`
	ProfilePicURL string         `json:"profilePicUrl,omitempty"`
	UnreadCount   int            `json:"unreadCount,omitempty"`
	Pinned        bool           `json:"pinned,omitempty"`
	Archived      bool           `json:"archived,omitempty"`
	Muted         bool           `json:"muted,omitempty"`
	LastMessage   *MessageRecord `json:"lastMessage,omitempty"`
}

type GroupParticipant struct {
	ID    string `json:"id"`
	Admin string `json:"admin,omitempty"`
}

// GroupInfo is the provider's group metadata document.
type GroupInfo struct {
	ID           string             `json:"id"`
	Subject      string             `json:"subject"`
	Creation     int64              `json:"creation,omitempty"`
	Owner        string             `json:"owner,omitempty"`
	Desc         string             `json:"desc,omitempty"`
	Size         int                `json:"size,omitempty"`
	Participants []GroupParticipant `json:"participants,omitempty"`
}

type SendTextRequest struct {
	Number   string `json:"number"`
	Text     string `json:"text"`
	QuotedID string `json:"quotedId,omitempty"`
}

type SendMediaRequest struct {
	Number    string `json:"number"`
	MediaType string `json:"mediatype"` // image | video | document
	Media     string `json:"media"`     // URL or base64
	Caption   string `json:"caption,omitempty"`
	FileName  string `json:"fileName,omitempty"`
	Mimetype  string `json:"mimetype,omitempty"`
}

type SendStickerRequest struct {
	Number  string `json:"number"`
	Sticker string `json:"sticker"` // URL or base64 webp
}

type SendAudioRequest struct {
	Number string `json:"number"`
	Audio  string `json:"audio"` // URL or base64
	PTT    bool   `json:"ptt,omitempty"`
}

type SendResponse struct {
	Key    MessageKey `json:"key"`
	Status string     `json:"status,omitempty"`
}

// IProviderClient wraps the upstream WhatsApp provider's REST API. List
// calls signal end-of-data by returning an empty or undersized page.
// Implementations apply the transient-error retry policy internally, so a
// returned error is already final.
type IProviderClient interface {
	ListChats(ctx context.Context, instance string, page, pageSize int) ([]ChatRecord, error)
	ListMessages(ctx context.Context, instance, remoteJid string, page, pageSize int) ([]MessageRecord, error)
	GetGroupInfo(ctx context.Context, instance, groupJid string) (*GroupInfo, error)

	SendText(ctx context.Context, instance string, request SendTextRequest) (*SendResponse, error)
	SendMedia(ctx context.Context, instance string, request SendMediaRequest) (*SendResponse, error)
	SendSticker(ctx context.Context, instance string, request SendStickerRequest) (*SendResponse, error)
	SendAudio(ctx context.Context, instance string, request SendAudioRequest) (*SendResponse, error)

	MarkRead(ctx context.Context, instance string, keys []MessageKey) error
	SetPresence(ctx context.Context, instance, remoteJid, presence string) error
}
