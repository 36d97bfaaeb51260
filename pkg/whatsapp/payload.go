package whatsapp

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Int64String accepts both numeric and quoted-numeric JSON values. The
// provider serializes protobuf uint64 fields (file sizes) as strings, but
// older payloads carry plain numbers.
type Int64String int64

func (n *Int64String) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*n = Int64String(v)
	return nil
}

func (n Int64String) Int64() int64 { return int64(n) }

// MessagePayload mirrors the provider's message envelope. Exactly one of
// the variant fields is populated for a well-formed message.
type MessagePayload struct {
	Conversation        string               `json:"conversation,omitempty"`
	ExtendedTextMessage *ExtendedTextMessage `json:"extendedTextMessage,omitempty"`
	ImageMessage        *MediaMessage        `json:"imageMessage,omitempty"`
	VideoMessage        *MediaMessage        `json:"videoMessage,omitempty"`
	AudioMessage        *MediaMessage        `json:"audioMessage,omitempty"`
	DocumentMessage     *DocumentMessage     `json:"documentMessage,omitempty"`
	StickerMessage      *StickerMessage      `json:"stickerMessage,omitempty"`
	LocationMessage     *LocationMessage     `json:"locationMessage,omitempty"`
	ContactMessage      *ContactMessage      `json:"contactMessage,omitempty"`
	ProtocolMessage     json.RawMessage      `json:"protocolMessage,omitempty"`
}

type ExtendedTextMessage struct {
	Text        string       `json:"text"`
	ContextInfo *ContextInfo `json:"contextInfo,omitempty"`
}

type ContextInfo struct {
	StanzaID    string `json:"stanzaId,omitempty"`
	Participant string `json:"participant,omitempty"`
}

type MediaMessage struct {
	URL         string       `json:"url,omitempty"`
	Mimetype    string       `json:"mimetype,omitempty"`
	FileLength  Int64String  `json:"fileLength,omitempty"`
	Caption     string       `json:"caption,omitempty"`
	Seconds     int          `json:"seconds,omitempty"`
	PTT         bool         `json:"ptt,omitempty"`
	ContextInfo *ContextInfo `json:"contextInfo,omitempty"`
}

type DocumentMessage struct {
	URL         string       `json:"url,omitempty"`
	Mimetype    string       `json:"mimetype,omitempty"`
	FileName    string       `json:"fileName,omitempty"`
	Title       string       `json:"title,omitempty"`
	Caption     string       `json:"caption,omitempty"`
	FileLength  Int64String  `json:"fileLength,omitempty"`
	ContextInfo *ContextInfo `json:"contextInfo,omitempty"`
}

type StickerMessage struct {
	URL        string      `json:"url,omitempty"`
	Mimetype   string      `json:"mimetype,omitempty"`
	FileLength Int64String `json:"fileLength,omitempty"`
	IsAnimated bool        `json:"isAnimated,omitempty"`
}

type LocationMessage struct {
	DegreesLatitude  float64 `json:"degreesLatitude"`
	DegreesLongitude float64 `json:"degreesLongitude"`
	Name             string  `json:"name,omitempty"`
	Address          string  `json:"address,omitempty"`
	URL              string  `json:"url,omitempty"`
}

type ContactMessage struct {
	DisplayName string `json:"displayName,omitempty"`
	Vcard       string `json:"vcard,omitempty"`
}
