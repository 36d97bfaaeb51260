package send

import "context"

type TextRequest struct {
	Instance string `json:"-"`
	Phone    string `json:"phone"`
	Message  string `json:"message"`
	QuotedID string `json:"quoted_id,omitempty"`
}

type MediaRequest struct {
	Instance  string `json:"-"`
	Phone     string `json:"phone"`
	MediaType string `json:"media_type"` // image | video | document
	Media     string `json:"media"`      // URL or base64
	Caption   string `json:"caption,omitempty"`
	FileName  string `json:"file_name,omitempty"`
	Mimetype  string `json:"mimetype,omitempty"`
}

type StickerRequest struct {
	Instance string `json:"-"`
	Phone    string `json:"phone"`
	Sticker  string `json:"sticker"`
}

type AudioRequest struct {
	Instance string `json:"-"`
	Phone    string `json:"phone"`
	Audio    string `json:"audio"`
	PTT      bool   `json:"ptt,omitempty"`
}

type Response struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

type ISendUsecase interface {
	SendText(ctx context.Context, request TextRequest) (Response, error)
	SendMedia(ctx context.Context, request MediaRequest) (Response, error)
	SendSticker(ctx context.Context, request StickerRequest) (Response, error)
	SendAudio(ctx context.Context, request AudioRequest) (Response, error)
}
