package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainProvider "github.com/wppweb/gateway/domains/provider"
	domainSend "github.com/wppweb/gateway/domains/send"
	pkgError "github.com/wppweb/gateway/pkg/error"
)

func TestSendTextMapsProviderResponse(t *testing.T) {
	provider := &fakeProvider{
		sendFn: func(string) (*domainProvider.SendResponse, error) {
			return &domainProvider.SendResponse{
				Key:    domainProvider.MessageKey{ID: "OUT-1", FromMe: true},
				Status: "PENDING",
			}, nil
		},
	}
	service := NewSendService(provider)

	resp, err := service.SendText(context.Background(), domainSend.TextRequest{
		Instance: "tenant-a",
		Phone:    "5511988887777",
		Message:  "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "OUT-1", resp.MessageID)
	assert.Equal(t, "PENDING", resp.Status)
}

func TestSendTextRejectsEmptyMessage(t *testing.T) {
	service := NewSendService(&fakeProvider{})

	_, err := service.SendText(context.Background(), domainSend.TextRequest{
		Instance: "tenant-a",
		Phone:    "5511988887777",
	})
	require.Error(t, err)
	var ve pkgError.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSendMediaRejectsUnknownType(t *testing.T) {
	service := NewSendService(&fakeProvider{})

	_, err := service.SendMedia(context.Background(), domainSend.MediaRequest{
		Instance:  "tenant-a",
		Phone:     "5511988887777",
		MediaType: "hologram",
		Media:     "https://example.com/file",
	})
	require.Error(t, err)
	var ve pkgError.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSendStickerDefaultsStatus(t *testing.T) {
	service := NewSendService(&fakeProvider{})

	resp, err := service.SendSticker(context.Background(), domainSend.StickerRequest{
		Instance: "tenant-a",
		Phone:    "5511988887777",
		Sticker:  "https://example.com/sticker.webp",
	})
	require.NoError(t, err)
	assert.Equal(t, "sent", resp.Status)
	assert.NotEmpty(t, resp.MessageID)
}
