package usecase

import (
	"context"

	domainProvider "github.com/wppweb/gateway/domains/provider"
	domainSend "github.com/wppweb/gateway/domains/send"
	"github.com/wppweb/gateway/validations"
)

type serviceSend struct {
	provider domainProvider.IProviderClient
}

func NewSendService(providerClient domainProvider.IProviderClient) domainSend.ISendUsecase {
	return &serviceSend{provider: providerClient}
}

func (service serviceSend) SendText(ctx context.Context, request domainSend.TextRequest) (domainSend.Response, error) {
	var response domainSend.Response
	if err := validations.ValidateSendText(ctx, &request); err != nil {
		return response, err
	}

	result, err := service.provider.SendText(ctx, request.Instance, domainProvider.SendTextRequest{
		Number:   request.Phone,
		Text:     request.Message,
		QuotedID: request.QuotedID,
	})
	if err != nil {
		return response, err
	}
	return mapSendResponse(result), nil
}

func (service serviceSend) SendMedia(ctx context.Context, request domainSend.MediaRequest) (domainSend.Response, error) {
	var response domainSend.Response
	if err := validations.ValidateSendMedia(ctx, &request); err != nil {
		return response, err
	}

	result, err := service.provider.SendMedia(ctx, request.Instance, domainProvider.SendMediaRequest{
		Number:    request.Phone,
		MediaType: request.MediaType,
		Media:     request.Media,
		Caption:   request.Caption,
		FileName:  request.FileName,
		Mimetype:  request.Mimetype,
	})
	if err != nil {
		return response, err
	}
	return mapSendResponse(result), nil
}

func (service serviceSend) SendSticker(ctx context.Context, request domainSend.StickerRequest) (domainSend.Response, error) {
	var response domainSend.Response
	if err := validations.ValidateSendSticker(ctx, &request); err != nil {
		return response, err
	}

	result, err := service.provider.SendSticker(ctx, request.Instance, domainProvider.SendStickerRequest{
		Number:  request.Phone,
		Sticker: request.Sticker,
	})
	if err != nil {
		return response, err
	}
	return mapSendResponse(result), nil
}

func (service serviceSend) SendAudio(ctx context.Context, request domainSend.AudioRequest) (domainSend.Response, error) {
	var response domainSend.Response
	if err := validations.ValidateSendAudio(ctx, &request); err != nil {
		return response, err
	}

	result, err := service.provider.SendAudio(ctx, request.Instance, domainProvider.SendAudioRequest{
		Number: request.Phone,
		Audio:  request.Audio,
		PTT:    request.PTT,
	})
	if err != nil {
		return response, err
	}
	return mapSendResponse(result), nil
}

func mapSendResponse(result *domainProvider.SendResponse) domainSend.Response {
	response := domainSend.Response{Status: "sent"}
	if result != nil {
		response.MessageID = result.Key.ID
		if result.Status != "" {
			response.Status = result.Status
		}
	}
	return response
}
