package validations

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	domainSend "github.com/wppweb/gateway/domains/send"
	pkgError "github.com/wppweb/gateway/pkg/error"
)

func ValidateSendText(ctx context.Context, request *domainSend.TextRequest) error {
	err := validation.ValidateStructWithContext(ctx, request,
		validation.Field(&request.Instance, validation.Required),
		validation.Field(&request.Phone, validation.Required),
		validation.Field(&request.Message, validation.Required, validation.Length(1, 65536)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateSendMedia(ctx context.Context, request *domainSend.MediaRequest) error {
	err := validation.ValidateStructWithContext(ctx, request,
		validation.Field(&request.Instance, validation.Required),
		validation.Field(&request.Phone, validation.Required),
		validation.Field(&request.MediaType, validation.Required,
			validation.In("image", "video", "document")),
		validation.Field(&request.Media, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateSendSticker(ctx context.Context, request *domainSend.StickerRequest) error {
	err := validation.ValidateStructWithContext(ctx, request,
		validation.Field(&request.Instance, validation.Required),
		validation.Field(&request.Phone, validation.Required),
		validation.Field(&request.Sticker, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateSendAudio(ctx context.Context, request *domainSend.AudioRequest) error {
	err := validation.ValidateStructWithContext(ctx, request,
		validation.Field(&request.Instance, validation.Required),
		validation.Field(&request.Phone, validation.Required),
		validation.Field(&request.Audio, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
