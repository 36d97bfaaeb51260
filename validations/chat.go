package validations

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	domainChat "github.com/wppweb/gateway/domains/chat"
	pkgError "github.com/wppweb/gateway/pkg/error"
)

func ValidateListChats(ctx context.Context, request *domainChat.ListChatsRequest) error {
	err := validation.ValidateStructWithContext(ctx, request,
		validation.Field(&request.Instance, validation.Required),
		validation.Field(&request.Limit, validation.Min(0), validation.Max(200)),
		validation.Field(&request.Offset, validation.Min(0)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateListMessages(ctx context.Context, request *domainChat.ListMessagesRequest) error {
	err := validation.ValidateStructWithContext(ctx, request,
		validation.Field(&request.Instance, validation.Required),
		validation.Field(&request.ChatID, validation.Required),
		validation.Field(&request.Limit, validation.Min(0), validation.Max(200)),
		validation.Field(&request.Offset, validation.Min(0)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateMarkRead(ctx context.Context, request *domainChat.MarkReadRequest) error {
	err := validation.ValidateStructWithContext(ctx, request,
		validation.Field(&request.Instance, validation.Required),
		validation.Field(&request.ChatID, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidatePresence(ctx context.Context, request *domainChat.PresenceRequest) error {
	err := validation.ValidateStructWithContext(ctx, request,
		validation.Field(&request.Instance, validation.Required),
		validation.Field(&request.ChatID, validation.Required),
		validation.Field(&request.Presence, validation.Required,
			validation.In("composing", "recording", "paused", "available", "unavailable")),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
