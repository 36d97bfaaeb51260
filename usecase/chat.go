package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	domainChat "github.com/wppweb/gateway/domains/chat"
	domainChatStorage "github.com/wppweb/gateway/domains/chatstorage"
	domainProvider "github.com/wppweb/gateway/domains/provider"
	domainRealtime "github.com/wppweb/gateway/domains/realtime"
	pkgError "github.com/wppweb/gateway/pkg/error"
	"github.com/wppweb/gateway/pkg/whatsapp"
	"github.com/wppweb/gateway/validations"
)

type serviceChat struct {
	repo      domainChatStorage.IChatStorageRepository
	provider  domainProvider.IProviderClient
	publisher domainRealtime.IPublisher
}

func NewChatService(
	repo domainChatStorage.IChatStorageRepository,
	providerClient domainProvider.IProviderClient,
	publisher domainRealtime.IPublisher,
) domainChat.IChatUsecase {
	return &serviceChat{
		repo:      repo,
		provider:  providerClient,
		publisher: publisher,
	}
}

func (service serviceChat) ListChats(ctx context.Context, request domainChat.ListChatsRequest) (domainChat.ListChatsResponse, error) {
	var response domainChat.ListChatsResponse
	if err := validations.ValidateListChats(ctx, &request); err != nil {
		return response, err
	}
	if request.Limit == 0 {
		request.Limit = 50
	}

	chats, total, err := service.repo.ListChats(ctx, request.Instance, request.Limit, request.Offset, request.Search)
	if err != nil {
		return response, fmt.Errorf("list chats: %w", err)
	}

	response.Data = make([]domainChat.ChatInfo, 0, len(chats))
	for _, chat := range chats {
		response.Data = append(response.Data, mapChatInfo(chat))
	}
	response.Pagination = domainChat.PaginationResponse{
		Limit:  request.Limit,
		Offset: request.Offset,
		Total:  total,
	}
	return response, nil
}

func mapChatInfo(chat *domainChatStorage.Chat) domainChat.ChatInfo {
	info := domainChat.ChatInfo{
		ChatID:      chat.ChatID,
		Name:        whatsapp.LocalPart(chat.ChatID),
		IsGroup:     whatsapp.IsGroupJID(chat.ChatID),
		UnreadCount: chat.UnreadCount,
		Pinned:      chat.Pinned,
		Archived:    chat.Archived,
		Muted:       chat.Muted,
	}

	if contact := chat.Contact; contact != nil {
		info.ProfilePicURL = contact.ProfilePicURL
		switch {
		case contact.IsGroup && contact.GroupMetadata != nil && contact.GroupMetadata.Subject != "":
			info.Name = contact.GroupMetadata.Subject
		case contact.Name != "":
			info.Name = contact.Name
		case contact.PushName != "":
			info.Name = contact.PushName
		}
	}

	if lm := chat.LastMessage; lm != nil {
		info.LastMessage = &domainChat.LastMessageInfo{
			MessageID: lm.MessageID,
			Content:   lm.Content,
			Type:      lm.Type,
			FromMe:    lm.FromMe,
			Timestamp: lm.Timestamp,
			Status:    lm.Status,
		}
	}
	return info
}

// ListMessages pages through a chat's stored history oldest first, the way
// the conversation view consumes it.
func (service serviceChat) ListMessages(ctx context.Context, request domainChat.ListMessagesRequest) (domainChat.ListMessagesResponse, error) {
	var response domainChat.ListMessagesResponse
	if err := validations.ValidateListMessages(ctx, &request); err != nil {
		return response, err
	}
	if request.Limit == 0 {
		request.Limit = 50
	}

	jid := whatsapp.NormalizeRemoteJID(request.ChatID)
	if jid == "" {
		return response, pkgError.ValidationError(fmt.Sprintf("invalid chat id %q", request.ChatID))
	}

	msgs, total, err := service.repo.ListMessages(ctx, request.Instance, jid, request.Limit, request.Offset, request.Search)
	if err != nil {
		return response, fmt.Errorf("list messages for %s: %w", jid, err)
	}

	isGroup := whatsapp.IsGroupJID(jid)
	response.Data = make([]domainChat.MessageInfo, 0, len(msgs))
	for _, msg := range msgs {
		response.Data = append(response.Data, mapMessageInfo(msg, isGroup))
	}
	response.Pagination = domainChat.PaginationResponse{
		Limit:  request.Limit,
		Offset: request.Offset,
		Total:  total,
	}
	return response, nil
}

func mapMessageInfo(msg *domainChatStorage.Message, isGroup bool) domainChat.MessageInfo {
	info := domainChat.MessageInfo{
		MessageID:       msg.MessageID,
		ChatID:          msg.ChatID,
		FromMe:          msg.FromMe,
		Participant:     msg.Participant,
		Type:            msg.Type,
		Content:         msg.Content,
		MediaURL:        msg.MediaURL,
		MediaMimeType:   msg.MediaMimeType,
		Status:          msg.Status,
		Timestamp:       msg.Timestamp,
		QuotedMessageID: msg.QuotedMessageID,
		Metadata:        msg.Metadata,
	}

	// The push name recorded at ingest wins; the participant number is the
	// fallback when the sender never exposed one.
	if isGroup && !msg.FromMe {
		if name, ok := msg.Metadata["push_name"].(string); ok && name != "" {
			info.SenderName = name
		} else if msg.Participant != "" {
			info.SenderName = whatsapp.LocalPart(msg.Participant)
		}
	}
	return info
}

// MarkAsRead acknowledges messages on the provider and zeroes the local
// unread counter. Without explicit message ids the most recent incoming
// messages are acknowledged instead.
func (service serviceChat) MarkAsRead(ctx context.Context, request domainChat.MarkReadRequest) error {
	if err := validations.ValidateMarkRead(ctx, &request); err != nil {
		return err
	}

	jid := whatsapp.NormalizeRemoteJID(request.ChatID)
	chat, err := service.repo.FindChat(ctx, request.Instance, jid)
	if err != nil {
		return fmt.Errorf("find chat %s: %w", jid, err)
	}

	keys := make([]domainProvider.MessageKey, 0, len(request.MessageIDs))
	for _, id := range request.MessageIDs {
		keys = append(keys, domainProvider.MessageKey{ID: id, RemoteJid: jid})
	}
	if len(keys) == 0 {
		recent, err := service.repo.RecentMessages(ctx, request.Instance, jid, 10)
		if err != nil {
			return fmt.Errorf("recent messages for %s: %w", jid, err)
		}
		for _, msg := range recent {
			if msg.FromMe {
				continue
			}
			keys = append(keys, domainProvider.MessageKey{
				ID:          msg.MessageID,
				RemoteJid:   jid,
				Participant: msg.Participant,
			})
		}
	}

	if len(keys) > 0 {
		if err := service.provider.MarkRead(ctx, request.Instance, keys); err != nil {
			// The provider ack is best effort; the local counter still
			// resets so the UI stays consistent.
			logrus.WithError(err).Warnf("[CHAT] Provider mark-read failed for %s", jid)
		}
	}

	if chat != nil {
		if err := service.repo.ResetUnread(ctx, chat.ID); err != nil {
			return fmt.Errorf("reset unread for %s: %w", jid, err)
		}
		service.publisher.Publish(request.Instance, domainRealtime.EventChatUnread, map[string]any{
			"chat_id":      jid,
			"unread_count": 0,
		})
	}
	return nil
}

func (service serviceChat) SetArchived(ctx context.Context, request domainChat.ToggleRequest) error {
	return service.toggleFlag(ctx, request, "archived")
}

func (service serviceChat) SetPinned(ctx context.Context, request domainChat.ToggleRequest) error {
	return service.toggleFlag(ctx, request, "pinned")
}

func (service serviceChat) toggleFlag(ctx context.Context, request domainChat.ToggleRequest, column string) error {
	jid := whatsapp.NormalizeRemoteJID(request.ChatID)
	chat, err := service.repo.FindChat(ctx, request.Instance, jid)
	if err != nil {
		return fmt.Errorf("find chat %s: %w", jid, err)
	}
	if chat == nil {
		return pkgError.NotFoundError(fmt.Sprintf("chat %s not found", jid))
	}
	if err := service.repo.UpdateChat(ctx, chat.ID, map[string]any{column: request.Value}); err != nil {
		return fmt.Errorf("update %s for %s: %w", column, jid, err)
	}

	service.publisher.Publish(request.Instance, domainRealtime.EventChatsUpdated, map[string]any{
		"chat_id": jid,
		column:    request.Value,
	})
	return nil
}

func (service serviceChat) SetPresence(ctx context.Context, request domainChat.PresenceRequest) error {
	if err := validations.ValidatePresence(ctx, &request); err != nil {
		return err
	}
	jid := whatsapp.NormalizeRemoteJID(request.ChatID)
	return service.provider.SetPresence(ctx, request.Instance, jid, request.Presence)
}
