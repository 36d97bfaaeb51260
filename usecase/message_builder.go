package usecase

import (
	"fmt"
	"time"

	domainChatStorage "github.com/wppweb/gateway/domains/chatstorage"
	domainProvider "github.com/wppweb/gateway/domains/provider"
	"github.com/wppweb/gateway/pkg/whatsapp"
)

// buildStoredMessage turns one provider message record into its storage
// row. Both the bulk synchronizer and the event ingestor go through this
// path so a message is canonicalized identically no matter how it arrived.
func buildStoredMessage(instanceID string, rec domainProvider.MessageRecord) (*domainChatStorage.Message, error) {
	if rec.Key.ID == "" {
		return nil, fmt.Errorf("message without provider id")
	}

	chatJID := whatsapp.NormalizeRemoteJID(rec.Key.RemoteJid)
	if chatJID == "" {
		return nil, fmt.Errorf("message %s has unparseable remoteJid %q", rec.Key.ID, rec.Key.RemoteJid)
	}

	cls := whatsapp.Classify(rec.Message)

	ts := time.Now().UTC()
	if rec.MessageTimestamp > 0 {
		ts = time.Unix(rec.MessageTimestamp.Int64(), 0).UTC()
	}

	var metadata domainChatStorage.JSONMap
	if rec.PushName != "" || cls.Location != nil || cls.Sticker != nil || cls.FileName != "" {
		metadata = domainChatStorage.JSONMap{}
		if rec.PushName != "" {
			metadata["push_name"] = rec.PushName
		}
		if cls.Location != nil {
			metadata["location"] = cls.Location
		}
		if cls.Sticker != nil {
			metadata["sticker"] = cls.Sticker
		}
		if cls.FileName != "" {
			metadata["file_name"] = cls.FileName
		}
	}

	return &domainChatStorage.Message{
		InstanceID:      instanceID,
		MessageID:       rec.Key.ID,
		ChatID:          chatJID,
		FromMe:          rec.Key.FromMe,
		Participant:     whatsapp.NormalizeRemoteJID(rec.Key.Participant),
		Type:            string(cls.Type),
		Content:         cls.Content,
		MediaURL:        cls.MediaURL,
		MediaMimeType:   cls.MediaMimeType,
		MediaSize:       cls.MediaSize,
		Status:          whatsapp.NormalizeStatus(rec.Status, rec.Key.FromMe),
		Timestamp:       ts,
		QuotedMessageID: cls.QuotedID,
		Metadata:        metadata,
	}, nil
}

func summaryOf(msg *domainChatStorage.Message) *domainChatStorage.LastMessageSummary {
	if msg == nil {
		return nil
	}
	return &domainChatStorage.LastMessageSummary{
		MessageID: msg.MessageID,
		Content:   msg.Content,
		Type:      msg.Type,
		FromMe:    msg.FromMe,
		Timestamp: msg.Timestamp,
		Status:    msg.Status,
	}
}

func groupMetadataOf(info *domainProvider.GroupInfo) *domainChatStorage.GroupMetadata {
	if info == nil {
		return nil
	}
	participants := make([]string, 0, len(info.Participants))
	for _, p := range info.Participants {
		participants = append(participants, p.ID)
	}
	return &domainChatStorage.GroupMetadata{
		Subject:      info.Subject,
		Creation:     info.Creation,
		Owner:        info.Owner,
		Description:  info.Desc,
		Participants: participants,
		Size:         info.Size,
	}
}
