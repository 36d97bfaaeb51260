package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/wppweb/gateway/config"
	domainChatStorage "github.com/wppweb/gateway/domains/chatstorage"
	domainEvent "github.com/wppweb/gateway/domains/event"
	domainInstance "github.com/wppweb/gateway/domains/instance"
	domainProvider "github.com/wppweb/gateway/domains/provider"
	domainRealtime "github.com/wppweb/gateway/domains/realtime"
	domainSync "github.com/wppweb/gateway/domains/sync"
	"github.com/wppweb/gateway/infrastructure/groupcache"
	"github.com/wppweb/gateway/pkg/msgworker"
	"github.com/wppweb/gateway/pkg/whatsapp"
)

// PushSubscriber (re)establishes the live push-channel subscription for an
// instance. Satisfied by the pushsocket manager; nil disables it.
type PushSubscriber interface {
	Ensure(instanceID string)
}

type serviceEvent struct {
	provider    domainProvider.IProviderClient
	repo        domainChatStorage.IChatStorageRepository
	instances   domainInstance.IInstanceRepository
	groups      *groupcache.Cache
	publisher   domainRealtime.IPublisher
	pool        *msgworker.Pool
	syncer      domainSync.ISyncUsecase
	push        PushSubscriber
	settleDelay time.Duration
}

func NewEventService(
	providerClient domainProvider.IProviderClient,
	repo domainChatStorage.IChatStorageRepository,
	instances domainInstance.IInstanceRepository,
	groups *groupcache.Cache,
	publisher domainRealtime.IPublisher,
	pool *msgworker.Pool,
	syncer domainSync.ISyncUsecase,
	push PushSubscriber,
) domainEvent.IEventUsecase {
	return &serviceEvent{
		provider:    providerClient,
		repo:        repo,
		instances:   instances,
		groups:      groups,
		publisher:   publisher,
		pool:        pool,
		syncer:      syncer,
		push:        push,
		settleDelay: config.SyncSettleDelay,
	}
}

// Ingest applies one live event. Per-message failures inside a batch are
// logged and the rest of the batch continues; the returned error covers
// event-level problems only.
func (s *serviceEvent) Ingest(ctx context.Context, instanceID string, evt domainEvent.Event) error {
	if _, err := s.instances.FindInstance(ctx, instanceID); err != nil {
		return err
	}

	switch e := evt.(type) {
	case domainEvent.QRCodeUpdated:
		return s.handleQRCode(ctx, instanceID, e)

	case domainEvent.ConnectionStateChanged:
		return s.handleConnectionUpdate(ctx, instanceID, e)

	case domainEvent.MessagesUpserted:
		for _, rec := range e.Messages {
			if err := s.processMessage(ctx, instanceID, rec); err != nil {
				logrus.WithError(err).Warnf("[EVENT] Skipping message %s on %s", rec.Key.ID, instanceID)
			}
		}
		return nil

	case domainEvent.MessageStatusChanged:
		for _, upd := range e.Updates {
			s.applyStatusUpdate(ctx, instanceID, upd)
		}
		return nil

	case domainEvent.ContactsChanged:
		s.publisher.Publish(instanceID, domainRealtime.EventContactsUpdated, map[string]any{"count": e.Count})
		return nil

	case domainEvent.ChatsChanged:
		s.publisher.Publish(instanceID, domainRealtime.EventChatsUpdated, map[string]any{"count": e.Count})
		return nil

	case domainEvent.PresenceChanged:
		s.publisher.Publish(instanceID, domainRealtime.EventPresence, map[string]any{
			"chat_id":  whatsapp.NormalizeRemoteJID(e.RemoteJid),
			"presence": e.Presence,
		})
		return nil

	case domainEvent.ApplicationStartup:
		logrus.Infof("[EVENT] Provider reports startup for instance %s", instanceID)
		return nil
	}

	return fmt.Errorf("unhandled event variant %T", evt)
}

func (s *serviceEvent) handleQRCode(ctx context.Context, instanceID string, e domainEvent.QRCodeUpdated) error {
	b64 := e.Base64
	if b64 == "" && e.Code != "" {
		// Some provider versions only send the raw pairing code; render
		// the PNG ourselves so the browser always gets an image.
		png, err := qrcode.Encode(e.Code, qrcode.Medium, 256)
		if err != nil {
			logrus.WithError(err).Warnf("[EVENT] Failed to render QR for %s", instanceID)
		} else {
			b64 = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
		}
	}

	if err := s.instances.UpdateInstance(ctx, instanceID, map[string]any{
		"status":  string(domainInstance.StatusQRCode),
		"qr_code": b64,
	}); err != nil {
		return fmt.Errorf("store qr state: %w", err)
	}

	s.publisher.Publish(instanceID, domainRealtime.EventQRCode, map[string]any{
		"qr_code": b64,
	})
	return nil
}

func (s *serviceEvent) handleConnectionUpdate(ctx context.Context, instanceID string, e domainEvent.ConnectionStateChanged) error {
	status := domainInstance.ParseConnectionState(e.State)

	patch := map[string]any{"status": string(status)}
	if status == domainInstance.StatusConnected {
		patch["qr_code"] = ""
		patch["last_seen"] = time.Now().UTC()
		if e.ProfileName != "" {
			patch["profile_name"] = e.ProfileName
		}
		if e.OwnerJid != "" {
			patch["phone"] = whatsapp.LocalPart(whatsapp.NormalizeRemoteJID(e.OwnerJid))
		}
	}
	if err := s.instances.UpdateInstance(ctx, instanceID, patch); err != nil {
		return fmt.Errorf("store connection state: %w", err)
	}

	s.publisher.Publish(instanceID, domainRealtime.EventConnection, map[string]any{
		"status":       string(status),
		"profile_name": e.ProfileName,
		"phone":        patch["phone"],
	})

	if status == domainInstance.StatusConnected {
		if s.push != nil {
			s.push.Ensure(instanceID)
		}
		s.scheduleFollowUpSync(instanceID)
	}
	return nil
}

// scheduleFollowUpSync hands a deferred full sync to the worker pool so
// the event path returns immediately. The settle delay gives the provider
// time to finish its own post-connect housekeeping before we start paging.
func (s *serviceEvent) scheduleFollowUpSync(instanceID string) {
	if s.syncer == nil || s.pool == nil {
		return
	}

	delay := s.settleDelay
	accepted := s.pool.TryDispatch(msgworker.Job{
		InstanceID: instanceID,
		ChatJID:    "follow-up-sync",
		Handler: func(ctx context.Context) error {
			sleepCtx(ctx, delay)
			_, err := s.syncer.Sync(ctx, instanceID)
			return err
		},
	})
	if !accepted {
		logrus.Warnf("[EVENT] Worker pool full, dropping follow-up sync for %s", instanceID)
	}
}

func (s *serviceEvent) applyStatusUpdate(ctx context.Context, instanceID string, upd domainEvent.StatusUpdate) {
	if upd.Key.ID == "" || upd.Status == "" {
		return
	}

	status := whatsapp.NormalizeStatus(upd.Status, upd.Key.FromMe)
	updated, err := s.repo.UpdateMessageStatus(ctx, instanceID, upd.Key.ID, status)
	if err != nil {
		logrus.WithError(err).Warnf("[EVENT] Status update failed for %s on %s", upd.Key.ID, instanceID)
		return
	}
	if !updated {
		return
	}

	s.publisher.Publish(instanceID, domainRealtime.EventMessageStatus, map[string]any{
		"message_id": upd.Key.ID,
		"chat_id":    whatsapp.NormalizeRemoteJID(upd.Key.RemoteJid),
		"status":     status,
	})
}

// processMessage runs the shared normalization and persistence pipeline
// for one live message.
func (s *serviceEvent) processMessage(ctx context.Context, instanceID string, rec domainProvider.MessageRecord) error {
	msg, err := buildStoredMessage(instanceID, rec)
	if err != nil {
		return err
	}
	jid := msg.ChatID
	isGroup := whatsapp.IsGroupJID(jid)

	var meta *domainChatStorage.GroupMetadata
	if isGroup {
		info := s.groups.GetGroupInfo(ctx, instanceID, jid, func(ctx context.Context) (*domainProvider.GroupInfo, error) {
			return s.provider.GetGroupInfo(ctx, instanceID, jid)
		})
		meta = groupMetadataOf(info)
	}

	name := ""
	if meta != nil {
		name = meta.Subject
	} else if !msg.FromMe {
		name = rec.PushName
	}

	contact, created, err := s.repo.FindOrCreateContact(ctx, instanceID, whatsapp.LocalPart(jid), &domainChatStorage.Contact{
		Name:          name,
		PushName:      rec.PushName,
		IsGroup:       isGroup,
		GroupMetadata: meta,
	})
	if err != nil {
		return fmt.Errorf("contact for %s: %w", jid, err)
	}
	if !created {
		patch := map[string]any{}
		if rec.PushName != "" && !msg.FromMe && rec.PushName != contact.PushName {
			patch["push_name"] = rec.PushName
		}
		if meta != nil && (contact.GroupMetadata == nil || contact.GroupMetadata.Subject != meta.Subject) {
			patch["group_metadata"] = meta
		}
		if len(patch) > 0 {
			if err := s.repo.UpdateContact(ctx, contact.ID, patch); err != nil {
				logrus.WithError(err).Warnf("[EVENT] Contact refresh failed for %s", jid)
			}
		}
	}

	chatRow, _, err := s.repo.FindOrCreateChat(ctx, instanceID, jid, &domainChatStorage.Chat{
		ContactID: &contact.ID,
	})
	if err != nil {
		return fmt.Errorf("chat for %s: %w", jid, err)
	}

	// Duplicate check by natural key. A replayed webhook may still carry a
	// fresher status, which is the only correction we apply.
	if existing, err := s.repo.FindMessage(ctx, instanceID, msg.MessageID); err != nil {
		return fmt.Errorf("duplicate check %s: %w", msg.MessageID, err)
	} else if existing != nil {
		if rec.Status != "" && msg.Status != existing.Status {
			s.applyStatusUpdate(ctx, instanceID, domainEvent.StatusUpdate{Key: rec.Key, Status: rec.Status})
		}
		return nil
	}

	msg.ContactID = &contact.ID
	inserted, err := s.repo.InsertMessageIfNew(ctx, msg)
	if err != nil {
		return fmt.Errorf("persist %s: %w", msg.MessageID, err)
	}
	if !inserted {
		// Lost the race against a concurrent sync; the message is stored.
		return nil
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateContact(ctx, contact.ID, map[string]any{"last_seen": now}); err != nil {
		logrus.WithError(err).Debugf("[EVENT] last_seen update failed for %s", jid)
	}

	if chatRow.LastMessageTime == nil || !msg.Timestamp.Before(*chatRow.LastMessageTime) {
		if err := s.repo.UpdateChat(ctx, chatRow.ID, map[string]any{
			"last_message":      summaryOf(msg),
			"last_message_time": msg.Timestamp,
		}); err != nil {
			logrus.WithError(err).Warnf("[EVENT] Chat summary update failed for %s", jid)
		}
	}

	if !msg.FromMe {
		unread, err := s.repo.IncrementUnread(ctx, chatRow.ID)
		if err != nil {
			logrus.WithError(err).Warnf("[EVENT] Unread increment failed for %s", jid)
		} else {
			s.publisher.Publish(instanceID, domainRealtime.EventChatUnread, map[string]any{
				"chat_id":      jid,
				"unread_count": unread,
			})
		}
	}

	s.publisher.Publish(instanceID, domainRealtime.EventMessageReceived, map[string]any{
		"chat_id": jid,
		"message": msg,
	})
	return nil
}
