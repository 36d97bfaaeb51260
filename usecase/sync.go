package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/wppweb/gateway/config"
	domainChatStorage "github.com/wppweb/gateway/domains/chatstorage"
	domainInstance "github.com/wppweb/gateway/domains/instance"
	domainProvider "github.com/wppweb/gateway/domains/provider"
	domainRealtime "github.com/wppweb/gateway/domains/realtime"
	domainSync "github.com/wppweb/gateway/domains/sync"
	"github.com/wppweb/gateway/infrastructure/groupcache"
	"github.com/wppweb/gateway/infrastructure/valkey"
	pkgError "github.com/wppweb/gateway/pkg/error"
	"github.com/wppweb/gateway/pkg/whatsapp"
)

type serviceSync struct {
	provider  domainProvider.IProviderClient
	repo      domainChatStorage.IChatStorageRepository
	instances domainInstance.IInstanceRepository
	groups    *groupcache.Cache
	publisher domainRealtime.IPublisher
	limiter   *valkey.SyncLimiter

	chatPageSize     int
	chatMaxPages     int
	messagePageSize  int
	messageMaxPages  int
	maxErrorLogs     int
	chatBatchSize    int
	chatBatchDelay   time.Duration
	groupBatchSize   int
	groupBatchDelay  time.Duration
	messagePageDelay time.Duration
}

func NewSyncService(
	providerClient domainProvider.IProviderClient,
	repo domainChatStorage.IChatStorageRepository,
	instances domainInstance.IInstanceRepository,
	groups *groupcache.Cache,
	publisher domainRealtime.IPublisher,
	limiter *valkey.SyncLimiter,
) domainSync.ISyncUsecase {
	return &serviceSync{
		provider:  providerClient,
		repo:      repo,
		instances: instances,
		groups:    groups,
		publisher: publisher,
		limiter:   limiter,

		chatPageSize:     config.SyncChatPageSize,
		chatMaxPages:     config.SyncChatMaxPages,
		messagePageSize:  config.SyncMessagePageSize,
		messageMaxPages:  config.SyncMessageMaxPages,
		maxErrorLogs:     config.SyncMaxErrorLogs,
		chatBatchSize:    config.SyncChatBatchSize,
		chatBatchDelay:   config.SyncChatBatchDelay,
		groupBatchSize:   config.SyncGroupBatchSize,
		groupBatchDelay:  config.SyncGroupBatchDelay,
		messagePageDelay: config.SyncMessagePageDelay,
	}
}

// Sync imports every chat and every message of one instance from the
// provider. One bad chat or message never aborts the run; only a failure
// to list chats at all does.
func (s *serviceSync) Sync(ctx context.Context, instanceID string) (*domainSync.Stats, error) {
	inst, err := s.instances.FindInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil && !s.limiter.Allow(ctx, instanceID) {
		return nil, pkgError.RateLimitError(fmt.Sprintf("sync rate limit reached for instance %s, try again later", instanceID))
	}

	stats := domainSync.NewStats(s.maxErrorLogs)
	started := time.Now()

	logrus.Infof("[SYNC] Starting full sync for instance %s", instanceID)
	s.publisher.Publish(instanceID, domainRealtime.EventSyncStart, map[string]any{
		"instance_id": instanceID,
	})
	s.publishProgress(instanceID, 10, "Fetching chats from provider", 0, 0, stats)

	chats, err := s.fetchAllChats(ctx, instanceID)
	if err != nil {
		stats.AddError(fmt.Sprintf("chat listing failed: %v", err))
		s.publisher.Publish(instanceID, domainRealtime.EventSyncComplete, map[string]any{
			"ok":       false,
			"error":    err.Error(),
			"counters": stats,
		})
		return stats, fmt.Errorf("list chats for %s: %w", instanceID, err)
	}

	groupMeta := s.prefetchGroupMetadata(ctx, instanceID, chats)

	total := len(chats)
	for i, chat := range chats {
		s.syncChat(ctx, instanceID, chat, groupMeta, stats)
		stats.ChatsProcessed++

		done := i + 1
		percent := 10 + int(float64(70*done)/float64(total))
		if percent > 85 {
			percent = 85
		}
		s.publishProgress(instanceID, percent, "Syncing chats", total, done, stats)

		// Pace writes so a large import does not saturate the store.
		if done%s.chatBatchSize == 0 && done < total {
			sleepCtx(ctx, s.chatBatchDelay)
		}
	}

	if err := s.instances.UpdateInstance(ctx, instanceID, map[string]any{
		"last_seen": time.Now().UTC(),
	}); err != nil {
		logrus.WithError(err).Warnf("[SYNC] Failed to update last_seen for %s", instanceID)
	}

	s.publishProgress(instanceID, 95, "Finalizing", total, total, stats)
	s.publishProgress(instanceID, 100, "Completed", total, total, stats)
	s.publisher.Publish(instanceID, domainRealtime.EventSyncComplete, map[string]any{
		"ok":       true,
		"counters": stats,
	})

	logrus.Infof("[SYNC] Instance %s (%s): %s chats, %s new messages, %s skipped, %d errors in %s",
		instanceID, inst.Name,
		humanize.Comma(int64(stats.ChatsProcessed)),
		humanize.Comma(int64(stats.MessagesCreated)),
		humanize.Comma(int64(stats.MessagesSkipped)),
		len(stats.Errors),
		time.Since(started).Round(time.Millisecond))

	return stats, nil
}

func (s *serviceSync) publishProgress(instanceID string, percent int, step string, total, done int, stats *domainSync.Stats) {
	s.publisher.Publish(instanceID, domainRealtime.EventSyncProgress, domainSync.Progress{
		Step:     step,
		Percent:  percent,
		Total:    total,
		Done:     done,
		Counters: stats,
	})
}

// fetchAllChats pages through the provider chat listing until a short page
// signals end-of-data.
func (s *serviceSync) fetchAllChats(ctx context.Context, instanceID string) ([]domainProvider.ChatRecord, error) {
	var all []domainProvider.ChatRecord

	for page := 1; page <= s.chatMaxPages; page++ {
		batch, err := s.provider.ListChats(ctx, instanceID, page, s.chatPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < s.chatPageSize {
			break
		}
	}
	return all, nil
}

// prefetchGroupMetadata warms the group cache for every group chat in the
// listing, in small concurrent batches with a pause in between so the
// burst load on the provider stays bounded. Failures are absorbed by the
// cache; the result map only holds groups that resolved.
func (s *serviceSync) prefetchGroupMetadata(ctx context.Context, instanceID string, chats []domainProvider.ChatRecord) map[string]*domainProvider.GroupInfo {
	var groupJids []string
	seen := make(map[string]struct{})
	for _, chat := range chats {
		jid := whatsapp.NormalizeRemoteJID(chatRemoteJid(chat))
		if jid == "" || !whatsapp.IsGroupJID(jid) {
			continue
		}
		if _, ok := seen[jid]; ok {
			continue
		}
		seen[jid] = struct{}{}
		groupJids = append(groupJids, jid)
	}

	result := make(map[string]*domainProvider.GroupInfo, len(groupJids))
	if len(groupJids) == 0 {
		return result
	}

	logrus.Infof("[SYNC] Prefetching metadata for %d groups on %s", len(groupJids), instanceID)

	var mu sync.Mutex
	for start := 0; start < len(groupJids); start += s.groupBatchSize {
		end := start + s.groupBatchSize
		if end > len(groupJids) {
			end = len(groupJids)
		}

		var wg sync.WaitGroup
		for _, jid := range groupJids[start:end] {
			wg.Add(1)
			go func(jid string) {
				defer wg.Done()
				info := s.groups.GetGroupInfo(ctx, instanceID, jid, func(ctx context.Context) (*domainProvider.GroupInfo, error) {
					return s.provider.GetGroupInfo(ctx, instanceID, jid)
				})
				if info != nil {
					mu.Lock()
					result[jid] = info
					mu.Unlock()
				}
			}(jid)
		}
		wg.Wait()

		if end < len(groupJids) {
			sleepCtx(ctx, s.groupBatchDelay)
		}
	}
	return result
}

func chatRemoteJid(chat domainProvider.ChatRecord) string {
	if chat.RemoteJid != "" {
		return chat.RemoteJid
	}
	return chat.ID
}

// syncChat imports one chat: contact, chat row, then every message page.
// All failures are recorded in stats and the caller moves on.
func (s *serviceSync) syncChat(ctx context.Context, instanceID string, chat domainProvider.ChatRecord, groupMeta map[string]*domainProvider.GroupInfo, stats *domainSync.Stats) {
	jid := whatsapp.NormalizeRemoteJID(chatRemoteJid(chat))
	if jid == "" {
		stats.AddError(fmt.Sprintf("chat with unparseable identifier %q", chatRemoteJid(chat)))
		return
	}
	isGroup := whatsapp.IsGroupJID(jid)

	var meta *domainChatStorage.GroupMetadata
	if isGroup {
		info, ok := groupMeta[jid]
		if !ok {
			// Not prefetched (listing raced a new group); the cache
			// absorbs the extra fetch.
			info = s.groups.GetGroupInfo(ctx, instanceID, jid, func(ctx context.Context) (*domainProvider.GroupInfo, error) {
				return s.provider.GetGroupInfo(ctx, instanceID, jid)
			})
		}
		meta = groupMetadataOf(info)
	}

	name := chat.Name
	if name == "" && meta != nil {
		name = meta.Subject
	}

	contact, contactCreated, err := s.repo.FindOrCreateContact(ctx, instanceID, whatsapp.LocalPart(jid), &domainChatStorage.Contact{
		Name:          name,
		PushName:      chat.PushName,
		ProfilePicURL: chat.ProfilePicURL,
		IsGroup:       isGroup,
		GroupMetadata: meta,
	})
	if err != nil {
		stats.AddError(fmt.Sprintf("contact for %s: %v", jid, err))
		return
	}
	if contactCreated {
		stats.ContactsCreated++
	} else {
		s.refreshContact(ctx, contact, name, chat.PushName, chat.ProfilePicURL, meta, stats)
	}

	chatRow, chatCreated, err := s.repo.FindOrCreateChat(ctx, instanceID, jid, &domainChatStorage.Chat{
		ContactID:   &contact.ID,
		UnreadCount: chat.UnreadCount,
		Pinned:      chat.Pinned,
		Archived:    chat.Archived,
		Muted:       chat.Muted,
	})
	if err != nil {
		stats.AddError(fmt.Sprintf("chat for %s: %v", jid, err))
		return
	}
	if chatCreated {
		stats.ChatsCreated++
	}

	s.syncChatMessages(ctx, instanceID, jid, contact.ID, stats)

	// The summary must reflect the freshest message that actually made it
	// into the store, not whatever the provider listing claimed.
	latest, err := s.repo.LatestMessage(ctx, instanceID, jid)
	if err != nil {
		stats.AddError(fmt.Sprintf("latest message for %s: %v", jid, err))
		return
	}
	if latest != nil {
		patch := map[string]any{
			"last_message":      summaryOf(latest),
			"last_message_time": latest.Timestamp,
			"unread_count":      chat.UnreadCount,
		}
		if err := s.repo.UpdateChat(ctx, chatRow.ID, patch); err != nil {
			stats.AddError(fmt.Sprintf("chat summary for %s: %v", jid, err))
		}
	}
}

func (s *serviceSync) refreshContact(ctx context.Context, contact *domainChatStorage.Contact, name, pushName, avatar string, meta *domainChatStorage.GroupMetadata, stats *domainSync.Stats) {
	patch := map[string]any{}
	if name != "" && name != contact.Name {
		patch["name"] = name
	}
	if pushName != "" && pushName != contact.PushName {
		patch["push_name"] = pushName
	}
	if avatar != "" && avatar != contact.ProfilePicURL {
		patch["profile_pic_url"] = avatar
	}
	if meta != nil {
		patch["group_metadata"] = meta
	}
	if len(patch) == 0 {
		return
	}
	if err := s.repo.UpdateContact(ctx, contact.ID, patch); err != nil {
		stats.AddError(fmt.Sprintf("contact refresh %s: %v", contact.Phone, err))
	}
}

func (s *serviceSync) syncChatMessages(ctx context.Context, instanceID, jid, contactID string, stats *domainSync.Stats) {
	existing, err := s.repo.ExistingMessageIDs(ctx, instanceID, jid)
	if err != nil {
		stats.AddError(fmt.Sprintf("existing ids for %s: %v", jid, err))
		existing = map[string]struct{}{}
	}

	for page := 1; page <= s.messageMaxPages; page++ {
		batch, err := s.provider.ListMessages(ctx, instanceID, jid, page, s.messagePageSize)
		if err != nil {
			stats.AddError(fmt.Sprintf("messages page %d for %s: %v", page, jid, err))
			return
		}

		for _, rec := range batch {
			if _, ok := existing[rec.Key.ID]; ok {
				stats.MessagesSkipped++
				continue
			}

			msg, err := buildStoredMessage(instanceID, rec)
			if err != nil {
				stats.AddError(err.Error())
				continue
			}
			msg.ContactID = &contactID

			created, err := s.repo.InsertMessageIfNew(ctx, msg)
			if err != nil {
				stats.AddError(fmt.Sprintf("persist %s: %v", rec.Key.ID, err))
				continue
			}
			if created {
				stats.MessagesCreated++
				existing[rec.Key.ID] = struct{}{}
			} else {
				stats.MessagesSkipped++
			}
		}

		if len(batch) < s.messagePageSize {
			return
		}
		sleepCtx(ctx, s.messagePageDelay)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
