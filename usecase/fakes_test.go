package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	domainChatStorage "github.com/wppweb/gateway/domains/chatstorage"
	domainInstance "github.com/wppweb/gateway/domains/instance"
	domainProvider "github.com/wppweb/gateway/domains/provider"
	domainSync "github.com/wppweb/gateway/domains/sync"
	pkgError "github.com/wppweb/gateway/pkg/error"
)

// fakeProvider is a scriptable IProviderClient that counts calls.
type fakeProvider struct {
	mu sync.Mutex

	listChatsFn    func(instance string, page, pageSize int) ([]domainProvider.ChatRecord, error)
	listMessagesFn func(instance, remoteJid string, page, pageSize int) ([]domainProvider.MessageRecord, error)
	groupInfoFn    func(instance, groupJid string) (*domainProvider.GroupInfo, error)
	sendFn         func(number string) (*domainProvider.SendResponse, error)

	listChatsCalls    int
	listMessagesCalls int
	groupInfoCalls    int
	markReadKeys      []domainProvider.MessageKey
	presenceCalls     []string
}

func (f *fakeProvider) ListChats(_ context.Context, instance string, page, pageSize int) ([]domainProvider.ChatRecord, error) {
	f.mu.Lock()
	f.listChatsCalls++
	f.mu.Unlock()
	if f.listChatsFn == nil {
		return nil, nil
	}
	return f.listChatsFn(instance, page, pageSize)
}

func (f *fakeProvider) ListMessages(_ context.Context, instance, remoteJid string, page, pageSize int) ([]domainProvider.MessageRecord, error) {
	f.mu.Lock()
	f.listMessagesCalls++
	f.mu.Unlock()
	if f.listMessagesFn == nil {
		return nil, nil
	}
	return f.listMessagesFn(instance, remoteJid, page, pageSize)
}

func (f *fakeProvider) GetGroupInfo(_ context.Context, instance, groupJid string) (*domainProvider.GroupInfo, error) {
	f.mu.Lock()
	f.groupInfoCalls++
	f.mu.Unlock()
	if f.groupInfoFn == nil {
		return nil, nil
	}
	return f.groupInfoFn(instance, groupJid)
}

func (f *fakeProvider) SendText(_ context.Context, _ string, req domainProvider.SendTextRequest) (*domainProvider.SendResponse, error) {
	return f.send(req.Number)
}

func (f *fakeProvider) SendMedia(_ context.Context, _ string, req domainProvider.SendMediaRequest) (*domainProvider.SendResponse, error) {
	return f.send(req.Number)
}

func (f *fakeProvider) SendSticker(_ context.Context, _ string, req domainProvider.SendStickerRequest) (*domainProvider.SendResponse, error) {
	return f.send(req.Number)
}

func (f *fakeProvider) SendAudio(_ context.Context, _ string, req domainProvider.SendAudioRequest) (*domainProvider.SendResponse, error) {
	return f.send(req.Number)
}

func (f *fakeProvider) send(number string) (*domainProvider.SendResponse, error) {
	if f.sendFn == nil {
		return &domainProvider.SendResponse{Key: domainProvider.MessageKey{ID: "SENT-" + number}}, nil
	}
	return f.sendFn(number)
}

func (f *fakeProvider) MarkRead(_ context.Context, _ string, keys []domainProvider.MessageKey) error {
	f.mu.Lock()
	f.markReadKeys = append(f.markReadKeys, keys...)
	f.mu.Unlock()
	return nil
}

func (f *fakeProvider) SetPresence(_ context.Context, _, remoteJid, presence string) error {
	f.mu.Lock()
	f.presenceCalls = append(f.presenceCalls, remoteJid+"="+presence)
	f.mu.Unlock()
	return nil
}

// memoryRepo is an in-memory IChatStorageRepository with the same
// find-or-create and insert-if-new contract as the gorm implementation.
type memoryRepo struct {
	mu       sync.Mutex
	seq      int
	contacts map[string]*domainChatStorage.Contact // instance|phone
	chats    map[string]*domainChatStorage.Chat    // instance|chatID
	messages map[string]*domainChatStorage.Message // instance|messageID

	contactByID map[string]*domainChatStorage.Contact
	chatByID    map[string]*domainChatStorage.Chat
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		contacts:    make(map[string]*domainChatStorage.Contact),
		chats:       make(map[string]*domainChatStorage.Chat),
		messages:    make(map[string]*domainChatStorage.Message),
		contactByID: make(map[string]*domainChatStorage.Contact),
		chatByID:    make(map[string]*domainChatStorage.Chat),
	}
}

func (r *memoryRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *memoryRepo) InitializeSchema() error { return nil }

func (r *memoryRepo) FindOrCreateContact(_ context.Context, instanceID, phone string, defaults *domainChatStorage.Contact) (*domainChatStorage.Contact, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := instanceID + "|" + phone
	if existing, ok := r.contacts[key]; ok {
		return existing, false, nil
	}
	row := &domainChatStorage.Contact{}
	if defaults != nil {
		*row = *defaults
	}
	row.ID = r.nextID("contact")
	row.InstanceID = instanceID
	row.Phone = phone
	row.CreatedAt = time.Now().UTC()
	row.UpdatedAt = row.CreatedAt
	r.contacts[key] = row
	r.contactByID[row.ID] = row
	return row, true, nil
}

func (r *memoryRepo) UpdateContact(_ context.Context, id string, patch map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.contactByID[id]
	if !ok {
		return fmt.Errorf("contact %s not found", id)
	}
	for col, val := range patch {
		switch col {
		case "name":
			row.Name = val.(string)
		case "push_name":
			row.PushName = val.(string)
		case "profile_pic_url":
			row.ProfilePicURL = val.(string)
		case "group_metadata":
			row.GroupMetadata = val.(*domainChatStorage.GroupMetadata)
		case "last_seen":
			t := val.(time.Time)
			row.LastSeen = &t
		}
	}
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryRepo) FindOrCreateChat(_ context.Context, instanceID, chatID string, defaults *domainChatStorage.Chat) (*domainChatStorage.Chat, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := instanceID + "|" + chatID
	if existing, ok := r.chats[key]; ok {
		return existing, false, nil
	}
	row := &domainChatStorage.Chat{}
	if defaults != nil {
		*row = *defaults
	}
	row.ID = r.nextID("chat")
	row.InstanceID = instanceID
	row.ChatID = chatID
	row.CreatedAt = time.Now().UTC()
	row.UpdatedAt = row.CreatedAt
	r.chats[key] = row
	r.chatByID[row.ID] = row
	return row, true, nil
}

func (r *memoryRepo) UpdateChat(_ context.Context, id string, patch map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.chatByID[id]
	if !ok {
		return fmt.Errorf("chat %s not found", id)
	}
	for col, val := range patch {
		switch col {
		case "last_message":
			row.LastMessage = val.(*domainChatStorage.LastMessageSummary)
		case "last_message_time":
			t := val.(time.Time)
			row.LastMessageTime = &t
		case "unread_count":
			row.UnreadCount = val.(int)
		case "pinned":
			row.Pinned = val.(bool)
		case "archived":
			row.Archived = val.(bool)
		case "muted":
			row.Muted = val.(bool)
		}
	}
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryRepo) FindChat(_ context.Context, instanceID, chatID string) (*domainChatStorage.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chats[instanceID+"|"+chatID], nil
}

func (r *memoryRepo) ListChats(_ context.Context, instanceID string, limit, offset int, search string) ([]*domainChatStorage.Chat, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []*domainChatStorage.Chat
	for _, chat := range r.chats {
		if chat.InstanceID != instanceID {
			continue
		}
		if search != "" {
			name := ""
			if chat.ContactID != nil {
				if contact := r.contactByID[*chat.ContactID]; contact != nil {
					name = contact.Name
					chat.Contact = contact
				}
			}
			if !strings.Contains(strings.ToLower(name), strings.ToLower(search)) &&
				!strings.Contains(chat.ChatID, search) {
				continue
			}
		}
		if chat.ContactID != nil {
			chat.Contact = r.contactByID[*chat.ContactID]
		}
		rows = append(rows, chat)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Pinned != rows[j].Pinned {
			return rows[i].Pinned
		}
		ti, tj := time.Time{}, time.Time{}
		if rows[i].LastMessageTime != nil {
			ti = *rows[i].LastMessageTime
		}
		if rows[j].LastMessageTime != nil {
			tj = *rows[j].LastMessageTime
		}
		return ti.After(tj)
	})
	total := int64(len(rows))
	if offset >= len(rows) {
		return nil, total, nil
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, total, nil
}

func (r *memoryRepo) IncrementUnread(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.chatByID[id]
	if !ok {
		return 0, fmt.Errorf("chat %s not found", id)
	}
	row.UnreadCount++
	return row.UnreadCount, nil
}

func (r *memoryRepo) ResetUnread(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.chatByID[id]
	if !ok {
		return fmt.Errorf("chat %s not found", id)
	}
	row.UnreadCount = 0
	return nil
}

func (r *memoryRepo) InsertMessageIfNew(_ context.Context, msg *domainChatStorage.Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := msg.InstanceID + "|" + msg.MessageID
	if _, ok := r.messages[key]; ok {
		return false, nil
	}
	stored := *msg
	stored.ID = r.nextID("msg")
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	r.messages[key] = &stored
	return true, nil
}

func (r *memoryRepo) FindMessage(_ context.Context, instanceID, messageID string) (*domainChatStorage.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages[instanceID+"|"+messageID], nil
}

func (r *memoryRepo) UpdateMessageStatus(_ context.Context, instanceID, messageID, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.messages[instanceID+"|"+messageID]
	if !ok {
		return false, nil
	}
	row.Status = status
	row.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *memoryRepo) ExistingMessageIDs(_ context.Context, instanceID, chatID string) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make(map[string]struct{})
	for _, msg := range r.messages {
		if msg.InstanceID == instanceID && msg.ChatID == chatID {
			ids[msg.MessageID] = struct{}{}
		}
	}
	return ids, nil
}

func (r *memoryRepo) LatestMessage(_ context.Context, instanceID, chatID string) (*domainChatStorage.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domainChatStorage.Message
	for _, msg := range r.messages {
		if msg.InstanceID != instanceID || msg.ChatID != chatID {
			continue
		}
		if latest == nil || msg.Timestamp.After(latest.Timestamp) {
			latest = msg
		}
	}
	return latest, nil
}

func (r *memoryRepo) RecentMessages(_ context.Context, instanceID, chatID string, limit int) ([]*domainChatStorage.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []*domainChatStorage.Message
	for _, msg := range r.messages {
		if msg.InstanceID == instanceID && msg.ChatID == chatID {
			rows = append(rows, msg)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp.After(rows[j].Timestamp) })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *memoryRepo) ListMessages(_ context.Context, instanceID, chatID string, limit, offset int, search string) ([]*domainChatStorage.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []*domainChatStorage.Message
	for _, msg := range r.messages {
		if msg.InstanceID != instanceID || msg.ChatID != chatID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(msg.Content), strings.ToLower(search)) {
			continue
		}
		rows = append(rows, msg)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })
	total := int64(len(rows))
	if offset >= len(rows) {
		return nil, total, nil
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, total, nil
}

func (r *memoryRepo) CountMessages(_ context.Context, instanceID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, msg := range r.messages {
		if msg.InstanceID == instanceID {
			n++
		}
	}
	return n, nil
}

// memoryInstances holds instance rows keyed by id.
type memoryInstances struct {
	mu   sync.Mutex
	rows map[string]*domainInstance.Instance
}

func newMemoryInstances(ids ...string) *memoryInstances {
	r := &memoryInstances{rows: make(map[string]*domainInstance.Instance)}
	for _, id := range ids {
		r.rows[id] = &domainInstance.Instance{ID: id, Name: id}
	}
	return r
}

func (r *memoryInstances) FindInstance(_ context.Context, id string) (*domainInstance.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, pkgError.NotFoundError(fmt.Sprintf("instance %s not found", id))
	}
	return row, nil
}

func (r *memoryInstances) UpsertInstance(_ context.Context, inst *domainInstance.Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[inst.ID] = inst
	return nil
}

func (r *memoryInstances) UpdateInstance(_ context.Context, id string, patch map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return fmt.Errorf("instance %s not found", id)
	}
	for col, val := range patch {
		switch col {
		case "status":
			row.Status = val.(string)
		case "qr_code":
			row.QRCode = val.(string)
		case "profile_name":
			row.ProfileName = val.(string)
		case "phone":
			row.Phone = val.(string)
		case "last_seen":
			row.LastSeen = val.(time.Time)
		}
	}
	return nil
}

func (r *memoryInstances) ListInstances(_ context.Context) ([]*domainInstance.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domainInstance.Instance, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	return out, nil
}

// recordingPublisher keeps every published event for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Instance string
	Event    string
	Payload  any
}

func (p *recordingPublisher) Publish(instanceID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Instance: instanceID, Event: event, Payload: payload})
}

func (p *recordingPublisher) byName(event string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// fakeSyncer records Sync invocations without doing any work.
type fakeSyncer struct {
	mu    sync.Mutex
	calls []string
	done  chan struct{}
}

func newFakeSyncer() *fakeSyncer {
	return &fakeSyncer{done: make(chan struct{}, 8)}
}

func (f *fakeSyncer) Sync(_ context.Context, instanceID string) (*domainSync.Stats, error) {
	f.mu.Lock()
	f.calls = append(f.calls, instanceID)
	f.mu.Unlock()
	f.done <- struct{}{}
	return domainSync.NewStats(10), nil
}

// fakePush records push channel subscriptions.
type fakePush struct {
	mu      sync.Mutex
	ensured []string
}

func (f *fakePush) Ensure(instanceID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, instanceID)
}
