package chatstorage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	domainChatStorage "github.com/wppweb/gateway/domains/chatstorage"
	domainInstance "github.com/wppweb/gateway/domains/instance"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domainChatStorage.IChatStorageRepository {
	return &repository{db: db}
}

func (r *repository) InitializeSchema() error {
	return r.db.AutoMigrate(
		&domainInstance.Instance{},
		&domainChatStorage.Contact{},
		&domainChatStorage.Chat{},
		&domainChatStorage.Message{},
	)
}

func (r *repository) FindOrCreateContact(ctx context.Context, instanceID, phone string, defaults *domainChatStorage.Contact) (*domainChatStorage.Contact, bool, error) {
	var existing domainChatStorage.Contact
	err := r.db.WithContext(ctx).
		Where("instance_id = ? AND phone = ?", instanceID, phone).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("find contact %s: %w", phone, err)
	}

	record := domainChatStorage.Contact{}
	if defaults != nil {
		record = *defaults
	}
	record.ID = uuid.NewString()
	record.InstanceID = instanceID
	record.Phone = phone

	// A concurrent ingest may create the same contact between the lookup
	// and the insert; the unique index turns that into a silent no-op and
	// we re-read the winner.
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record)
	if res.Error != nil {
		return nil, false, fmt.Errorf("create contact %s: %w", phone, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := r.db.WithContext(ctx).
			Where("instance_id = ? AND phone = ?", instanceID, phone).
			First(&existing).Error; err != nil {
			return nil, false, fmt.Errorf("re-read contact %s: %w", phone, err)
		}
		return &existing, false, nil
	}
	return &record, true, nil
}

func (r *repository) UpdateContact(ctx context.Context, id string, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domainChatStorage.Contact{}).
		Where("id = ?", id).
		Updates(patch).Error
}

func (r *repository) FindOrCreateChat(ctx context.Context, instanceID, chatID string, defaults *domainChatStorage.Chat) (*domainChatStorage.Chat, bool, error) {
	var existing domainChatStorage.Chat
	err := r.db.WithContext(ctx).
		Where("instance_id = ? AND chat_id = ?", instanceID, chatID).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("find chat %s: %w", chatID, err)
	}

	record := domainChatStorage.Chat{}
	if defaults != nil {
		record = *defaults
	}
	record.ID = uuid.NewString()
	record.InstanceID = instanceID
	record.ChatID = chatID

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record)
	if res.Error != nil {
		return nil, false, fmt.Errorf("create chat %s: %w", chatID, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := r.db.WithContext(ctx).
			Where("instance_id = ? AND chat_id = ?", instanceID, chatID).
			First(&existing).Error; err != nil {
			return nil, false, fmt.Errorf("re-read chat %s: %w", chatID, err)
		}
		return &existing, false, nil
	}
	return &record, true, nil
}

func (r *repository) UpdateChat(ctx context.Context, id string, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domainChatStorage.Chat{}).
		Where("id = ?", id).
		Updates(patch).Error
}

func (r *repository) FindChat(ctx context.Context, instanceID, chatID string) (*domainChatStorage.Chat, error) {
	var chat domainChatStorage.Chat
	err := r.db.WithContext(ctx).
		Where("instance_id = ? AND chat_id = ?", instanceID, chatID).
		First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *repository) ListChats(ctx context.Context, instanceID string, limit, offset int, search string) ([]*domainChatStorage.Chat, int64, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.WithContext(ctx).
		Model(&domainChatStorage.Chat{}).
		Where("chats.instance_id = ?", instanceID)

	if search != "" {
		pattern := "%" + search + "%"
		query = query.
			Joins("LEFT JOIN contacts ON contacts.id = chats.contact_id").
			Where("contacts.name LIKE ? OR contacts.push_name LIKE ? OR contacts.phone LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var chats []*domainChatStorage.Chat
	err := query.
		Preload("Contact").
		Order("pinned DESC, last_message_time DESC").
		Limit(limit).
		Offset(offset).
		Find(&chats).Error
	if err != nil {
		return nil, 0, err
	}
	return chats, total, nil
}

func (r *repository) IncrementUnread(ctx context.Context, id string) (int, error) {
	err := r.db.WithContext(ctx).
		Model(&domainChatStorage.Chat{}).
		Where("id = ?", id).
		UpdateColumn("unread_count", gorm.Expr("unread_count + 1")).Error
	if err != nil {
		return 0, err
	}
	var chat domainChatStorage.Chat
	if err := r.db.WithContext(ctx).Select("unread_count").Where("id = ?", id).First(&chat).Error; err != nil {
		return 0, err
	}
	return chat.UnreadCount, nil
}

func (r *repository) ResetUnread(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&domainChatStorage.Chat{}).
		Where("id = ?", id).
		UpdateColumn("unread_count", 0).Error
}

// InsertMessageIfNew persists the message unless its natural key
// (instance_id, message_id) already exists. The conflict clause makes the
// check-and-insert atomic, which is what keeps a live event racing a bulk
// sync from double-inserting.
func (r *repository) InsertMessageIfNew(ctx context.Context, msg *domainChatStorage.Message) (bool, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "instance_id"}, {Name: "message_id"}},
			DoNothing: true,
		}).
		Create(msg)
	if res.Error != nil {
		return false, fmt.Errorf("insert message %s: %w", msg.MessageID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindMessage(ctx context.Context, instanceID, messageID string) (*domainChatStorage.Message, error) {
	var msg domainChatStorage.Message
	err := r.db.WithContext(ctx).
		Where("instance_id = ? AND message_id = ?", instanceID, messageID).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *repository) UpdateMessageStatus(ctx context.Context, instanceID, messageID, status string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domainChatStorage.Message{}).
		Where("instance_id = ? AND message_id = ?", instanceID, messageID).
		UpdateColumn("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ExistingMessageIDs(ctx context.Context, instanceID, chatID string) (map[string]struct{}, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&domainChatStorage.Message{}).
		Where("instance_id = ? AND chat_id = ?", instanceID, chatID).
		Pluck("message_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (r *repository) LatestMessage(ctx context.Context, instanceID, chatID string) (*domainChatStorage.Message, error) {
	var msg domainChatStorage.Message
	err := r.db.WithContext(ctx).
		Where("instance_id = ? AND chat_id = ?", instanceID, chatID).
		Order("timestamp DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *repository) RecentMessages(ctx context.Context, instanceID, chatID string, limit int) ([]*domainChatStorage.Message, error) {
	if limit <= 0 {
		limit = 10
	}
	var msgs []*domainChatStorage.Message
	err := r.db.WithContext(ctx).
		Where("instance_id = ? AND chat_id = ?", instanceID, chatID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListMessages pages through a chat's history in chronological order, the
// order the conversation view renders it.
func (r *repository) ListMessages(ctx context.Context, instanceID, chatID string, limit, offset int, search string) ([]*domainChatStorage.Message, int64, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.WithContext(ctx).
		Model(&domainChatStorage.Message{}).
		Where("instance_id = ? AND chat_id = ?", instanceID, chatID)

	if search != "" {
		query = query.Where("content LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var msgs []*domainChatStorage.Message
	err := query.
		Order("timestamp ASC").
		Limit(limit).
		Offset(offset).
		Find(&msgs).Error
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (r *repository) CountMessages(ctx context.Context, instanceID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domainChatStorage.Message{}).
		Where("instance_id = ?", instanceID).
		Count(&count).Error
	return count, err
}
