package chatstorage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainChatStorage "github.com/wppweb/gateway/domains/chatstorage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) domainChatStorage.IChatStorageRepository {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_journal_mode=WAL&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	repo := NewRepository(db)
	require.NoError(t, repo.InitializeSchema())
	return repo
}

func TestFindOrCreateContact(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, created, err := repo.FindOrCreateContact(ctx, "inst1", "5511999", &domainChatStorage.Contact{Name: "Alice"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Alice", first.Name)

	second, created, err := repo.FindOrCreateContact(ctx, "inst1", "5511999", &domainChatStorage.Contact{Name: "ignored"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Alice", second.Name)

	// Same phone under a different instance is a distinct contact.
	other, created, err := repo.FindOrCreateContact(ctx, "inst2", "5511999", nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestInsertMessageIfNewIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	msg := &domainChatStorage.Message{
		InstanceID: "inst1",
		MessageID:  "ABC123",
		ChatID:     "5511999@s.whatsapp.net",
		Type:       "text",
		Content:    "hi",
		Status:     "delivered",
		Timestamp:  time.Unix(1700000000, 0).UTC(),
	}

	created, err := repo.InsertMessageIfNew(ctx, msg)
	require.NoError(t, err)
	assert.True(t, created)

	dup := *msg
	dup.ID = ""
	created, err = repo.InsertMessageIfNew(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, created)

	count, err := repo.CountMessages(ctx, "inst1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpdateMessageStatus(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.InsertMessageIfNew(ctx, &domainChatStorage.Message{
		InstanceID: "inst1",
		MessageID:  "MSG1",
		ChatID:     "5511999@s.whatsapp.net",
		Type:       "text",
		Status:     "sent",
		Timestamp:  time.Now().UTC(),
	})
	require.NoError(t, err)

	updated, err := repo.UpdateMessageStatus(ctx, "inst1", "MSG1", "read")
	require.NoError(t, err)
	assert.True(t, updated)

	msg, err := repo.FindMessage(ctx, "inst1", "MSG1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "read", msg.Status)

	updated, err = repo.UpdateMessageStatus(ctx, "inst1", "NOPE", "read")
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestUnreadAccounting(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	chat, created, err := repo.FindOrCreateChat(ctx, "inst1", "5511999@s.whatsapp.net", nil)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, 0, chat.UnreadCount)

	n, err := repo.IncrementUnread(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.IncrementUnread(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, repo.ResetUnread(ctx, chat.ID))
	reloaded, err := repo.FindChat(ctx, "inst1", "5511999@s.whatsapp.net")
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.UnreadCount)
}

func TestLatestMessageOrdersByTimestamp(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	chatID := "5511999@s.whatsapp.net"

	for i, ts := range []int64{1700000300, 1700000100, 1700000200} {
		_, err := repo.InsertMessageIfNew(ctx, &domainChatStorage.Message{
			InstanceID: "inst1",
			MessageID:  []string{"NEWEST", "OLDEST", "MIDDLE"}[i],
			ChatID:     chatID,
			Type:       "text",
			Timestamp:  time.Unix(ts, 0).UTC(),
		})
		require.NoError(t, err)
	}

	latest, err := repo.LatestMessage(ctx, "inst1", chatID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "NEWEST", latest.MessageID)

	ids, err := repo.ExistingMessageIDs(ctx, "inst1", chatID)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Contains(t, ids, "MIDDLE")
}

func TestListMessagesPaginatesAscending(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	chatID := "5511999@s.whatsapp.net"

	for i, id := range []string{"M1", "M2", "M3"} {
		_, err := repo.InsertMessageIfNew(ctx, &domainChatStorage.Message{
			InstanceID: "inst1",
			MessageID:  id,
			ChatID:     chatID,
			Type:       "text",
			Content:    []string{"good morning", "good night", "see you"}[i],
			Timestamp:  time.Unix(1700000000+int64(i)*60, 0).UTC(),
		})
		require.NoError(t, err)
	}
	// Another chat's message never leaks into the page.
	_, err := repo.InsertMessageIfNew(ctx, &domainChatStorage.Message{
		InstanceID: "inst1",
		MessageID:  "OTHER",
		ChatID:     "5522888@s.whatsapp.net",
		Type:       "text",
		Timestamp:  time.Unix(1700000030, 0).UTC(),
	})
	require.NoError(t, err)

	page, total, err := repo.ListMessages(ctx, "inst1", chatID, 2, 0, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "M1", page[0].MessageID)
	assert.Equal(t, "M2", page[1].MessageID)

	rest, _, err := repo.ListMessages(ctx, "inst1", chatID, 2, 2, "")
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "M3", rest[0].MessageID)

	found, total, err := repo.ListMessages(ctx, "inst1", chatID, 50, 0, "night")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, found, 1)
	assert.Equal(t, "M2", found[0].MessageID)
}

func TestListChatsSearch(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	alice, _, err := repo.FindOrCreateContact(ctx, "inst1", "5511999", &domainChatStorage.Contact{Name: "Alice"})
	require.NoError(t, err)
	bob, _, err := repo.FindOrCreateContact(ctx, "inst1", "5522888", &domainChatStorage.Contact{Name: "Bob"})
	require.NoError(t, err)

	_, _, err = repo.FindOrCreateChat(ctx, "inst1", "5511999@s.whatsapp.net", &domainChatStorage.Chat{ContactID: &alice.ID})
	require.NoError(t, err)
	_, _, err = repo.FindOrCreateChat(ctx, "inst1", "5522888@s.whatsapp.net", &domainChatStorage.Chat{ContactID: &bob.ID})
	require.NoError(t, err)

	all, total, err := repo.ListChats(ctx, "inst1", 50, 0, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	found, total, err := repo.ListChats(ctx, "inst1", 50, 0, "Ali")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, found, 1)
	require.NotNil(t, found[0].Contact)
	assert.Equal(t, "Alice", found[0].Contact.Name)
}
