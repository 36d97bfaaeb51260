package realtime

// Event names fanned out to browser sessions, one channel per instance.
const (
	EventSyncStart       = "sync_start"
	EventSyncProgress    = "sync_progress"
	EventSyncComplete    = "sync_complete"
	EventMessageReceived = "message_received"
	EventChatUnread      = "chat_unread_updated"
	EventMessageStatus   = "message_status_update"
	EventConnection      = "connection_update"
	EventQRCode          = "qrcode_updated"
	EventContactsUpdated = "contacts_updated"
	EventChatsUpdated    = "chats_updated"
	EventPresence        = "presence_update"
)

// IPublisher pushes one named event onto an instance's live channel.
// Implementations must not block the caller; publishing to an instance with
// no connected sessions is a no-op.
type IPublisher interface {
	Publish(instanceID, event string, payload any)
}

// NopPublisher discards everything. Used in tests and in tools that run
// the sync core without a socket layer.
type NopPublisher struct{}

func (NopPublisher) Publish(string, string, any) {}
