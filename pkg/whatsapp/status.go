package whatsapp

import "strings"

const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusError     = "error"
)

// NormalizeStatus folds the provider's ack vocabulary into the four values
// the UI understands. Anything unrecognized falls back to "sent" for own
// messages and "delivered" for incoming ones.
func NormalizeStatus(raw string, fromMe bool) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case StatusSent:
		return StatusSent
	case StatusDelivered:
		return StatusDelivered
	case StatusRead, "played":
		return StatusRead
	case StatusError:
		return StatusError
	case "server_ack":
		return StatusSent
	case "delivery_ack":
		return StatusDelivered
	}
	if fromMe {
		return StatusSent
	}
	return StatusDelivered
}
