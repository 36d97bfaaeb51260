package instance

import (
	"context"
	"time"
)

type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusQRCode       ConnectionStatus = "qr_code"
	StatusError        ConnectionStatus = "error"
)

// ParseConnectionState maps the provider's connection.update state strings
// onto the local status machine. Unrecognized input means disconnected.
func ParseConnectionState(state string) ConnectionStatus {
	switch state {
	case "open":
		return StatusConnected
	case "connecting":
		return StatusConnecting
	default:
		return StatusDisconnected
	}
}

// Instance is one isolated WhatsApp session belonging to a tenant.
type Instance struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Name        string    `gorm:"size:255" json:"name"`
	Status      string    `gorm:"size:32;default:disconnected" json:"status"`
	QRCode      string    `gorm:"type:text" json:"qr_code,omitempty"`
	ProfileName string    `gorm:"size:255" json:"profile_name,omitempty"`
	Phone       string    `gorm:"size:64" json:"phone,omitempty"`
	LastSeen    time.Time `json:"last_seen"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type IInstanceRepository interface {
	FindInstance(ctx context.Context, id string) (*Instance, error)
	UpsertInstance(ctx context.Context, inst *Instance) error
	UpdateInstance(ctx context.Context, id string, patch map[string]any) error
	ListInstances(ctx context.Context) ([]*Instance, error)
}
