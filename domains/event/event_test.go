package event

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessagesUpsertShapes(t *testing.T) {
	single := `{"key":{"id":"M1","remoteJid":"5511@s.whatsapp.net","fromMe":false},"message":{"conversation":"hi"},"messageTimestamp":1700000000}`

	tests := []struct {
		name string
		body string
	}{
		{"bare object", single},
		{"bare array", "[" + single + "]"},
		{"wrapped", `{"messages":[` + single + `]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			evt, err := Decode("messages.upsert", json.RawMessage(tc.body))
			require.NoError(t, err)

			upsert, ok := evt.(MessagesUpserted)
			require.True(t, ok)
			require.Len(t, upsert.Messages, 1)
			assert.Equal(t, "M1", upsert.Messages[0].Key.ID)
			assert.Equal(t, "hi", upsert.Messages[0].Message.Conversation)
			assert.Equal(t, int64(1700000000), upsert.Messages[0].MessageTimestamp.Int64())
		})
	}
}

func TestDecodeMessagesUpsertStringTimestamp(t *testing.T) {
	body := `{"key":{"id":"M1","remoteJid":"5511@s.whatsapp.net"},"messageTimestamp":"1700000000"}`

	evt, err := Decode("messages.upsert", json.RawMessage(body))
	require.NoError(t, err)
	upsert := evt.(MessagesUpserted)
	assert.Equal(t, int64(1700000000), upsert.Messages[0].MessageTimestamp.Int64())
}

func TestDecodeQRCodeShapes(t *testing.T) {
	nested := `{"qrcode":{"code":"2@abc","base64":"data:image/png;base64,AAA"}}`
	flat := `{"code":"2@abc","base64":"data:image/png;base64,AAA"}`

	for _, body := range []string{nested, flat} {
		evt, err := Decode("qrcode.updated", json.RawMessage(body))
		require.NoError(t, err)

		qr, ok := evt.(QRCodeUpdated)
		require.True(t, ok)
		assert.Equal(t, "2@abc", qr.Code)
		assert.Equal(t, "data:image/png;base64,AAA", qr.Base64)
	}
}

func TestDecodeConnectionUpdate(t *testing.T) {
	body := `{"state":"open","statusReason":200,"profileName":"Ana","wuid":"5511@s.whatsapp.net"}`

	evt, err := Decode("connection.update", json.RawMessage(body))
	require.NoError(t, err)

	conn, ok := evt.(ConnectionStateChanged)
	require.True(t, ok)
	assert.Equal(t, "open", conn.State)
	assert.Equal(t, "Ana", conn.ProfileName)
	assert.Equal(t, "5511@s.whatsapp.net", conn.OwnerJid)
}

func TestDecodeStatusUpdates(t *testing.T) {
	body := `[{"key":{"id":"M1","remoteJid":"5511@s.whatsapp.net","fromMe":true},"status":"READ"}]`

	evt, err := Decode("messages.update", json.RawMessage(body))
	require.NoError(t, err)

	changed, ok := evt.(MessageStatusChanged)
	require.True(t, ok)
	require.Len(t, changed.Updates, 1)
	assert.Equal(t, "M1", changed.Updates[0].Key.ID)
	assert.Equal(t, "READ", changed.Updates[0].Status)
}

func TestDecodePresence(t *testing.T) {
	body := `{"id":"5511@s.whatsapp.net","presences":{"5511@s.whatsapp.net":{"lastKnownPresence":"composing"}}}`

	evt, err := Decode("presence.update", json.RawMessage(body))
	require.NoError(t, err)

	presence, ok := evt.(PresenceChanged)
	require.True(t, ok)
	assert.Equal(t, "5511@s.whatsapp.net", presence.RemoteJid)
	assert.Equal(t, "composing", presence.Presence)
}

func TestDecodeUnknownEvent(t *testing.T) {
	_, err := Decode("labels.association", json.RawMessage(`{}`))
	require.Error(t, err)

	var unknown *ErrUnknownEvent
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "labels.association", unknown.Name)
}
