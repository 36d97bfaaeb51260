package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wppweb/gateway/config"
	domainProvider "github.com/wppweb/gateway/domains/provider"
	pkgError "github.com/wppweb/gateway/pkg/error"
	"github.com/wppweb/gateway/pkg/retry"
)

// Client talks to an Evolution-compatible provider REST API. Transient
// failures (429/408/425/5xx and transport errors) are retried with a
// linearly growing backoff; any other error is returned as-is after the
// first attempt.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	policy  retry.Policy
}

func NewClient(baseURL, apiKey string, timeout time.Duration) domainProvider.IProviderClient {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		policy: retry.Policy{
			MaxAttempts: config.SyncMaxRetries,
			Backoff:     retry.LinearBackoff(config.SyncRetryDelayBase),
			Retryable:   isTransient,
		},
	}
}

func isTransient(err error) bool {
	var provErr *pkgError.ProviderError
	if errors.As(err, &provErr) {
		return provErr.Temporary()
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	op := method + " " + path

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
	}

	return c.policy.Do(ctx, func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return &pkgError.ProviderError{Op: op, Err: err}
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("apikey", c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return &pkgError.ProviderError{Op: op, Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &pkgError.ProviderError{Op: op, Err: err}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &pkgError.ProviderError{
				Op:     op,
				Status: resp.StatusCode,
				Err:    fmt.Errorf("%s", truncate(data, 256)),
			}
		}

		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decode %s response: %w", op, err)
			}
		}
		return nil
	})
}

func truncate(data []byte, limit int) string {
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}

func (c *Client) ListChats(ctx context.Context, instance string, page, pageSize int) ([]domainProvider.ChatRecord, error) {
	body := map[string]any{
		"where": map[string]any{},
		"page":  page,
		"limit": pageSize,
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/chat/findChats/"+url.PathEscape(instance), body, &raw); err != nil {
		return nil, err
	}
	return decodeChatList(raw)
}

// decodeChatList tolerates the provider's historical response shapes: a
// bare array, {chats:[...]}, and {records:[...]}.
func decodeChatList(raw json.RawMessage) ([]domainProvider.ChatRecord, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var direct []domainProvider.ChatRecord
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}

	var wrapped struct {
		Chats   []domainProvider.ChatRecord `json:"chats"`
		Records []domainProvider.ChatRecord `json:"records"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode chat list: %w", err)
	}
	if wrapped.Chats != nil {
		return wrapped.Chats, nil
	}
	return wrapped.Records, nil
}

func (c *Client) ListMessages(ctx context.Context, instance, remoteJid string, page, pageSize int) ([]domainProvider.MessageRecord, error) {
	body := map[string]any{
		"where": map[string]any{
			"key": map[string]any{"remoteJid": remoteJid},
		},
		"page":  page,
		"limit": pageSize,
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/chat/findMessages/"+url.PathEscape(instance), body, &raw); err != nil {
		return nil, err
	}
	return decodeMessageList(raw)
}

// decodeMessageList tolerates a bare array, {messages:[...]} and the
// nested {messages:{records:[...]}} pagination wrapper.
func decodeMessageList(raw json.RawMessage) ([]domainProvider.MessageRecord, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var direct []domainProvider.MessageRecord
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}

	var wrapped struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode message list: %w", err)
	}
	if len(wrapped.Messages) == 0 {
		return nil, nil
	}

	if err := json.Unmarshal(wrapped.Messages, &direct); err == nil {
		return direct, nil
	}

	var paginated struct {
		Records []domainProvider.MessageRecord `json:"records"`
	}
	if err := json.Unmarshal(wrapped.Messages, &paginated); err != nil {
		return nil, fmt.Errorf("decode message records: %w", err)
	}
	return paginated.Records, nil
}

func (c *Client) GetGroupInfo(ctx context.Context, instance, groupJid string) (*domainProvider.GroupInfo, error) {
	path := "/group/findGroupInfos/" + url.PathEscape(instance) + "?groupJid=" + url.QueryEscape(groupJid)
	var info domainProvider.GroupInfo
	if err := c.do(ctx, http.MethodGet, path, nil, &info); err != nil {
		return nil, err
	}
	if info.ID == "" && info.Subject == "" {
		return nil, nil
	}
	return &info, nil
}

func (c *Client) SendText(ctx context.Context, instance string, request domainProvider.SendTextRequest) (*domainProvider.SendResponse, error) {
	body := map[string]any{
		"number": request.Number,
		"text":   request.Text,
	}
	if request.QuotedID != "" {
		body["quoted"] = map[string]any{
			"key": map[string]any{"id": request.QuotedID},
		}
	}
	var resp domainProvider.SendResponse
	if err := c.do(ctx, http.MethodPost, "/message/sendText/"+url.PathEscape(instance), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendMedia(ctx context.Context, instance string, request domainProvider.SendMediaRequest) (*domainProvider.SendResponse, error) {
	var resp domainProvider.SendResponse
	if err := c.do(ctx, http.MethodPost, "/message/sendMedia/"+url.PathEscape(instance), request, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendSticker(ctx context.Context, instance string, request domainProvider.SendStickerRequest) (*domainProvider.SendResponse, error) {
	var resp domainProvider.SendResponse
	if err := c.do(ctx, http.MethodPost, "/message/sendSticker/"+url.PathEscape(instance), request, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendAudio(ctx context.Context, instance string, request domainProvider.SendAudioRequest) (*domainProvider.SendResponse, error) {
	var resp domainProvider.SendResponse
	if err := c.do(ctx, http.MethodPost, "/message/sendWhatsAppAudio/"+url.PathEscape(instance), request, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) MarkRead(ctx context.Context, instance string, keys []domainProvider.MessageKey) error {
	if len(keys) == 0 {
		return nil
	}
	body := map[string]any{"readMessages": keys}
	if err := c.do(ctx, http.MethodPost, "/chat/markMessageAsRead/"+url.PathEscape(instance), body, nil); err != nil {
		return err
	}
	logrus.Debugf("[PROVIDER] Marked %d messages as read on %s", len(keys), instance)
	return nil
}

func (c *Client) SetPresence(ctx context.Context, instance, remoteJid, presence string) error {
	body := map[string]any{
		"number":   remoteJid,
		"presence": presence,
		"delay":    1200,
	}
	return c.do(ctx, http.MethodPost, "/chat/sendPresence/"+url.PathEscape(instance), body, nil)
}
