package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	AppVersion             = "v1.2.0"
	AppPort                = "3000"
	AppDebug               = false
	AppBasicAuthCredential []string
	AppBasePath            = ""
	AppTrustedProxies      []string // Trusted proxy IP ranges (e.g., "0.0.0.0/0" for all, or specific CIDRs)

	PathStorages = "storages"
	PathStatics  = "statics"
	PathQrCode   = "statics/qrcode"

	DBDriver   = "sqlite" // sqlite | postgres
	DBName     = "storages/gateway.db"
	DBHost     = "localhost"
	DBPort     = "5432"
	DBUser     = "postgres"
	DBPassword = ""
	DBSSLMode  = "disable"

	ValkeyEnabled   = false
	ValkeyAddress   = "localhost:6379"
	ValkeyPassword  = ""
	ValkeyDB        = 0
	ValkeyKeyPrefix = "wppweb"

	// Upstream WhatsApp provider (Evolution-compatible REST + push socket).
	ProviderBaseURL       = "http://localhost:8080"
	ProviderAPIKey        = ""
	ProviderTimeout       = 30 * time.Second
	ProviderSocketEnabled = true

	// Bulk sync tuning. The delays keep the provider API under its own
	// rate limits during a full import.
	SyncChatPageSize     = 100
	SyncChatMaxPages     = 1000
	SyncMessagePageSize  = 100
	SyncMessageMaxPages  = 1000
	SyncMaxRetries       = 5
	SyncRetryDelayBase   = 2 * time.Second
	SyncMaxErrorLogs     = 100
	SyncChatBatchSize    = 10
	SyncChatBatchDelay   = 100 * time.Millisecond
	SyncGroupBatchSize   = 3
	SyncGroupBatchDelay  = 500 * time.Millisecond
	SyncMessagePageDelay = 200 * time.Millisecond
	SyncRateLimitMax     = 5
	SyncRateLimitWindow  = 60 * time.Second
	SyncSettleDelay      = 3 * time.Second

	GroupCacheTTL           = 24 * time.Hour
	GroupCacheMinInterval   = 30 * time.Second
	GroupCacheSweepInterval = 30 * time.Minute

	// Message Worker Pool settings
	MessageWorkerPoolSize  int = 20
	MessageWorkerQueueSize int = 1000
)

func init() {
	if v := strings.TrimSpace(os.Getenv("PROVIDER_BASE_URL")); v != "" {
		ProviderBaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("PROVIDER_API_KEY")); v != "" {
		ProviderAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("PROVIDER_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ProviderTimeout = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("PROVIDER_SOCKET_ENABLED")); v != "" {
		ProviderSocketEnabled = parseBool(v, ProviderSocketEnabled)
	}

	if v := strings.TrimSpace(os.Getenv("VALKEY_ENABLED")); v != "" {
		ValkeyEnabled = parseBool(v, ValkeyEnabled)
	}
	if v := strings.TrimSpace(os.Getenv("VALKEY_ADDRESS")); v != "" {
		ValkeyAddress = v
	}
	if v := os.Getenv("VALKEY_PASSWORD"); v != "" {
		ValkeyPassword = v
	}
	if v := strings.TrimSpace(os.Getenv("VALKEY_DB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			ValkeyDB = n
		}
	}

	if val := os.Getenv("MESSAGE_WORKER_POOL_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			MessageWorkerPoolSize = parsed
		}
	}
	if val := os.Getenv("MESSAGE_WORKER_QUEUE_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			MessageWorkerQueueSize = parsed
		}
	}
}

func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return fallback
}
