package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	globalConfig "github.com/wppweb/gateway/config"
	coreDB "github.com/wppweb/gateway/core/database"
	domainChat "github.com/wppweb/gateway/domains/chat"
	domainChatStorage "github.com/wppweb/gateway/domains/chatstorage"
	domainEvent "github.com/wppweb/gateway/domains/event"
	domainInstance "github.com/wppweb/gateway/domains/instance"
	domainProvider "github.com/wppweb/gateway/domains/provider"
	domainSend "github.com/wppweb/gateway/domains/send"
	domainSync "github.com/wppweb/gateway/domains/sync"
	infraChatStorage "github.com/wppweb/gateway/infrastructure/chatstorage"
	"github.com/wppweb/gateway/infrastructure/groupcache"
	infraProvider "github.com/wppweb/gateway/infrastructure/provider"
	"github.com/wppweb/gateway/infrastructure/pushsocket"
	"github.com/wppweb/gateway/infrastructure/valkey"
	"github.com/wppweb/gateway/pkg/msgworker"
	"github.com/wppweb/gateway/pkg/utils"
	"github.com/wppweb/gateway/pkg/whatsapp"
	uiWebsocket "github.com/wppweb/gateway/ui/websocket"
	"github.com/wppweb/gateway/usecase"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var (
	db       *gorm.DB
	vkClient *valkey.Client

	chatStorageRepo domainChatStorage.IChatStorageRepository
	instanceRepo    domainInstance.IInstanceRepository
	providerClient  domainProvider.IProviderClient
	groupCache      *groupcache.Cache
	hub             *uiWebsocket.Hub
	pushManager     *pushsocket.Manager
	workerPool      *msgworker.Pool
	syncLimiter     *valkey.SyncLimiter

	// Usecase
	syncUsecase  domainSync.ISyncUsecase
	eventUsecase domainEvent.IEventUsecase
	chatUsecase  domainChat.IChatUsecase
	sendUsecase  domainSend.ISendUsecase
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Multi-tenant WhatsApp web-chat gateway",
	Long: `Bridges an Evolution-compatible WhatsApp provider to a browser chat UI:
bulk history sync, live webhook ingestion and per-instance realtime fan-out.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Initialize flags first, before any subcommands are added
	initFlags()

	// Then initialize other components
	cobra.OnInitialize(initEnvConfig, initApp)
}

// initEnvConfig loads configuration from environment variables
func initEnvConfig() {
	viper.AutomaticEnv()

	// Application settings
	if envPort := viper.GetString("app_port"); envPort != "" {
		globalConfig.AppPort = envPort
	}
	if envDebug := viper.GetBool("app_debug"); envDebug {
		globalConfig.AppDebug = envDebug
	}
	envBasicAuth := viper.GetString("app_basic_auth")
	if envBasicAuth == "" {
		envBasicAuth = os.Getenv("APP_BASIC_AUTH")
	}
	if envBasicAuth != "" {
		credential := strings.Split(envBasicAuth, ",")
		globalConfig.AppBasicAuthCredential = credential
	}
	if envBasePath := viper.GetString("app_base_path"); envBasePath != "" {
		globalConfig.AppBasePath = envBasePath
	}
	if envTrustedProxies := viper.GetString("app_trusted_proxies"); envTrustedProxies != "" {
		proxies := strings.Split(envTrustedProxies, ",")
		globalConfig.AppTrustedProxies = proxies
	}

	// Database settings
	if envDriver := viper.GetString("db_driver"); envDriver != "" {
		globalConfig.DBDriver = envDriver
	}
	if envName := viper.GetString("db_name"); envName != "" {
		globalConfig.DBName = envName
	}
	if envHost := viper.GetString("db_host"); envHost != "" {
		globalConfig.DBHost = envHost
	}
	if envPort := viper.GetString("db_port"); envPort != "" {
		globalConfig.DBPort = envPort
	}
	if envUser := viper.GetString("db_user"); envUser != "" {
		globalConfig.DBUser = envUser
	}
	if envPassword := viper.GetString("db_password"); envPassword != "" {
		globalConfig.DBPassword = envPassword
	}
	if envSSLMode := viper.GetString("db_ssl_mode"); envSSLMode != "" {
		globalConfig.DBSSLMode = envSSLMode
	}
}

func initFlags() {
	// Application flags
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.AppPort,
		"port", "p",
		globalConfig.AppPort,
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&globalConfig.AppDebug,
		"debug", "d",
		globalConfig.AppDebug,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&globalConfig.AppBasicAuthCredential,
		"basic-auth", "b",
		globalConfig.AppBasicAuthCredential,
		"basic auth credential | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.AppBasePath,
		"base-path", "",
		globalConfig.AppBasePath,
		`base path for subpath deployment --base-path <string> | example: --base-path="/gateway"`,
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&globalConfig.AppTrustedProxies,
		"trusted-proxies", "",
		globalConfig.AppTrustedProxies,
		`trusted proxy IP ranges for reverse proxy deployments --trusted-proxies <string> | example: --trusted-proxies="10.0.0.0/8,172.16.0.0/12"`,
	)

	// Provider flags
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.ProviderBaseURL,
		"provider-url", "",
		globalConfig.ProviderBaseURL,
		`upstream provider base url --provider-url <string> | example: --provider-url="http://evolution:8080"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.ProviderAPIKey,
		"provider-api-key", "",
		globalConfig.ProviderAPIKey,
		"upstream provider api key --provider-api-key <string>",
	)

	// Message Worker Pool flags
	rootCmd.PersistentFlags().IntVarP(
		&globalConfig.MessageWorkerPoolSize,
		"message-workers", "",
		globalConfig.MessageWorkerPoolSize,
		`number of concurrent message workers --message-workers <number> | example: --message-workers=30 (default: 20)`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&globalConfig.MessageWorkerQueueSize,
		"message-queue-size", "",
		globalConfig.MessageWorkerQueueSize,
		`queue size per message worker --message-queue-size <number> | example: --message-queue-size=1500 (default: 1000)`,
	)
}

func initApp() {
	if globalConfig.AppDebug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	// preparing folder if not exist
	if err := utils.CreateFolder(globalConfig.PathStorages, globalConfig.PathStatics, globalConfig.PathQrCode); err != nil {
		logrus.Errorln(err)
	}

	ctx := context.Background()

	var err error
	db, err = coreDB.NewDatabase()
	if err != nil {
		logrus.Fatalf("[APP] Failed to open database: %v", err)
	}

	chatStorageRepo = infraChatStorage.NewRepository(db)
	instanceRepo = infraChatStorage.NewInstanceRepository(db)
	if err := chatStorageRepo.InitializeSchema(); err != nil {
		logrus.Fatalf("[APP] Failed to migrate schema: %v", err)
	}

	// Valkey is optional: without it the gateway loses cross-node fan-out
	// and shared rate limiting, nothing else.
	if globalConfig.ValkeyEnabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   globalConfig.ValkeyAddress,
			Password:  globalConfig.ValkeyPassword,
			DB:        globalConfig.ValkeyDB,
			KeyPrefix: globalConfig.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.Warnf("[APP] Valkey unavailable, continuing standalone: %v", err)
			vkClient = nil
		}
	}
	syncLimiter = valkey.NewSyncLimiter(vkClient, globalConfig.SyncRateLimitMax, globalConfig.SyncRateLimitWindow)

	groupCache = groupcache.New(globalConfig.GroupCacheTTL, globalConfig.GroupCacheMinInterval)
	groupCache.StartSweeper(globalConfig.GroupCacheSweepInterval)

	providerClient = infraProvider.NewClient(globalConfig.ProviderBaseURL, globalConfig.ProviderAPIKey, globalConfig.ProviderTimeout)

	hub = uiWebsocket.NewHub(vkClient)

	workerPool = msgworker.GetGlobalPool()

	syncUsecase = usecase.NewSyncService(providerClient, chatStorageRepo, instanceRepo, groupCache, hub, syncLimiter)

	var push usecase.PushSubscriber
	if globalConfig.ProviderSocketEnabled {
		pushManager = pushsocket.NewManager(globalConfig.ProviderBaseURL, globalConfig.ProviderAPIKey, dispatchPushEvent)
		push = pushManager
	}

	eventUsecase = usecase.NewEventService(providerClient, chatStorageRepo, instanceRepo, groupCache, hub, workerPool, syncUsecase, push)
	chatUsecase = usecase.NewChatService(chatStorageRepo, providerClient, hub)
	sendUsecase = usecase.NewSendService(providerClient)

	// Re-establish push subscriptions for every known instance on boot.
	if pushManager != nil {
		go func() {
			instances, err := instanceRepo.ListInstances(ctx)
			if err != nil {
				logrus.WithError(err).Error("[APP] Failed to list instances for push resubscribe")
				return
			}
			for _, inst := range instances {
				pushManager.Ensure(inst.ID)
			}
		}()
	}
}

// dispatchPushEvent routes one push-channel event through the worker pool,
// sharded by chat so a conversation's messages apply in order.
func dispatchPushEvent(instanceID string, evt domainEvent.Event) {
	shard := "push-events"
	if up, ok := evt.(domainEvent.MessagesUpserted); ok && len(up.Messages) > 0 {
		shard = whatsapp.NormalizeRemoteJID(up.Messages[0].Key.RemoteJid)
	}

	job := msgworker.Job{
		InstanceID: instanceID,
		ChatJID:    shard,
		Handler: func(ctx context.Context) error {
			return eventUsecase.Ingest(ctx, instanceID, evt)
		},
	}
	if !workerPool.TryDispatch(job) {
		logrus.Warnf("[APP] Worker pool full, ingesting push event inline for %s", instanceID)
		if err := eventUsecase.Ingest(context.Background(), instanceID, evt); err != nil {
			logrus.WithError(err).Warnf("[APP] Push event ingest failed for %s", instanceID)
		}
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of background services.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if pushManager != nil {
		pushManager.Close()
	}
	msgworker.StopGlobalPool()
	if groupCache != nil {
		groupCache.Stop()
	}
	if vkClient != nil {
		vkClient.Close()
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
