package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/watchsync/internal/app"
	"github.com/sharetube/watchsync/internal/service/videosync"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

func (v configVar[T]) bind() {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

var (
	secret = configVar[string]{
		envKey:       "WATCHSYNC_SECRET",
		flagKey:      "secret",
		defaultValue: "",
		usage:        "Secret used to verify identity tokens",
	}
	port = configVar[int]{
		envKey:       "WATCHSYNC_PORT",
		flagKey:      "port",
		defaultValue: 80,
		usage:        "Server port",
	}
	host = configVar[string]{
		envKey:       "WATCHSYNC_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	logLevel = configVar[string]{
		envKey:       "WATCHSYNC_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	storeDriver = configVar[string]{
		envKey:       "WATCHSYNC_STORE_DRIVER",
		flagKey:      "store-driver",
		defaultValue: app.StoreDriverRedis,
		usage:        "Video state and membership store: redis or sqlite",
	}
	sqlitePath = configVar[string]{
		envKey:       "WATCHSYNC_SQLITE_PATH",
		flagKey:      "sqlite-path",
		defaultValue: "/var/lib/watchsync/watchsync.db",
		usage:        "Sqlite database file",
	}
	broadcastDriver = configVar[string]{
		envKey:       "WATCHSYNC_BROADCAST_DRIVER",
		flagKey:      "broadcast-driver",
		defaultValue: app.BroadcastDriverLocal,
		usage:        "Room broadcast fan-out: local or redis",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
		usage:        "Redis password",
	}
	maxCommitAttempts = configVar[int]{
		envKey:       "WATCHSYNC_MAX_COMMIT_ATTEMPTS",
		flagKey:      "max-commit-attempts",
		defaultValue: videosync.DefaultMaxCommitAttempts,
		usage:        "Attempts per command before reporting a concurrent update conflict",
	}
	sendBuffer = configVar[int]{
		envKey:       "WATCHSYNC_SEND_BUFFER",
		flagKey:      "send-buffer",
		defaultValue: 64,
		usage:        "Outgoing broadcast buffer per connection",
	}
	publishBuffer = configVar[int]{
		envKey:       "WATCHSYNC_PUBLISH_BUFFER",
		flagKey:      "publish-buffer",
		defaultValue: 1024,
		usage:        "Pending broadcast queue size",
	}
	resolveVideoMetadata = configVar[bool]{
		envKey:       "WATCHSYNC_RESOLVE_VIDEO_METADATA",
		flagKey:      "resolve-video-metadata",
		defaultValue: false,
		usage:        "Fill missing video title and thumbnail from youtube",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(secret.flagKey, secret.defaultValue, secret.usage)
	pflag.Int(port.flagKey, port.defaultValue, port.usage)
	pflag.String(host.flagKey, host.defaultValue, host.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.String(storeDriver.flagKey, storeDriver.defaultValue, storeDriver.usage)
	pflag.String(sqlitePath.flagKey, sqlitePath.defaultValue, sqlitePath.usage)
	pflag.String(broadcastDriver.flagKey, broadcastDriver.defaultValue, broadcastDriver.usage)
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, redisPort.usage)
	pflag.String(redisHost.flagKey, redisHost.defaultValue, redisHost.usage)
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, redisPassword.usage)
	pflag.Int(maxCommitAttempts.flagKey, maxCommitAttempts.defaultValue, maxCommitAttempts.usage)
	pflag.Int(sendBuffer.flagKey, sendBuffer.defaultValue, sendBuffer.usage)
	pflag.Int(publishBuffer.flagKey, publishBuffer.defaultValue, publishBuffer.usage)
	pflag.Bool(resolveVideoMetadata.flagKey, resolveVideoMetadata.defaultValue, resolveVideoMetadata.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	secret.bind()
	port.bind()
	host.bind()
	logLevel.bind()
	storeDriver.bind()
	sqlitePath.bind()
	broadcastDriver.bind()
	redisPort.bind()
	redisHost.bind()
	redisPassword.bind()
	maxCommitAttempts.bind()
	sendBuffer.bind()
	publishBuffer.bind()
	resolveVideoMetadata.bind()

	config := &app.AppConfig{
		Secret:               viper.GetString(secret.flagKey),
		Host:                 viper.GetString(host.flagKey),
		Port:                 viper.GetInt(port.flagKey),
		LogLevel:             viper.GetString(logLevel.flagKey),
		StoreDriver:          viper.GetString(storeDriver.flagKey),
		SqlitePath:           viper.GetString(sqlitePath.flagKey),
		BroadcastDriver:      viper.GetString(broadcastDriver.flagKey),
		RedisPort:            viper.GetInt(redisPort.flagKey),
		RedisHost:            viper.GetString(redisHost.flagKey),
		RedisPassword:        viper.GetString(redisPassword.flagKey),
		MaxCommitAttempts:    viper.GetInt(maxCommitAttempts.flagKey),
		SendBuffer:           viper.GetInt(sendBuffer.flagKey),
		PublishBuffer:        viper.GetInt(publishBuffer.flagKey),
		ResolveVideoMetadata: viper.GetBool(resolveVideoMetadata.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
