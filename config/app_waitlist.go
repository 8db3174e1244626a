package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/akeren/waitlist-foundry/internal/mode"
	"github.com/akeren/waitlist-foundry/pkg/constants"
	"github.com/akeren/waitlist-foundry/pkg/kvstore"
	"github.com/akeren/waitlist-foundry/pkg/postgrest"
	"github.com/akeren/waitlist-foundry/pkg/utils"
)

const (
	RemoteDriverREST     = "rest"
	RemoteDriverPostgres = "postgres"

	LocalStoreFile   = "file"
	LocalStoreMemory = "memory"
	LocalStoreRedis  = "redis"

	defaultLocalPath   = "data"
	redisSlotKeyPrefix = "waitlist:"
)

// WaitlistConfig is read once at start. Nothing re-reads the environment
// after LoadWaitlistConfig returns.
type WaitlistConfig struct {
	RemoteDriver  string
	RemoteURL     string
	RemoteKey     string
	RemoteTimeout time.Duration
	LocalStore    string
	LocalPath     string
	LocalSlot     string
	NextStepURL   string
}

func LoadWaitlistConfig() (*WaitlistConfig, error) {
	cfg := &WaitlistConfig{
		RemoteDriver:  strings.ToLower(utils.GetEnvTrimmedOrDefault("WAITLIST_REMOTE_DRIVER", RemoteDriverREST)),
		RemoteURL:     sanitizeEnv(utils.GetEnvTrimmedOrDefault("WAITLIST_REMOTE_URL", constants.PlaceholderRemoteURL)),
		RemoteKey:     sanitizeEnv(utils.GetEnvTrimmedOrDefault("WAITLIST_REMOTE_KEY", constants.PlaceholderRemoteKey)),
		RemoteTimeout: utils.GetEnvPositiveDuration("WAITLIST_REMOTE_TIMEOUT", constants.DefaultRemoteTimeout),
		LocalStore:    strings.ToLower(utils.GetEnvTrimmedOrDefault("WAITLIST_LOCAL_STORE", LocalStoreFile)),
		LocalPath:     utils.GetEnvTrimmedOrDefault("WAITLIST_LOCAL_PATH", defaultLocalPath),
		LocalSlot:     utils.GetEnvTrimmedOrDefault("WAITLIST_LOCAL_SLOT", constants.DefaultWaitlistSlot),
		NextStepURL:   utils.GetEnvTrimmedOrDefault("WAITLIST_NEXT_STEP_URL", constants.DefaultWaitlistNextStepURL),
	}

	switch cfg.RemoteDriver {
	case RemoteDriverREST, RemoteDriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported WAITLIST_REMOTE_DRIVER %q (allowed: rest, postgres)", cfg.RemoteDriver)
	}

	switch cfg.LocalStore {
	case LocalStoreFile, LocalStoreMemory, LocalStoreRedis:
	default:
		return nil, fmt.Errorf("unsupported WAITLIST_LOCAL_STORE %q (allowed: file, memory, redis)", cfg.LocalStore)
	}

	if strings.ContainsAny(cfg.LocalSlot, `/\`) {
		return nil, fmt.Errorf("invalid WAITLIST_LOCAL_SLOT %q", cfg.LocalSlot)
	}

	return cfg, nil
}

func (wc *WaitlistConfig) Settings() mode.Settings {
	return mode.Settings{Endpoint: wc.RemoteURL, AccessKey: wc.RemoteKey}
}

func (wc *WaitlistConfig) NewSelector() *mode.Selector {
	return mode.NewSelector(wc.Settings())
}

// NewLocalStore builds the fallback slot store. The redis store needs a
// connected cache; without one it degrades to the file store.
func (wc *WaitlistConfig) NewLocalStore(logger *log.Logger, cache Cache) kvstore.Store {
	switch wc.LocalStore {
	case LocalStoreMemory:
		logger.Warn("Local waitlist store is in-memory; entries are lost on restart")
		return kvstore.NewMemoryStore()
	case LocalStoreRedis:
		if cache != nil {
			logger.Info("Local waitlist store uses Redis", "prefix", redisSlotKeyPrefix)
			return kvstore.NewCacheStore(cache, redisSlotKeyPrefix)
		}
		logger.Warn("WAITLIST_LOCAL_STORE=redis but Redis is not available; using file store", "path", wc.LocalPath)
	}

	logger.Info("Local waitlist store uses files", "path", wc.LocalPath)
	return kvstore.NewFileStore(wc.LocalPath)
}

func (wc *WaitlistConfig) NewRESTClient() (*postgrest.Client, error) {
	return postgrest.NewClient(wc.RemoteURL, wc.RemoteKey, wc.RemoteTimeout)
}

// PostgresDSN turns the remote URL into a connection string, using the
// access key as the password unless the URL already carries one.
func (wc *WaitlistConfig) PostgresDSN() (string, error) {
	u, err := url.Parse(wc.RemoteURL)
	if err != nil {
		return "", fmt.Errorf("invalid WAITLIST_REMOTE_URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("WAITLIST_REMOTE_URL must be a postgres:// URL for the postgres driver, got scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("WAITLIST_REMOTE_URL has no host")
	}

	user := "postgres"
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	if u.User == nil {
		u.User = url.UserPassword(user, wc.RemoteKey)
	} else if _, hasPassword := u.User.Password(); !hasPassword {
		u.User = url.UserPassword(user, wc.RemoteKey)
	}

	return u.String(), nil
}
