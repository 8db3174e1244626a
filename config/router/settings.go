package router

import (
	"strings"

	"github.com/akeren/waitlist-foundry/pkg/utils"
)

const (
	defaultPort         = "8080"
	defaultMaxBodyBytes = int64(1 << 20)
	defaultHSTSMaxAge   = int64(31536000)
)

// Settings holds the environment driven HTTP knobs. They are read once when
// the router is built and never re-read per request.
type Settings struct {
	// Port is the listen port; empty means defaultPort.
	Port           string
	GinMode        string
	TrustedProxies []string
	AllowedOrigins []string
	MaxBodyBytes   int64
	MetricsEnabled bool

	HSTSEnabled           bool
	HSTSMaxAge            int64
	HSTSIncludeSubdomains bool
}

func LoadSettingsFromEnv() *Settings {
	appEnv := strings.ToLower(utils.GetEnvTrimmed("APP_ENV"))

	return &Settings{
		Port:                  utils.GetEnvTrimmedOrDefault("APP_PORT", defaultPort),
		GinMode:               utils.GetEnvTrimmed("GIN_MODE"),
		TrustedProxies:        parseTrustedProxiesEnv(utils.GetEnvTrimmed("TRUSTED_PROXIES")),
		AllowedOrigins:        utils.GetEnvList("CORS_ALLOWED_ORIGIN"),
		MaxBodyBytes:          utils.GetEnvPositiveInt64("MAX_REQUEST_BODY_BYTES", defaultMaxBodyBytes),
		MetricsEnabled:        utils.GetEnvBool("METRICS_ENABLED", true),
		HSTSEnabled:           utils.GetEnvBool("HSTS_ENABLED", appEnv == "production" || appEnv == "prod"),
		HSTSMaxAge:            utils.GetEnvPositiveInt64("HSTS_MAX_AGE", defaultHSTSMaxAge),
		HSTSIncludeSubdomains: utils.GetEnvBool("HSTS_INCLUDE_SUBDOMAINS", true),
	}
}

func parseTrustedProxiesEnv(v string) []string {
	s := strings.TrimSpace(v)
	if s == "" {
		// ClientIP() falls back to RemoteAddr.
		return nil
	}
	if s == "*" {
		return []string{"0.0.0.0/0", "::/0"}
	}

	proxies := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			proxies = append(proxies, p)
		}
	}
	if len(proxies) == 0 {
		return nil
	}
	return proxies
}

func (s *Settings) originAllowed(origin string) bool {
	for _, allowed := range s.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Settings) port() string {
	if s.Port == "" {
		return defaultPort
	}
	return s.Port
}
