// Package mode decides which persistence backend serves a waitlist write.
//
// The decision is made from remote connection settings captured once at
// process start. A setting equal to one of the known placeholder values means
// no real backend was configured and writes must go to the local store.
package mode

import (
	"strings"

	"github.com/akeren/waitlist-foundry/pkg/constants"
)

const (
	Remote = "remote"
	Local  = "local"
)

// Settings are the remote connection parameters. They never change after
// the process starts.
type Settings struct {
	Endpoint  string
	AccessKey string
}

// Sentinels lists the placeholder values that mark a setting as unconfigured.
type Sentinels struct {
	Endpoints  []string
	AccessKeys []string
}

// DefaultSentinels returns the empty string plus the build-time placeholders.
func DefaultSentinels() Sentinels {
	return Sentinels{
		Endpoints:  []string{"", constants.PlaceholderRemoteURL},
		AccessKeys: []string{"", constants.PlaceholderRemoteKey},
	}
}

// ModeSelector reports whether the remote backend may be used.
type ModeSelector interface {
	IsRemoteUsable() bool
	Mode() string
}

type Selector struct {
	settings  Settings
	sentinels Sentinels
}

func NewSelector(settings Settings) *Selector {
	return NewSelectorWithSentinels(settings, DefaultSentinels())
}

func NewSelectorWithSentinels(settings Settings, sentinels Sentinels) *Selector {
	return &Selector{
		settings: Settings{
			Endpoint:  strings.TrimSpace(settings.Endpoint),
			AccessKey: strings.TrimSpace(settings.AccessKey),
		},
		sentinels: sentinels,
	}
}

// IsRemoteUsable is false when either setting matches a sentinel.
func (s *Selector) IsRemoteUsable() bool {
	return !matchesAny(s.settings.Endpoint, s.sentinels.Endpoints) &&
		!matchesAny(s.settings.AccessKey, s.sentinels.AccessKeys)
}

func (s *Selector) Mode() string {
	if s.IsRemoteUsable() {
		return Remote
	}
	return Local
}

func matchesAny(value string, sentinels []string) bool {
	for _, sentinel := range sentinels {
		if value == strings.TrimSpace(sentinel) {
			return true
		}
	}
	return false
}
