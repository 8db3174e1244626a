package mode

import (
	"testing"

	"github.com/akeren/waitlist-foundry/pkg/constants"
	"github.com/stretchr/testify/assert"
)

func TestSelector_FallsBackForEachSentinel(t *testing.T) {
	const realURL = "https://abc.supabase.co"
	const realKey = "eyJhbGciOi.real.key"

	cases := []struct {
		name     string
		settings Settings
	}{
		{"placeholder endpoint", Settings{Endpoint: constants.PlaceholderRemoteURL, AccessKey: realKey}},
		{"placeholder key", Settings{Endpoint: realURL, AccessKey: constants.PlaceholderRemoteKey}},
		{"both placeholders", Settings{Endpoint: constants.PlaceholderRemoteURL, AccessKey: constants.PlaceholderRemoteKey}},
		{"empty endpoint", Settings{Endpoint: "", AccessKey: realKey}},
		{"empty key", Settings{Endpoint: realURL, AccessKey: ""}},
		{"whitespace endpoint", Settings{Endpoint: "   ", AccessKey: realKey}},
		{"padded placeholder", Settings{Endpoint: " " + constants.PlaceholderRemoteURL + " ", AccessKey: realKey}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSelector(tc.settings)
			assert.False(t, s.IsRemoteUsable())
			assert.Equal(t, Local, s.Mode())
		})
	}
}

func TestSelector_RemoteUsableForRealPair(t *testing.T) {
	pairs := []Settings{
		{Endpoint: "https://abc.supabase.co", AccessKey: "anon"},
		{Endpoint: "postgres://waitlist@db:5432/waitlist", AccessKey: "s3cret"},
		{Endpoint: "http://localhost:3000", AccessKey: "x"},
	}

	for _, p := range pairs {
		s := NewSelector(p)
		assert.True(t, s.IsRemoteUsable(), "endpoint %q", p.Endpoint)
		assert.Equal(t, Remote, s.Mode())
	}
}

func TestSelector_CustomSentinels(t *testing.T) {
	sentinels := Sentinels{
		Endpoints:  []string{"your-project-url"},
		AccessKeys: []string{"your-anon-key"},
	}

	assert.False(t, NewSelectorWithSentinels(Settings{Endpoint: "your-project-url", AccessKey: "k"}, sentinels).IsRemoteUsable())
	assert.False(t, NewSelectorWithSentinels(Settings{Endpoint: "https://x", AccessKey: "your-anon-key"}, sentinels).IsRemoteUsable())
	assert.True(t, NewSelectorWithSentinels(Settings{Endpoint: "https://x", AccessKey: "k"}, sentinels).IsRemoteUsable())
}
