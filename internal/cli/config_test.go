package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		name     string
		server   string
		expected string
		wantErr  bool
	}{
		{name: "http", server: "http://localhost:3000", expected: "ws://localhost:3000/ws"},
		{name: "https with trailing slash", server: "https://stt.example/", expected: "wss://stt.example/ws"},
		{name: "path prefix", server: "http://host/game", expected: "ws://host/game/ws"},
		{name: "already ws", server: "ws://host:1", expected: "ws://host:1/ws"},
		{name: "bad scheme", server: "ftp://host", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{ServerURL: tt.server}
			got, err := c.WebsocketURL()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDefaultConfigReadsEnvironment(t *testing.T) {
	t.Setenv("STT_SERVER", "http://example:9999")
	assert.Equal(t, "http://example:9999", DefaultConfig().ServerURL)
}
