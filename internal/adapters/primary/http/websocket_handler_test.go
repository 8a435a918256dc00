package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"desk.example.com", "*.support.example.org"}

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://desk.example.com", true},
		{"https://desk.example.com:8443", false},
		{"https://eu.support.example.org", true},
		{"https://support.example.org", true},
		{"https://evilsupport.example.org", false},
		{"https://example.com", false},
		{"::not a url", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, originAllowed(tt.origin, allowed))
		})
	}
}

func TestWebSocketHandler_CheckOrigin(t *testing.T) {
	h := &WebSocketHandler{logger: testLogger()}

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, h.checkOrigin(false, nil)(req), "non-browser clients send no origin")

	req.Header.Set("Origin", "https://elsewhere.test")
	assert.False(t, h.checkOrigin(false, []string{"desk.example.com"})(req))
	assert.True(t, h.checkOrigin(true, nil)(req))
}
