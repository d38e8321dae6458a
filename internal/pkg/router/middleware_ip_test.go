package router

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "true client ip wins",
			headers: map[string]string{"True-Client-IP": "198.51.100.1", "X-Real-IP": "198.51.100.2"},
			remote:  "10.0.0.1:1234",
			want:    "198.51.100.1",
		},
		{
			name:    "x real ip",
			headers: map[string]string{"X-Real-IP": "198.51.100.2"},
			remote:  "10.0.0.1:1234",
			want:    "198.51.100.2",
		},
		{
			name:    "first forwarded entry",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.7",
		},
		{
			name:   "falls back to remote addr host",
			remote: "192.0.2.9:5678",
			want:   "192.0.2.9",
		},
		{
			name:    "invalid header falls back",
			headers: map[string]string{"X-Real-IP": "not-an-ip"},
			remote:  "192.0.2.9:5678",
			want:    "192.0.2.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, realIP(req))
		})
	}
}

func TestNormalizeCID(t *testing.T) {
	assert.Equal(t, "abc-123", normalizeCID("  abc-123  "))
	assert.Empty(t, normalizeCID("bad\r\nvalue"))
	assert.Empty(t, normalizeCID("   "))

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, normalizeCID(string(long)), 128)
}
