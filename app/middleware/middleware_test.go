package appMiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"valid":          {"Bearer abc.def.ghi", "abc.def.ghi", true},
		"lowercase":      {"bearer abc", "abc", true},
		"missing":        {"", "", false},
		"wrong scheme":   {"Basic abc", "", false},
		"no token":       {"Bearer", "", false},
		"too many parts": {"Bearer a b", "", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			token, ok := BearerToken(r)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "10.0.0.7", ClientIP(r))

	r.RemoteAddr = "10.0.0.8"
	assert.Equal(t, "10.0.0.8", ClientIP(r))
}

func TestCaptureRequestMeta(t *testing.T) {
	var got types.RequestMeta
	h := CaptureRequestMeta(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RequestMetaFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.20:4000"
	r.Header.Set("User-Agent", "curl/8.0")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "192.168.1.20", got.IPAddress)
	assert.Equal(t, "curl/8.0", got.UserAgent)
}

func TestUserContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := UserFromContext(r.Context())
	assert.False(t, ok)

	ctx := WithUser(r.Context(), &types.User{ID: 9, Username: "alice"})
	user, ok := UserFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(9), user.ID)
}
