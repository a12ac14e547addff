package middleware

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/greenpoints/internal/models"
)

type loggerFunc func(string, ...any)

func (f loggerFunc) Info(msg string, v ...any) { f(msg, v...) }

// Logged key-value pairs as a map, fails on odd args
func fields(t *testing.T, args []any) map[string]any {
	t.Helper()

	require.Zero(t, len(args)%2, "args must be key-value pairs: %v", args)
	m := make(map[string]any, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		require.Truef(t, ok, "key %v must be string", args[i])
		m[key] = args[i+1]
	}
	return m
}

func TestAccessLog(t *testing.T) {
	accountID := uuid.New()

	teapot := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, err := w.Write([]byte("hi"))
		require.NoError(t, err, "should write response")
	})
	authed := AuthMiddleware(authFunc(func(r *http.Request) (models.Principal, error) {
		return models.Principal{AccountID: accountID, Role: models.RoleUser}, nil
	}))

	tests := []struct {
		name      string
		handler   http.Handler
		want      map[string]any
		anonymous bool
	}{
		{
			name:    "anonymous",
			handler: teapot,
			want: map[string]any{
				"method": "GET",
				"uri":    "/test",
				"route":  "GET /test",
				"status": http.StatusTeapot,
				"size":   2,
			},
			anonymous: true,
		},
		{
			name:    "authenticated",
			handler: authed(teapot),
			want: map[string]any{
				"route":      "GET /test",
				"status":     http.StatusTeapot,
				"account_id": accountID.String(),
				"role":       models.RoleUser,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msgs []string
			var got map[string]any
			l := loggerFunc(func(m string, v ...any) {
				msgs = append(msgs, m)
				got = fields(t, v)
			})

			mux := http.NewServeMux()
			mux.Handle("GET /test", tt.handler)

			resp, body := get(t, AccessLog(l)(mux))

			require.Equal(t, http.StatusTeapot, resp.StatusCode)
			require.Equal(t, "hi", body)
			require.Equal(t, []string{"HTTP request served"}, msgs, "one line per request")
			require.NotZero(t, got["duration"])
			for k, v := range tt.want {
				require.Equalf(t, v, got[k], "field %q", k)
			}
			if tt.anonymous {
				require.NotContains(t, got, "account_id")
			}
		})
	}

	t.Run("rejected by auth", func(t *testing.T) {
		var got map[string]any
		l := loggerFunc(func(_ string, v ...any) { got = fields(t, v) })
		deny := AuthMiddleware(authFunc(func(r *http.Request) (models.Principal, error) {
			return models.Principal{}, errors.New("bad token")
		}))

		resp, _ := get(t, AccessLog(l)(deny(teapot)))

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, http.StatusUnauthorized, got["status"])
		require.NotContains(t, got, "account_id")
	})
}
