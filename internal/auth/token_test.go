package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/apperr"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestStaticToken(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	valid := signed(t, jwt.MapClaims{"user_id": 7, "exp": now.Add(time.Hour).Unix()})
	expired := signed(t, jwt.MapClaims{"user_id": 7, "exp": now.Add(-time.Minute).Unix()})
	noExp := signed(t, jwt.MapClaims{"user_id": 7})

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr error
	}{
		{name: "empty is anonymous", token: "", want: ""},
		{name: "opaque token passes through", token: "not-a-jwt", want: "not-a-jwt"},
		{name: "valid jwt", token: valid, want: valid},
		{name: "jwt without exp", token: noExp, want: noExp},
		{name: "expired jwt", token: expired, wantErr: apperr.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewStaticToken(tt.token)
			src.now = func() time.Time { return now }

			got, err := src.Token(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStaticToken_NilReceiver(t *testing.T) {
	var src *StaticToken
	got, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}
