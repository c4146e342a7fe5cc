package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/onlyoffice-confluence/internal/errors"
)

const secret = "tenant-shared-secret"

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sessionClaims(exp time.Time, scope Scope) Claims {
	return Claims{
		ParentID:  "page456",
		EntityID:  "att123",
		ClientKey: "ck-1",
		UserID:    "u1",
		Scope:     scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	codec := NewCodec(fixedNow(now))

	for _, scope := range []Scope{ScopeDownload, ScopeCallback, ScopeEditor} {
		t.Run(string(scope), func(t *testing.T) {
			in := sessionClaims(now.Add(10*time.Minute), scope)
			raw, err := codec.Sign(in, secret)
			require.NoError(t, err)

			out, err := codec.Verify(raw, secret, scope)
			require.NoError(t, err)
			require.Equal(t, in.ParentID, out.ParentID)
			require.Equal(t, in.EntityID, out.EntityID)
			require.Equal(t, in.ClientKey, out.ClientKey)
			require.Equal(t, in.UserID, out.UserID)
			require.Equal(t, scope, out.Scope)
			require.Equal(t, in.ExpiresAt.Unix(), out.ExpiresAt.Unix())
			require.NotEmpty(t, out.ID)
		})
	}
}

func TestCodec_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	raw, err := NewCodec(fixedNow(now)).Sign(sessionClaims(now.Add(time.Minute), ScopeDownload), secret)
	require.NoError(t, err)

	later := NewCodec(fixedNow(now.Add(2 * time.Minute)))
	_, err = later.Verify(raw, secret, ScopeDownload)
	require.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestCodec_Rejections(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	codec := NewCodec(fixedNow(now))
	raw, err := codec.Sign(sessionClaims(now.Add(time.Minute), ScopeDownload), secret)
	require.NoError(t, err)

	// flip one bit in the first signature character
	mutated := []byte(raw)
	sigStart := len(raw) - 43
	mutated[sigStart] ^= 0x01

	tests := []struct {
		name   string
		raw    string
		secret string
		scope  Scope
		want   error
	}{
		{"empty", "", secret, ScopeDownload, apperrors.ErrMissingToken},
		{"garbage", "not-a-jwt", secret, ScopeDownload, apperrors.ErrInvalidToken},
		{"mutated signature", string(mutated), secret, ScopeDownload, apperrors.ErrInvalidToken},
		{"other secret", raw, "another-secret", ScopeDownload, apperrors.ErrInvalidToken},
		{"wrong scope", raw, secret, ScopeCallback, apperrors.ErrWrongScope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(tt.raw, tt.secret, tt.scope)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCodec_RejectsOtherAlgorithms(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, sessionClaims(now.Add(time.Minute), ScopeDownload)).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewCodec(fixedNow(now)).Verify(unsigned, secret, ScopeDownload)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestCodec_SignRequiresExpiryAndScope(t *testing.T) {
	codec := NewCodec(nil)
	_, err := codec.Sign(Claims{Scope: ScopeDownload}, secret)
	require.Error(t, err)

	c := sessionClaims(time.Now().Add(time.Minute), "")
	_, err = codec.Sign(c, secret)
	require.Error(t, err)

	_, err = codec.Sign(sessionClaims(time.Now().Add(time.Minute), ScopeEditor), "")
	require.Error(t, err)
}

func TestCodec_PeekClientKey(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	codec := NewCodec(fixedNow(now))
	raw, err := codec.Sign(sessionClaims(now.Add(time.Minute), ScopeCallback), secret)
	require.NoError(t, err)

	key, err := codec.PeekClientKey(raw)
	require.NoError(t, err)
	require.Equal(t, "ck-1", key)

	_, err = codec.PeekClientKey("")
	require.ErrorIs(t, err, apperrors.ErrMissingToken)
	_, err = codec.PeekClientKey("a.b.c")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestCodec_Payload(t *testing.T) {
	codec := NewCodec(nil)
	type body struct {
		Status int    `json:"status"`
		URL    string `json:"url"`
	}

	raw, err := codec.SignPayload(body{Status: 2, URL: "https://editor/tmp/x.docx"}, "ds-secret")
	require.NoError(t, err)

	var got body
	require.NoError(t, codec.DecodePayload(raw, "ds-secret", &got))
	require.Equal(t, 2, got.Status)
	require.Equal(t, "https://editor/tmp/x.docx", got.URL)

	require.ErrorIs(t, codec.DecodePayload(raw, "wrong", &got), apperrors.ErrInvalidToken)
	_, err = codec.VerifyPayload("", "ds-secret")
	require.ErrorIs(t, err, apperrors.ErrMissingToken)
}

func TestFromHeader(t *testing.T) {
	require.Equal(t, "abc", FromHeader("Bearer abc"))
	require.Equal(t, "abc", FromHeader("bearer  abc "))
	require.Equal(t, "abc", FromHeader("abc"))
	require.Equal(t, "", FromHeader(""))
}
