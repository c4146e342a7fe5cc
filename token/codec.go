package token

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/onlyoffice-confluence/internal/errors"
)

// Codec signs and verifies session tokens and Document Server tokens.
type Codec struct {
	now func() time.Time
}

// NewCodec creates a codec reading the current time from now. A nil now
// uses time.Now.
func NewCodec(now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{now: now}
}

// Sign creates a session token. ExpiresAt must be set; IssuedAt and ID are
// filled in when empty.
func (c *Codec) Sign(claims Claims, secret string) (string, error) {
	if claims.ExpiresAt == nil {
		return "", errors.New("session token without expiry")
	}
	if claims.Scope == "" {
		return "", errors.New("session token without scope")
	}
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(c.now())
	}
	if claims.ID == "" {
		claims.ID = uuid.New().String()
	}
	return NewHMACSigner(secret).Sign(claims)
}

// Verify parses a session token signed with secret and checks that it has not
// expired and was issued for scope.
func (c *Codec) Verify(raw, secret string, scope Scope) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.ErrMissingToken
	}
	signer := NewHMACSigner(secret)
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, signer.GetVerificationKey,
		jwt.WithValidMethods([]string{signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, classify(err)
	}
	if claims.Scope != scope {
		return nil, errors.Wrapf(apperrors.ErrWrongScope, "want %s, got %s", scope, claims.Scope)
	}
	return claims, nil
}

// PeekClientKey reads the tenant of a session token without verifying it, so
// the caller can look up the secret to verify with.
func (c *Codec) PeekClientKey(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", apperrors.ErrMissingToken
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", errors.Wrap(apperrors.ErrInvalidToken, err.Error())
	}
	if claims.ClientKey == "" {
		return "", errors.Wrap(apperrors.ErrInvalidToken, "token has no client key")
	}
	return claims.ClientKey, nil
}

// SignPayload signs v as a whole, the way the Document Server expects editor
// configs and command bodies to be signed.
func (c *Codec) SignPayload(v any, secret string) (string, error) {
	claims, err := toMapClaims(v)
	if err != nil {
		return "", err
	}
	return NewHMACSigner(secret).Sign(claims)
}

// VerifyPayload checks a Document Server token and returns its claims. An
// exp claim is honoured when present but not required.
func (c *Codec) VerifyPayload(raw, secret string) (jwt.MapClaims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.ErrMissingToken
	}
	signer := NewHMACSigner(secret)
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, signer.GetVerificationKey,
		jwt.WithValidMethods([]string{signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, classify(err)
	}
	return claims, nil
}

// DecodePayload verifies raw and decodes its claims into dst.
func (c *Codec) DecodePayload(raw, secret string, dst any) error {
	claims, err := c.VerifyPayload(raw, secret)
	if err != nil {
		return err
	}
	return Remarshal(claims, dst)
}

// FromHeader extracts a token from a header value, dropping an optional
// "Bearer " prefix.
func FromHeader(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 7 && strings.EqualFold(value[:7], "Bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return value
}

// Remarshal copies src into dst through JSON.
func Remarshal(src, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return errors.Wrap(err, "failed to encode claims")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.Wrap(apperrors.ErrInvalidToken, "claims do not match the expected shape")
	}
	return nil
}

func toMapClaims(v any) (jwt.MapClaims, error) {
	if m, ok := v.(jwt.MapClaims); ok {
		return m, nil
	}
	claims := jwt.MapClaims{}
	if err := Remarshal(v, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func classify(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return errors.Wrap(apperrors.ErrTokenExpired, "token is past its expiry")
	}
	return errors.Wrap(apperrors.ErrInvalidToken, err.Error())
}
