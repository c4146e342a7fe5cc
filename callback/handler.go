// Package callback handles the save notifications the Document Server posts
// while a document is open for editing.
package callback

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/onlyoffice-confluence/confluence"
	"github.com/jrsteele09/onlyoffice-confluence/hostauth"
	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/permissions"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
	"github.com/jrsteele09/onlyoffice-confluence/token"
)

const maxBodySize = 1 << 20

// Handler authenticates callbacks and writes saved documents back to
// Confluence.
type Handler struct {
	tenants    hostauth.TenantGetter
	hosts      confluence.Provider
	downloader Downloader
	codec      *token.Codec
}

func NewHandler(tenants hostauth.TenantGetter, hosts confluence.Provider, downloader Downloader, codec *token.Codec) *Handler {
	return &Handler{tenants: tenants, hosts: hosts, downloader: downloader, codec: codec}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenant, claims, err := h.authenticate(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, err)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil || len(raw) == 0 {
		writeError(w, errors.Wrapf(errors.ErrInvalidRequest, "request body not found"))
		return
	}
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		writeError(w, errors.Wrapf(errors.ErrInvalidRequest, "malformed callback body"))
		return
	}

	if tenant.Settings.Signed() {
		payload, err = h.verifyPayload(r, tenant, payload)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	resp, err := h.Process(r.Context(), tenant, claims, payload)
	if err != nil {
		log.Err(err).
			Str("client_key", tenant.ClientKey).
			Str("attachment_id", claims.EntityID).
			Int("status", int(payload.Status)).
			Msg("callback failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// authenticate resolves the tenant named by the query token and verifies
// the token with its secret.
func (h *Handler) authenticate(ctx context.Context, raw string) (*tenants.Tenant, *token.Claims, error) {
	if raw == "" {
		return nil, nil, errors.ErrMissingToken
	}
	clientKey, err := h.codec.PeekClientKey(raw)
	if err != nil {
		return nil, nil, err
	}
	tenant, err := h.tenants.Get(ctx, clientKey)
	if err != nil {
		return nil, nil, err
	}
	claims, err := h.codec.Verify(raw, tenant.SharedSecret, token.ScopeCallback)
	if err != nil {
		return nil, nil, err
	}
	return tenant, claims, nil
}

// verifyPayload replaces the posted body with the signed one. A body token
// signs the payload itself; a header token nests it under "payload".
func (h *Handler) verifyPayload(r *http.Request, tenant *tenants.Tenant, posted Payload) (Payload, error) {
	raw := posted.Token
	fromHeader := false
	if raw == "" {
		raw = token.FromHeader(r.Header.Get(tenant.Settings.Header()))
		fromHeader = true
	}
	if raw == "" {
		return Payload{}, errors.Wrapf(errors.ErrMissingToken, "could not find authentication data on request")
	}

	claims, err := h.codec.VerifyPayload(raw, tenant.Settings.JWTSecret)
	if err != nil {
		return Payload{}, err
	}
	var signed any = claims
	if fromHeader {
		nested, ok := claims["payload"]
		if !ok {
			return Payload{}, errors.Wrapf(errors.ErrInvalidToken, "header token carries no payload")
		}
		signed = nested
	}

	var payload Payload
	if err := token.Remarshal(signed, &payload); err != nil {
		return Payload{}, err
	}
	return payload, nil
}

// Process runs the callback state machine for an authenticated payload.
func (h *Handler) Process(ctx context.Context, tenant *tenants.Tenant, claims *token.Claims, payload Payload) (Response, error) {
	switch payload.Status {
	case StatusEditing:
		return ack(), nil
	case StatusMustSave, StatusCorrupted:
		if err := h.save(ctx, tenant, claims, payload); err != nil {
			return Response{}, err
		}
		return ack(), nil
	case StatusMustForceSave, StatusCorruptedForceSave:
		return Response{Error: 1, Message: forceSaveUnsupported}, nil
	default:
		log.Debug().Str("client_key", tenant.ClientKey).Int("status", int(payload.Status)).Msg("callback acknowledged")
		return ack(), nil
	}
}

func (h *Handler) save(ctx context.Context, tenant *tenants.Tenant, claims *token.Claims, payload Payload) error {
	if payload.URL == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "status %d without url", payload.Status)
	}
	writer := &hostauth.Actor{
		ClientKey: tenant.ClientKey,
		AccountID: editorOf(tenant, claims, payload),
		Kind:      tenant.Kind,
	}

	api, err := h.hosts.ForTenant(ctx, tenant)
	if err != nil {
		return err
	}
	if err := permissions.NewGate(api).Require(ctx, writer, claims.EntityID, permissions.Update); err != nil {
		return err
	}

	att, err := api.GetAttachment(ctx, claims.EntityID)
	if err != nil {
		return err
	}
	data, err := h.downloader.Download(ctx, payload.URL)
	if err != nil {
		return err
	}
	if err := api.UpdateAttachmentData(ctx, claims.ParentID, claims.EntityID, att.Title, data); err != nil {
		return err
	}

	log.Info().
		Str("client_key", tenant.ClientKey).
		Str("attachment_id", claims.EntityID).
		Int("status", int(payload.Status)).
		Int("bytes", len(data)).
		Msg("document saved")
	return nil
}

// editorOf is the account a save is attributed to. The signed action list
// names the last editor; an unsigned body is not trusted for that and the
// session token's user is used instead.
func editorOf(tenant *tenants.Tenant, claims *token.Claims, payload Payload) string {
	if tenant.Settings.Signed() && len(payload.Actions) > 0 && payload.Actions[0].UserID != "" {
		return payload.Actions[0].UserID
	}
	return claims.UserID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	message := http.StatusText(status)
	if status < http.StatusInternalServerError {
		message = err.Error()
	}
	writeJSON(w, status, Response{Error: 1, Message: message})
}
