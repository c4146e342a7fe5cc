package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"expired token", errors.Wrapf(errors.ErrTokenExpired, "verify"), http.StatusUnauthorized},
		{"wrong scope", errors.ErrWrongScope, http.StatusUnauthorized},
		{"forbidden", fmt.Errorf("callback: %w", errors.ErrForbidden), http.StatusForbidden},
		{"bad content id", errors.ErrInvalidContentID, http.StatusBadRequest},
		{"permission unknown", errors.ErrPermissionUnknown, http.StatusBadGateway},
		{"upstream", &errors.UpstreamError{Method: "GetUser", Code: 500, Status: "Internal Server Error"}, http.StatusBadGateway},
		{"unknown", stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, errors.HTTPStatus(tt.err))
		})
	}
}

func TestUpstreamError_Message(t *testing.T) {
	err := &errors.UpstreamError{Method: "UpdateAttachmentData", Code: 404, Status: "Not Found", Message: "No attachment"}
	require.Equal(t, "UpdateAttachmentData: confluence responded 404 Not Found: No attachment", err.Error())

	wrapped := errors.Wrapf(err, "save %s", "att123")
	var upstream *errors.UpstreamError
	require.True(t, errors.As(wrapped, &upstream))
	require.Equal(t, 404, upstream.Code)
}
