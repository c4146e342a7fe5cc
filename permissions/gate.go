// Package permissions gates document operations on the host's permission
// model.
package permissions

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/onlyoffice-confluence/hostauth"
	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
)

// Operation is an action a user wants to perform on content.
type Operation string

const (
	Read   Operation = "read"
	Update Operation = "update"
	Delete Operation = "delete"
)

var contentIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Checker asks the host whether a user may perform an operation.
type Checker interface {
	CheckPermission(ctx context.Context, accountID, contentID, operation string) (bool, error)
}

// Gate checks permissions for one tenant.
type Gate struct {
	checker Checker
}

func NewGate(checker Checker) *Gate {
	return &Gate{checker: checker}
}

// ValidContentID reports whether id is safe to put into a host API path.
func ValidContentID(id string) bool {
	return contentIDPattern.MatchString(id)
}

// Check returns whether actor may perform op on contentID. A failed host
// call is reported as ErrPermissionUnknown, never as a plain false.
func (g *Gate) Check(ctx context.Context, actor *hostauth.Actor, contentID string, op Operation) (bool, error) {
	if !ValidContentID(contentID) {
		return false, errors.Wrapf(errors.ErrInvalidContentID, "%q", contentID)
	}
	switch op {
	case Read, Update, Delete:
	default:
		return false, errors.Wrapf(errors.ErrInvalidRequest, "unknown operation %q", op)
	}
	if actor == nil || actor.AccountID == "" {
		return false, nil
	}

	allowed, err := g.checker.CheckPermission(ctx, actor.AccountID, contentID, string(op))
	if err != nil {
		log.Err(err).Str("client_key", actor.ClientKey).Str("content_id", contentID).Str("operation", string(op)).Msg("permission check failed")
		return false, fmt.Errorf("%w: %w", errors.ErrPermissionUnknown, err)
	}
	return allowed, nil
}

// Require is Check turning a denial into ErrForbidden.
func (g *Gate) Require(ctx context.Context, actor *hostauth.Actor, contentID string, op Operation) error {
	allowed, err := g.Check(ctx, actor, contentID, op)
	if err != nil {
		return err
	}
	if !allowed {
		return errors.Wrapf(errors.ErrForbidden, "you don't have %s access to this content", op)
	}
	return nil
}
