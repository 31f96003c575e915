// Package middleware holds the HTTP middleware shared by all routes.
package middleware

import (
	"context"
	"net/http"
	"strings"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
)

// Headers set by the upstream gateway after authentication.
const (
	HeaderOrganization = "X-Organization-ID"
	HeaderUser         = "X-User-ID"
)

type identityKey struct{}

// Identity is the caller as asserted by the gateway.
type Identity = model.Actor

// RequireIdentity rejects requests without organization and user headers.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identityFromHeaders(r)
		if !ok {
			appErrors.Write(w, appErrors.Unauthenticated("missing "+HeaderOrganization+" or "+HeaderUser+" header"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func identityFromHeaders(r *http.Request) (Identity, bool) {
	id := Identity{
		OrganizationID: strings.TrimSpace(r.Header.Get(HeaderOrganization)),
		UserID:         strings.TrimSpace(r.Header.Get(HeaderUser)),
	}
	return id, id.OrganizationID != "" && id.UserID != ""
}

// OrganizationFromRequest is used by the chat WebSocket, where browsers
// cannot set headers and the gateway forwards the organization as a query parameter.
func OrganizationFromRequest(r *http.Request) (string, bool) {
	if id, ok := identityFromHeaders(r); ok {
		return id.OrganizationID, true
	}
	org := strings.TrimSpace(r.URL.Query().Get("org"))
	return org, org != ""
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by RequireIdentity.
func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}
