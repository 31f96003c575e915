// internal/model/actor.go
package model

// Actor is the authenticated caller: a user acting inside one organization.
// User IDs double as chat handles for mentions.
type Actor struct {
	OrganizationID string
	UserID         string
}
