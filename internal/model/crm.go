// internal/model/crm.go
package model

import "time"

type Client struct {
	ID             int        `db:"id" json:"id"`
	OrganizationID string     `db:"organization_id" json:"organization_id"`
	Name           string     `db:"name" json:"name"`
	Email          string     `db:"email" json:"email"`
	Company        string     `db:"company" json:"company"`
	Website        string     `db:"website" json:"website"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

const (
	ProjectActive   = "active"
	ProjectArchived = "archived"
)

type Project struct {
	ID             int        `db:"id" json:"id"`
	OrganizationID string     `db:"organization_id" json:"organization_id"`
	ClientID       int        `db:"client_id" json:"client_id"`
	Name           string     `db:"name" json:"name"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
