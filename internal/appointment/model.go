package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Practitioner struct {
	ID             uuid.UUID
	Name           string
	Specialty      *string
	OrganizationID *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ScopeKind selects whose appointments a range query covers.
type ScopeKind string

const (
	// ScopeMine fetches the current practitioner's own appointments.
	ScopeMine ScopeKind = "mine"
	// ScopeOrganization fetches appointments across an organization's
	// practitioners, optionally narrowed to one of them.
	ScopeOrganization ScopeKind = "organization"
	// ScopeAll fetches everything in range.
	ScopeAll ScopeKind = "all"
)

type Scope struct {
	Kind           ScopeKind
	PractitionerID *uuid.UUID // required for mine; optional filter for organization
	OrganizationID *uuid.UUID // required for organization
}

// Key produces a stable cache/discard key for the scope, used together with
// the resolved date range so callers can discard responses that no longer
// match the current query.
func (s Scope) Key() string {
	key := string(s.Kind)
	if s.OrganizationID != nil {
		key += ":org=" + s.OrganizationID.String()
	}
	if s.PractitionerID != nil {
		key += ":practitioner=" + s.PractitionerID.String()
	}
	return key
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
