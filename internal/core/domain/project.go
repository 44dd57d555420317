package domain

import "time"

type Role string

const (
	RoleClient    Role = "client"
	RoleForeman   Role = "foreman"
	RoleInspector Role = "inspector"
	RoleAdmin     Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleClient, RoleForeman, RoleInspector, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

type ProjectStatus string

const (
	ProjectPending ProjectStatus = "pending"
	ProjectActive  ProjectStatus = "active"
)

// Identity is the authenticated caller. It is resolved once per request by
// the transport layer and passed explicitly into every decision; nothing in
// the core reads it from ambient state.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

type Member struct {
	UserID  string    `json:"user_id"`
	Email   string    `json:"email"`
	Role    Role      `json:"role"`
	AddedAt time.Time `json:"added_at"`
}

type Project struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Address             string        `json:"address"`
	Latitude            *float64      `json:"latitude,omitempty"`
	Longitude           *float64      `json:"longitude,omitempty"`
	Polygon             []Coordinates `json:"polygon,omitempty"`
	Status              ProjectStatus `json:"status"`
	HasPendingChecklist bool          `json:"has_pending_checklist"`
	Members             []Member      `json:"members,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

func (p *Project) Location() (Coordinates, bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return Coordinates{}, false
	}
	return Coordinates{Latitude: *p.Latitude, Longitude: *p.Longitude}, true
}

func (p *Project) HasMember(userID string) bool {
	for _, m := range p.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func (p *Project) ForemanAssigned() bool {
	for _, m := range p.Members {
		if m.Role == RoleForeman {
			return true
		}
	}
	return false
}
