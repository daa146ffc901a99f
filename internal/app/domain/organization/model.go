package organization

import "time"

// Organization is the tenant owning collections.
type Organization struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	OwnerID     string    `json:"ownerId" db:"owner_id"`
	Description string    `json:"description" db:"description"`
	AvatarURL   string    `json:"avatarUrl" db:"avatar_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Capability names a membership flag.
type Capability string

const (
	CapabilityEdit   Capability = "canEdit"
	CapabilityManage Capability = "canManage"
	CapabilityDeploy Capability = "canDeploy"
)

// MembershipStatus is derived from the acceptance timestamp.
type MembershipStatus string

const (
	StatusPending  MembershipStatus = "pending"
	StatusAccepted MembershipStatus = "accepted"
)

// Membership joins a user (or an invited email) to an organization.
type Membership struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organizationId" db:"organization_id"`
	UserID         *string    `json:"userId,omitempty" db:"user_id"`
	Email          string     `json:"email" db:"email"`
	CanEdit        bool       `json:"canEdit" db:"can_edit"`
	CanManage      bool       `json:"canManage" db:"can_manage"`
	CanDeploy      bool       `json:"canDeploy" db:"can_deploy"`
	InviteCode     string     `json:"-" db:"invite_code"`
	AcceptedAt     *time.Time `json:"acceptedAt,omitempty" db:"accepted_at"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

// Status reports pending until the invite is accepted.
func (m Membership) Status() MembershipStatus {
	if m.AcceptedAt != nil {
		return StatusAccepted
	}
	return StatusPending
}

// Has reports whether an accepted membership grants cap.
func (m Membership) Has(cap Capability) bool {
	if m.AcceptedAt == nil {
		return false
	}
	switch cap {
	case CapabilityEdit:
		return m.CanEdit
	case CapabilityManage:
		return m.CanManage
	case CapabilityDeploy:
		return m.CanDeploy
	}
	return false
}

// Capabilities is the mutable flag set of a membership.
type Capabilities struct {
	CanEdit   bool `json:"canEdit"`
	CanManage bool `json:"canManage"`
	CanDeploy bool `json:"canDeploy"`
}

// AllCapabilities grants every flag; used for organization owners.
func AllCapabilities() Capabilities {
	return Capabilities{CanEdit: true, CanManage: true, CanDeploy: true}
}
