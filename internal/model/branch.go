package model

import "time"

// Branch is a physical location that owns one or more bookable fields.
// Branches are administered by an external back office; this service
// only reads them.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the branch.
//  Timezone  – IANA timezone name, informational only (all stored
//              timestamps are UTC).
//  IsActive  – whether the branch is open for bookings.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Branch struct {
	ID        uint64    // branches.id
	Name      string    // branches.name
	Timezone  string    // branches.timezone
	IsActive  bool      // branches.is_active
	CreatedAt time.Time // branches.created_at
	UpdatedAt time.Time // branches.updated_at
}
