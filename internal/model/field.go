package model

import "time"

// Field is a bookable sports field belonging to a branch.  Its operating
// window is stored as minutes since midnight; the default of 0..1440
// means the field is bookable around the clock.  Fields are created and
// updated by an external back office and are read-only to this service.
//
// Fields:
//  ID        – primary key identifier.
//  BranchID  – owning branch.
//  Name      – unique field name within the branch.
//  Sport     – optional sport label (e.g. "futsal", "padel").
//  OpenMin   – opening time in minutes since midnight (0 = 00:00).
//  CloseMin  – closing time in minutes since midnight (1440 = 24:00).
//  IsActive  – whether the field accepts new reservations.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Field struct {
	ID        uint64    // fields.id
	BranchID  uint64    // fields.branch_id
	Name      string    // fields.name
	Sport     *string   // fields.sport (nullable)
	OpenMin   uint16    // fields.open_min
	CloseMin  uint16    // fields.close_min
	IsActive  bool      // fields.is_active
	CreatedAt time.Time // fields.created_at
	UpdatedAt time.Time // fields.updated_at
}
