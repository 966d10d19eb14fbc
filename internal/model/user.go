package model

import "time"

// User is the subject of a reservation.  Only the minimum needed to
// authenticate and attribute bookings is kept; account administration
// lives in an external back office.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique login email.
//  PasswordHash – bcrypt hash of the password.
//  Name         – display name.
//  CreatedAt    – creation timestamp.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Name         string    // users.name
	CreatedAt    time.Time // users.created_at
}
