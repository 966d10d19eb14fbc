// Package repository implements data access against MySQL.  Sentinel
// errors defined here let handlers and services distinguish failure
// scenarios without inspecting SQL errors: ErrSlotTaken signals that the
// store-level overlap backstop rejected a write, ErrForbidden that the
// caller does not own the row it is mutating.
package repository

import "errors"

// ErrFieldNotFound is returned when a field lookup matches no row.
var ErrFieldNotFound = errors.New("field not found")

// ErrBranchNotFound is returned when a branch lookup matches no row.
var ErrBranchNotFound = errors.New("branch not found")

// ErrUserNotFound is returned when a user lookup matches no row.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken is returned when registering with an email that already
// exists.
var ErrEmailTaken = errors.New("email already registered")

// ErrSlotTaken is returned by the transactional create path when the
// requested window overlaps an occupying reservation.  Handlers should
// translate this into an HTTP 409 response.
var ErrSlotTaken = errors.New("slot already taken")

// ErrForbidden is returned when the caller attempts an operation on a
// reservation they do not own.  Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrCancelClosed is returned when a reservation can no longer be
// cancelled by its owner, either because its window has started or
// because it is already in a terminal status.
var ErrCancelClosed = errors.New("reservation can no longer be cancelled")

// ErrPaymentClosed is returned when a payment outcome can no longer be
// recorded: the reservation is not HELD anymore, or its pending hold
// lapsed and the slot may already belong to someone else.  Handlers
// should translate this into an HTTP 409 response.
var ErrPaymentClosed = errors.New("payment window closed")
