package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a stored user record; once resolved for an operation it is the
// caller's identity and is never mutated
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Trip links a user to a booked launch
type Trip struct {
	UserID   uuid.UUID `json:"userId"`
	LaunchID int       `json:"launchId"`
	BookedAt time.Time `json:"bookedAt"`
}
