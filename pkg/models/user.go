package models

import "time"

// NotifyChannel selects how a user receives change notifications.
type NotifyChannel string

const (
	NotifyViaEmail   NotifyChannel = "email"
	NotifyViaConsole NotifyChannel = "console"
)

// User owns monitoring targets and receives notifications.
type User struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"      validate:"required,email"`
	NotifyVia NotifyChannel `json:"notify_via" validate:"omitempty,oneof=email console"`
	CreatedAt time.Time     `json:"created_at"`
}
