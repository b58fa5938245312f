package models

import "time"

// User represents a user in the database.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      *string   `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type contextKey string

// UserContextKey is the key for the authenticated user in a request context.
const UserContextKey = contextKey("user")
