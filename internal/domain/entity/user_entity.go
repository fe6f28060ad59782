package entity

import (
	"time"
)

// User is the aggregate root for the user domain.
// Passwords are stored as bcrypt hashes in Password field.
// PostIDs is the set of posts this user created, maintained as a
// separate relation so it can be pruned independently of the post row.
type User struct {
	ID        string
	Email     string
	Password  string
	Name      string
	Status    string
	PostIDs   []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
