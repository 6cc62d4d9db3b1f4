package models

import (
	"time"

	"github.com/gocql/gocql"
)

type User struct {
	ID        gocql.UUID `json:"id" db:"user_id"`
	Email     string     `json:"email" db:"email"`
	Name      string     `json:"name" db:"name"`
	Password  string     `json:"-" db:"password"`
	Role      string     `json:"role" db:"role"` // admin, staff
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
