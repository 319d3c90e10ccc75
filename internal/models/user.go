package models

import "time"

// User is an account holder. Users are created once at registration and are
// immutable afterwards; no update or delete operations are exposed.
type User struct {
	ID        uint   `gorm:"primarykey"`
	Name      string `gorm:"not null"`
	Country   string `gorm:"not null"`
	City      string `gorm:"not null"`
	CreatedAt time.Time
}
