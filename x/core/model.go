// Package core defines the shared data model of gatehouse
package core

import (
	"time"

	"github.com/lib/pq"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the authenticated subject resolved for a valid credential.
// It is produced only by the identity provider and carried through a single
// request; it is never persisted or cached across requests.
type Identity struct {
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// RoleAssignment is a row in the authority-of-record. The partial unique
// index admits at most one admin row; it is what makes the conditional
// insert race-safe.
type RoleAssignment struct {
	UserID string    `json:"userId" gorm:"primaryKey;type:text"`
	Role   string    `json:"role" gorm:"type:text;not null;index:idx_single_admin,unique,where:role = 'admin'"`
	CDate  time.Time `json:"cdate" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// User backs the default identity provider.
type User struct {
	ID           string         `json:"id" gorm:"primaryKey;type:text"`
	Username     string         `json:"username" gorm:"type:text;uniqueIndex;not null"`
	PasswordHash string         `json:"-" gorm:"type:text;not null"`
	Tags         pq.StringArray `json:"tags" gorm:"type:text[];default:'{}'"`
	CDate        time.Time      `json:"cdate" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// Session is a live login session. Stored in redis under its token, bounded
// by TTL; the relational store never sees it.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
