// Package clients provides read access to hotel guests.
package clients

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound indicates the requested client does not exist.
var ErrNotFound = errors.New("client not found")

// Client is a guest who can hold reservations.
type Client struct {
	ID                 int64     `json:"id"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	IsActive           bool      `json:"is_active"`
	OutstandingBalance float64   `json:"outstanding_balance"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (c *Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// HasDebt reports whether the client owes the hotel money.
func (c *Client) HasDebt() bool {
	return c.OutstandingBalance > 0
}
