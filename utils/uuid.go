package utils

import "github.com/google/uuid"

// GetToken returns a random token.
func GetToken() string {
	return uuid.NewString()
}

// NewRecordID returns a fresh file record id.
func NewRecordID() string {
	return uuid.New().String()
}
