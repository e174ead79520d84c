package util

import "github.com/google/uuid"

// NewUUID generates a new v7 uuid
func NewUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IsUUID reports whether s parses as a uuid of any version.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
