package middleware

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxIDLength = 128
	// MaxBulkIDs bounds a single bulk request.
	MaxBulkIDs = 500
	// MaxNoteLength bounds notes and bulk notes.
	MaxNoteLength = 10000
)

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if id == "" {
		return errors.New("conversation ID cannot be empty")
	}
	if len(id) > maxIDLength {
		return errors.New("conversation ID exceeds maximum length")
	}
	if !utf8.ValidString(id) || strings.ContainsAny(id, " \t\r\n/") {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateIDs validates the ID list of a bulk request.
func ValidateIDs(ids []string) error {
	if len(ids) == 0 {
		return errors.New("ids cannot be empty")
	}
	if len(ids) > MaxBulkIDs {
		return fmt.Errorf("at most %d ids per request", MaxBulkIDs)
	}
	for _, id := range ids {
		if err := ValidateConversationID(id); err != nil {
			return fmt.Errorf("%q: %w", id, err)
		}
	}
	return nil
}

// ValidateNote validates free-text notes.
func ValidateNote(note string) error {
	if len(note) > MaxNoteLength {
		return errors.New("note exceeds maximum length")
	}
	if !utf8.ValidString(note) {
		return errors.New("note must be valid UTF-8")
	}
	return nil
}
