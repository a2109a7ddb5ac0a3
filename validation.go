package courier

import (
	"fmt"
	"strconv"
)

// isValidUserID checks if a user ID is valid.
// Valid user IDs are non-empty and contain only safe characters.
// This prevents key injection and other security issues.
func isValidUserID(userID string) bool {
	if userID == "" {
		return false
	}
	// Allow alphanumeric, hyphen, underscore, period, at-sign
	// Disallow: *, :, /, \, spaces, and control characters
	for _, c := range userID {
		if c == '*' || c == ':' || c == '/' || c == '\\' ||
			c == ' ' || c == '\t' || c == '\n' || c == '\r' ||
			c < 32 || c == 127 {
			return false
		}
	}
	return true
}

// ParseMessageID parses a message id from its string form.
// Only plain non-negative decimal digits are accepted: no sign, no
// whitespace, no empty string.
func ParseMessageID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad message id %q", ErrInvalidArgument, s)
	}
	return id, nil
}

// ParseMessageIDs parses a list of message ids. The whole list is rejected
// on the first malformed entry; nothing is partially accepted.
func ParseMessageIDs(ss []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(ss))
	for _, s := range ss {
		id, err := ParseMessageID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// validateBody checks a message body against configured limits.
func validateBody(body string, maxSize int) error {
	if body == "" {
		return ErrEmptyBody
	}
	if len(body) > maxSize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrBodyTooLarge, len(body), maxSize)
	}
	return nil
}
