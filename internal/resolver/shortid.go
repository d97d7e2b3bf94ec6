// Package resolver expands short board id prefixes typed on the command line.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
const MinShortIDLength = 6

// maxListedMatches caps how many candidates FormatAmbiguousError prints.
const maxListedMatches = 10

// Scanner finds board ids by prefix. Both persistence gateways implement it.
type Scanner interface {
	ScanBoards(ctx context.Context, prefix string) ([]string, error)
}

// ResolveBoardID resolves a short id prefix to a full board id.
// A full id (UUID or 24-character object id) must match exactly one stored board.
// Shorter input must be at least MinShortIDLength characters and match exactly one board.
func ResolveBoardID(ctx context.Context, s Scanner, shortID string) (string, error) {
	shortID = strings.TrimSpace(shortID)

	if !isFullID(shortID) && len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	matches, err := s.ScanBoards(ctx, shortID)
	if err != nil {
		return "", fmt.Errorf("failed to search for board: %w", err)
	}

	if isFullID(shortID) {
		for _, m := range matches {
			if m == shortID {
				return shortID, nil
			}
		}
		return "", &NotFoundError{ShortID: shortID}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

func isFullID(id string) bool {
	if len(id) == 36 && strings.Count(id, "-") == 4 {
		return true
	}
	if len(id) != 24 {
		return false
	}
	for _, r := range id {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

// NotFoundError indicates no boards matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no boards found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple boards matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d boards", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError lists the matching ids (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: ambiguous short ID '%s' matches %d boards:\n", err.ShortID, len(err.Matches))

	shown := err.Matches
	if len(shown) > maxListedMatches {
		shown = shown[:maxListedMatches]
	}
	for _, m := range shown {
		fmt.Fprintf(&b, "  %s\n", m)
	}
	if extra := len(err.Matches) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "  ...and %d more\n", extra)
	}

	b.WriteString("\nUse a longer prefix to uniquely identify the board.")
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	var amb *AmbiguousError
	return errors.As(err, &amb)
}
