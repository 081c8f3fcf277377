package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Index int    // 1-based position in the listing, 0 if ID is set
	ID    string // backend id, "" if Index is set
}

var (
	// ErrTaskRefRequired indicates no task reference was provided.
	ErrTaskRefRequired = errors.New("task reference required")

	// ErrInvalidTaskRef indicates a malformed position such as "#x" or "0".
	ErrInvalidTaskRef = errors.New("invalid task reference")
)

// ParseTaskRef parses a task reference from args.
//
// Parsing rules:
// 1. No args or a blank first arg → error: task reference required
// 2. All digits, optionally prefixed with '#' (e.g., 3, #3) → position;
//    zero or a '#' without digits → error: invalid task reference
// 3. Anything else → backend id
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}

	arg := strings.TrimSpace(args[0])
	if arg == "" {
		return TaskRef{}, ErrTaskRefRequired
	}

	digits := strings.TrimPrefix(arg, "#")
	if isAllDigits(digits) {
		num, err := strconv.Atoi(digits)
		if err != nil || num < 1 {
			return TaskRef{}, fmt.Errorf("%w: %s", ErrInvalidTaskRef, arg)
		}
		return TaskRef{Index: num}, nil
	}
	if digits != arg {
		return TaskRef{}, fmt.Errorf("%w: %s", ErrInvalidTaskRef, arg)
	}

	return TaskRef{ID: arg}, nil
}

// String returns the reference as the user wrote it.
func (r TaskRef) String() string {
	if r.ID != "" {
		return r.ID
	}
	return "#" + strconv.Itoa(r.Index)
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
