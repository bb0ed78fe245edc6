package sigrecord

import (
	"errors"
	"fmt"
)

// MalformedError indicates a signature record that could not be parsed.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed signature record: %s", e.Reason)
}

// IsMalformed reports whether err indicates an unparsable record.
func IsMalformed(err error) bool {
	var m *MalformedError
	return errors.As(err, &m)
}
