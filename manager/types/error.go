package types

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError collects per-field rejection reasons for a request payload.
type ValidationError struct {
	Reasons map[string]string
}

// Append will append a new reason to the validation error structure.
func (v *ValidationError) Append(field string, reason string) {
	if v.Reasons == nil {
		v.Reasons = make(map[string]string)
	}

	v.Reasons[field] = reason
}

// Appendf will append a formatted reason to the validation error structure.
func (v *ValidationError) Appendf(field string, format string, args ...interface{}) {
	v.Append(field, fmt.Sprintf(format, args...))
}

// HasFailures will return true if the validation error contains any reasons for failure.
func (v *ValidationError) HasFailures() bool {
	return len(v.Reasons) > 0
}

func (v *ValidationError) Error() string {
	if !v.HasFailures() {
		return ""
	}

	fields := make([]string, 0, len(v.Reasons))
	for field := range v.Reasons {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, fmt.Sprintf("%s: %s", field, v.Reasons[field]))
	}

	return strings.Join(messages, ", ")
}
