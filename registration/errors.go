package registration

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ruteri/healthcare-entity-registry/interfaces"
)

// Workflow steps reported in StepError.
const (
	StepRoleLookup  = "role lookup"
	StepUpload      = "upload"
	StepTransaction = "transaction"
	StepPersistence = "persistence"
)

// ValidationError lists request fields that are missing or malformed.
// Fields maps the JSON field name to the failed validation tag.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	for _, tag := range e.Fields {
		if tag == "required" {
			return "All fields are required"
		}
	}
	return "Invalid " + strings.Join(e.FieldNames(), ", ")
}

// FieldNames returns the offending field names in sorted order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AlreadyRegisteredError is returned when the address already holds a role on chain.
type AlreadyRegisteredError struct {
	Role interfaces.Role
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("This address is already registered as %s.", e.Role)
}

// StepError wraps a failure of an upstream dependency. Steps completed before
// the failure are not rolled back; ContentHash and TxHash carry what was
// already committed so the operator can finish the registration by hand.
type StepError struct {
	Step        string
	ContentHash interfaces.ContentHash
	TxHash      string
	Err         error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Step, e.Err)
	if e.TxHash != "" {
		msg += fmt.Sprintf(" (content %s, transaction %s)", e.ContentHash, e.TxHash)
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}
