// Package swap implements the two-step scan protocol that replaces or
// places a pouch in a kit slot.
package swap

import (
	"fmt"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// Code classifies an Outcome.
type Code string

// Outcome codes. Compatibility and format codes come from Validate; the
// rest from the session.
const (
	CodeOK              Code = "OK"
	CodeBadFormat       Code = "BAD_FORMAT"
	CodeSelfReplacement Code = "SELF_REPLACEMENT"
	CodeContentMismatch Code = "CONTENT_MISMATCH"
	CodeColorMismatch   Code = "COLOR_MISMATCH"
	CodeWrongModule     Code = "WRONG_MODULE"
	CodeNotRegistered   Code = "NOT_REGISTERED"
	CodeAlreadyAssigned Code = "ALREADY_ASSIGNED"
	CodeNotAvailable    Code = "NOT_AVAILABLE"
	CodeNoSession       Code = "NO_SESSION"
	CodeInvalidEvent    Code = "INVALID_EVENT"
	CodeNothingToDo     Code = "NOTHING_TO_REPLACE"
	CodeNotNext         Code = "NOT_NEXT"
	CodeTransport       Code = "TRANSPORT"
)

// Outcome is the structured result of a validation or protocol step.
// Failures carry a sentinel from pkg/types in Err.
type Outcome struct {
	Success bool   `json:"success"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
	// Placement is set on success when the target slot was empty.
	Placement bool  `json:"placement,omitempty"`
	Err       error `json:"-"`
}

func ok(msg string) Outcome {
	return Outcome{Success: true, Code: CodeOK, Message: msg}
}

func fail(code Code, err error, format string, args ...any) Outcome {
	return Outcome{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validate checks that the scanned identifier may take the place of old.
// Checks run in order and the first failure wins: format, self
// replacement, content family, color family.
func Validate(old types.SlotRef, scanned string) Outcome {
	id := types.NormalizeScan(scanned)
	if !types.ValidIdentifier(id) {
		return fail(CodeBadFormat, types.ErrFormat,
			"invalid identifier: need 8 digits, got %q", scanned)
	}
	if !old.IsEmpty() && old.Tag() == id {
		return fail(CodeSelfReplacement, types.ErrSelfReplacement,
			"cannot replace pouch %s with itself", types.Format(id))
	}

	p := types.Decode(id)
	if p.Content != old.Content() {
		return fail(CodeContentMismatch, types.ErrContentMismatch,
			"content code mismatch: expected %s, scanned %s", old.Content(), p.Content)
	}
	if p.Color != old.Color() {
		return fail(CodeColorMismatch, types.ErrColorMismatch,
			"wrong color: expected type %s, scanned %s", old.Color(), p.Color)
	}

	if old.IsEmpty() {
		out := ok(fmt.Sprintf("pouch %s placed in empty slot", types.Format(id)))
		out.Placement = true
		return out
	}
	return ok(fmt.Sprintf("pouch %s replaced by %s", types.Format(old.Tag()), types.Format(id)))
}

// ValidateIDs is Validate over the string form of the old identifier,
// which may be a placeholder.
func ValidateIDs(old, scanned string) Outcome {
	return Validate(types.ParseSlotRef(old), scanned)
}
