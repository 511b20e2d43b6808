// Package checklist models checklist items and their typed answers, and
// derives the scoring metrics an inspection execution reports.
package checklist

import (
	"strings"

	"github.com/hugh/go-inspect/internal/apperr"
)

type ResponseType string

const (
	ResponseCheckbox ResponseType = "checkbox"
	ResponseText     ResponseType = "text"
	ResponseNumber   ResponseType = "number"
	ResponseSelect   ResponseType = "select"
)

func (t ResponseType) Valid() bool {
	switch t {
	case ResponseCheckbox, ResponseText, ResponseNumber, ResponseSelect:
		return true
	}
	return false
}

// Answer is the value half of a response. The set of variants is closed:
// CheckboxAnswer, TextAnswer, NumberAnswer and SelectAnswer. A nil Value means
// the item has not been answered.
type Answer interface {
	Type() ResponseType
	// Completed reports whether the answer counts towards completion.
	Completed() bool
	sealed()
}

type CheckboxAnswer struct {
	Value *bool
}

type TextAnswer struct {
	Value *string
}

type NumberAnswer struct {
	Value *float64
}

type SelectAnswer struct {
	Value *string
}

func (CheckboxAnswer) Type() ResponseType { return ResponseCheckbox }
func (TextAnswer) Type() ResponseType     { return ResponseText }
func (NumberAnswer) Type() ResponseType   { return ResponseNumber }
func (SelectAnswer) Type() ResponseType   { return ResponseSelect }

// True and false both count as answered.
func (a CheckboxAnswer) Completed() bool { return a.Value != nil }
func (a TextAnswer) Completed() bool     { return a.Value != nil && strings.TrimSpace(*a.Value) != "" }
func (a NumberAnswer) Completed() bool   { return a.Value != nil }
func (a SelectAnswer) Completed() bool   { return a.Value != nil && strings.TrimSpace(*a.Value) != "" }

func (CheckboxAnswer) sealed() {}
func (TextAnswer) sealed()     {}
func (NumberAnswer) sealed()   {}
func (SelectAnswer) sealed()   {}

// EmptyAnswer returns the unanswered variant for t.
func EmptyAnswer(t ResponseType) (Answer, error) {
	switch t {
	case ResponseCheckbox:
		return CheckboxAnswer{}, nil
	case ResponseText:
		return TextAnswer{}, nil
	case ResponseNumber:
		return NumberAnswer{}, nil
	case ResponseSelect:
		return SelectAnswer{}, nil
	}
	return nil, apperr.Validation("unknown response type %q", t)
}
