package dto

import (
	"fmt"
	"time"

	"github.com/hugh/go-inspect/internal/checklist"
)

// ResponseInput is one submitted checklist answer. Item definitions come from
// the execution snapshot, so only the item id and the answer half are read.
// At most one value field may be set; it must match the item's type.
type ResponseInput struct {
	ItemID       string     `json:"item_id"`
	BooleanValue *bool      `json:"boolean_value,omitempty"`
	TextValue    *string    `json:"text_value,omitempty"`
	NumberValue  *float64   `json:"number_value,omitempty"`
	SelectValue  *string    `json:"select_value,omitempty"`
	IsCompliant  *bool      `json:"is_compliant,omitempty"` // defaults to true
	Score        *float64   `json:"score,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	ResponseDate *time.Time `json:"response_date,omitempty"`
}

func (in ResponseInput) toResponse() (checklist.Response, error) {
	var answers []checklist.Answer
	if in.BooleanValue != nil {
		answers = append(answers, checklist.CheckboxAnswer{Value: in.BooleanValue})
	}
	if in.TextValue != nil {
		answers = append(answers, checklist.TextAnswer{Value: in.TextValue})
	}
	if in.NumberValue != nil {
		answers = append(answers, checklist.NumberAnswer{Value: in.NumberValue})
	}
	if in.SelectValue != nil {
		answers = append(answers, checklist.SelectAnswer{Value: in.SelectValue})
	}
	if len(answers) > 1 {
		return checklist.Response{}, fmt.Errorf("only one value may be set")
	}

	r := checklist.Response{
		ItemID:       in.ItemID,
		IsCompliant:  true,
		Score:        in.Score,
		Notes:        in.Notes,
		ResponseDate: in.ResponseDate,
	}
	if len(answers) == 1 {
		r.Answer = answers[0]
	}
	if in.IsCompliant != nil {
		r.IsCompliant = *in.IsCompliant
	}
	return r, nil
}

// ToResponses converts submitted answers. A nil slice stays nil so callers
// can tell "not sent" from "cleared". Per item problems are keyed by item id.
func ToResponses(in []ResponseInput) (checklist.Responses, map[string]string) {
	if in == nil {
		return nil, nil
	}

	out := make(checklist.Responses, 0, len(in))
	errors := make(map[string]string)
	for i, item := range in {
		if item.ItemID == "" {
			errors[fmt.Sprintf("checklist_responses[%d]", i)] = "Item ID is required"
			continue
		}
		r, err := item.toResponse()
		if err != nil {
			errors[item.ItemID] = err.Error()
			continue
		}
		out = append(out, r)
	}
	if len(errors) > 0 {
		return nil, errors
	}
	return out, nil
}
