package checklist

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Item is one checklist entry of a form template.
type Item struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	IsRequired    bool         `json:"is_required"`
	IsCritical    bool         `json:"is_critical"`
	ResponseType  ResponseType `json:"response_type"`
	SelectOptions []string     `json:"select_options,omitempty"`
	MaxScore      *float64     `json:"max_score,omitempty"`
}

// Items is stored as a JSON blob on the template row.
type Items []Item

// Scan implements the sql.Scanner interface for reading from database
func (i *Items) Scan(value interface{}) error {
	return scanJSON(value, i, "Items")
}

// Value implements the driver.Valuer interface for writing to database
func (i Items) Value() (driver.Value, error) {
	if i == nil {
		return "[]", nil
	}
	b, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Response is one answered (or pending) checklist item of an execution. The
// item fields are a copy of the template item taken at creation time.
type Response struct {
	ItemID        string
	ItemText      string
	IsRequired    bool
	IsCritical    bool
	SelectOptions []string
	MaxScore      *float64

	Answer       Answer
	IsCompliant  bool
	Score        *float64
	Notes        string
	ResponseDate *time.Time
}

// Type is the response type selected by the answer variant.
func (r Response) Type() ResponseType {
	if r.Answer == nil {
		return ""
	}
	return r.Answer.Type()
}

// wireResponse is the stored and transmitted shape. Only the value field that
// matches response_type may be set.
type wireResponse struct {
	ItemID        string       `json:"item_id"`
	ItemText      string       `json:"item_text"`
	IsRequired    bool         `json:"is_required"`
	IsCritical    bool         `json:"is_critical"`
	ResponseType  ResponseType `json:"response_type"`
	SelectOptions []string     `json:"select_options,omitempty"`
	MaxScore      *float64     `json:"max_score,omitempty"`
	BooleanValue  *bool        `json:"boolean_value,omitempty"`
	TextValue     *string      `json:"text_value,omitempty"`
	NumberValue   *float64     `json:"number_value,omitempty"`
	SelectValue   *string      `json:"select_value,omitempty"`
	IsCompliant   bool         `json:"is_compliant"`
	Score         *float64     `json:"score,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	ResponseDate  *time.Time   `json:"response_date,omitempty"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	w := wireResponse{
		ItemID:        r.ItemID,
		ItemText:      r.ItemText,
		IsRequired:    r.IsRequired,
		IsCritical:    r.IsCritical,
		SelectOptions: r.SelectOptions,
		MaxScore:      r.MaxScore,
		IsCompliant:   r.IsCompliant,
		Score:         r.Score,
		Notes:         r.Notes,
		ResponseDate:  r.ResponseDate,
	}

	switch a := r.Answer.(type) {
	case CheckboxAnswer:
		w.ResponseType, w.BooleanValue = ResponseCheckbox, a.Value
	case TextAnswer:
		w.ResponseType, w.TextValue = ResponseText, a.Value
	case NumberAnswer:
		w.ResponseType, w.NumberValue = ResponseNumber, a.Value
	case SelectAnswer:
		w.ResponseType, w.SelectValue = ResponseSelect, a.Value
	default:
		return nil, fmt.Errorf("checklist item %q has no response type", r.ItemID)
	}

	return json.Marshal(w)
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	stray := func(field string, set bool) error {
		if set {
			return fmt.Errorf("checklist item %q: %s is not valid for a %s item", w.ItemID, field, w.ResponseType)
		}
		return nil
	}

	var answer Answer
	var err error
	switch w.ResponseType {
	case ResponseCheckbox:
		answer = CheckboxAnswer{Value: w.BooleanValue}
		err = firstErr(stray("text_value", w.TextValue != nil), stray("number_value", w.NumberValue != nil), stray("select_value", w.SelectValue != nil))
	case ResponseText:
		answer = TextAnswer{Value: w.TextValue}
		err = firstErr(stray("boolean_value", w.BooleanValue != nil), stray("number_value", w.NumberValue != nil), stray("select_value", w.SelectValue != nil))
	case ResponseNumber:
		answer = NumberAnswer{Value: w.NumberValue}
		err = firstErr(stray("boolean_value", w.BooleanValue != nil), stray("text_value", w.TextValue != nil), stray("select_value", w.SelectValue != nil))
	case ResponseSelect:
		answer = SelectAnswer{Value: w.SelectValue}
		err = firstErr(stray("boolean_value", w.BooleanValue != nil), stray("text_value", w.TextValue != nil), stray("number_value", w.NumberValue != nil))
	default:
		return fmt.Errorf("checklist item %q: unknown response type %q", w.ItemID, w.ResponseType)
	}
	if err != nil {
		return err
	}

	*r = Response{
		ItemID:        w.ItemID,
		ItemText:      w.ItemText,
		IsRequired:    w.IsRequired,
		IsCritical:    w.IsCritical,
		SelectOptions: w.SelectOptions,
		MaxScore:      w.MaxScore,
		Answer:        answer,
		IsCompliant:   w.IsCompliant,
		Score:         w.Score,
		Notes:         w.Notes,
		ResponseDate:  w.ResponseDate,
	}
	return nil
}

// Responses is stored as an ordered JSON blob on the execution row.
type Responses []Response

// Scan implements the sql.Scanner interface for reading from database
func (rs *Responses) Scan(value interface{}) error {
	return scanJSON(value, rs, "Responses")
}

// Value implements the driver.Valuer interface for writing to database
func (rs Responses) Value() (driver.Value, error) {
	if rs == nil {
		return "[]", nil
	}
	b, err := json.Marshal(rs)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(value interface{}, dst interface{}, name string) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("%s: expected []byte or string, got %T", name, value)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
