package checklist

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hugh/go-inspect/internal/apperr"
)

// Metrics are the derived fields stored next to a response set.
type Metrics struct {
	TotalScore        float64
	MaxScore          float64
	SuccessPercentage *int
	CompletionRate    int
	HasCriticalIssues bool
}

func IsItemCompleted(r Response) bool {
	return r.Answer != nil && r.Answer.Completed()
}

// CompletionRate is the rounded percentage of completed items, 0 when rs is
// empty.
func CompletionRate(rs Responses) int {
	if len(rs) == 0 {
		return 0
	}
	done := 0
	for _, r := range rs {
		if IsItemCompleted(r) {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(len(rs))))
}

func HasCriticalIssues(rs Responses) bool {
	for _, r := range rs {
		if r.IsCritical && !r.IsCompliant {
			return true
		}
	}
	return false
}

// Evaluate computes every derived metric of rs.
func Evaluate(rs Responses) Metrics {
	m := Metrics{
		CompletionRate:    CompletionRate(rs),
		HasCriticalIssues: HasCriticalIssues(rs),
	}
	for _, r := range rs {
		if r.MaxScore != nil {
			m.MaxScore += *r.MaxScore
		}
		m.TotalScore += earned(r)
	}
	if m.MaxScore > 0 {
		pct := int(math.Round(100 * m.TotalScore / m.MaxScore))
		m.SuccessPercentage = &pct
	}
	return m
}

func earned(r Response) float64 {
	if r.Score != nil {
		return *r.Score
	}
	if a, ok := r.Answer.(CheckboxAnswer); ok && a.Value != nil && r.MaxScore != nil && r.IsCompliant {
		return *r.MaxScore
	}
	return 0
}

// Normalize copies checkbox values into IsCompliant. Other types keep the
// compliance the caller reported.
func Normalize(rs Responses) {
	for i := range rs {
		if a, ok := rs[i].Answer.(CheckboxAnswer); ok && a.Value != nil {
			rs[i].IsCompliant = *a.Value
		}
	}
}

// ValidateAnswers checks answers against their item definition.
func ValidateAnswers(rs Responses) error {
	fields := apperr.FieldErrors{}
	for _, r := range rs {
		if a, ok := r.Answer.(SelectAnswer); ok && a.Value != nil && len(r.SelectOptions) > 0 {
			v := strings.TrimSpace(*a.Value)
			if v != "" && !contains(r.SelectOptions, v) {
				fields[r.ItemID] = fmt.Sprintf("%q is not one of the allowed options", v)
				continue
			}
		}
		if r.Score != nil {
			switch {
			case *r.Score < 0:
				fields[r.ItemID] = "score must not be negative"
			case r.MaxScore != nil && *r.Score > *r.MaxScore:
				fields[r.ItemID] = fmt.Sprintf("score %g exceeds max score %g", *r.Score, *r.MaxScore)
			}
		}
	}
	return apperr.Fields(fields)
}

type MissingItem struct {
	ItemID   string `json:"item_id"`
	ItemText string `json:"item_text"`
}

// MissingItemsError is returned when required items are left unanswered at
// completion.
type MissingItemsError struct {
	Items []MissingItem
}

func (e *MissingItemsError) Error() string {
	texts := make([]string, len(e.Items))
	for i, it := range e.Items {
		texts[i] = it.ItemText
	}
	return fmt.Sprintf("%d required items are not answered: %s", len(e.Items), strings.Join(texts, ", "))
}

func MissingRequired(rs Responses) []MissingItem {
	var missing []MissingItem
	for _, r := range rs {
		if r.IsRequired && !IsItemCompleted(r) {
			missing = append(missing, MissingItem{ItemID: r.ItemID, ItemText: r.ItemText})
		}
	}
	return missing
}

// ValidateForCompletion gates the transition to Completed.
func ValidateForCompletion(rs Responses) error {
	if err := ValidateAnswers(rs); err != nil {
		return err
	}
	if missing := MissingRequired(rs); len(missing) > 0 {
		return apperr.AsValidation(&MissingItemsError{Items: missing})
	}
	return nil
}

// FromItems builds an unanswered response for every template item.
func FromItems(items Items) (Responses, error) {
	rs := make(Responses, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.ID == "" {
			return nil, apperr.Validation("checklist item %q has no id", it.Text)
		}
		if _, dup := seen[it.ID]; dup {
			return nil, apperr.Validation("duplicate checklist item id %q", it.ID)
		}
		seen[it.ID] = struct{}{}

		answer, err := EmptyAnswer(it.ResponseType)
		if err != nil {
			return nil, err
		}
		rs = append(rs, Response{
			ItemID:        it.ID,
			ItemText:      it.Text,
			IsRequired:    it.IsRequired,
			IsCritical:    it.IsCritical,
			SelectOptions: it.SelectOptions,
			MaxScore:      it.MaxScore,
			Answer:        answer,
			IsCompliant:   true,
		})
	}
	return rs, nil
}

// Apply replaces the answers of snapshot with submitted, matched by item id.
// Item definitions always come from snapshot. Snapshot items that are absent
// from submitted are reset to unanswered. The result is normalized.
func Apply(snapshot, submitted Responses, now time.Time) (Responses, error) {
	byID := make(map[string]Response, len(submitted))
	for _, s := range submitted {
		if _, dup := byID[s.ItemID]; dup {
			return nil, apperr.Validation("checklist item %q submitted more than once", s.ItemID)
		}
		byID[s.ItemID] = s
	}

	out := make(Responses, len(snapshot))
	for i, def := range snapshot {
		blank, err := EmptyAnswer(def.Type())
		if err != nil {
			return nil, err
		}
		r := def
		r.Answer = blank
		r.IsCompliant = true
		r.Score = nil
		r.Notes = ""
		r.ResponseDate = nil

		if s, ok := byID[def.ItemID]; ok {
			delete(byID, def.ItemID)
			if s.Answer != nil {
				if s.Type() != def.Type() {
					return nil, apperr.Validation("checklist item %q expects a %s answer, got %s", def.ItemID, def.Type(), s.Type())
				}
				r.Answer = s.Answer
			}
			r.IsCompliant = s.IsCompliant
			r.Score = s.Score
			r.Notes = s.Notes
			r.ResponseDate = s.ResponseDate
			if r.ResponseDate == nil && IsItemCompleted(r) {
				at := now.UTC()
				r.ResponseDate = &at
			}
		}
		out[i] = r
	}

	for id := range byID {
		return nil, apperr.Validation("unknown checklist item %q", id)
	}

	Normalize(out)
	if err := ValidateAnswers(out); err != nil {
		return nil, err
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
