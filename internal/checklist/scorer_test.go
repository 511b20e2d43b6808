package checklist

import (
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugh/go-inspect/internal/apperr"
)

func TestIsItemCompleted(t *testing.T) {
	tests := []struct {
		name   string
		answer Answer
		want   bool
	}{
		{"nil answer", nil, false},
		{"checkbox unanswered", CheckboxAnswer{}, false},
		{"checkbox false", CheckboxAnswer{Value: ptr(false)}, true},
		{"checkbox true", CheckboxAnswer{Value: ptr(true)}, true},
		{"text blank", TextAnswer{Value: ptr("   ")}, false},
		{"text", TextAnswer{Value: ptr("fine")}, true},
		{"number zero", NumberAnswer{Value: ptr(0.0)}, true},
		{"number unanswered", NumberAnswer{}, false},
		{"select blank", SelectAnswer{Value: ptr("")}, false},
		{"select", SelectAnswer{Value: ptr("ok")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsItemCompleted(Response{Answer: tt.answer}))
		})
	}
}

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, 0, CompletionRate(nil))

	rs := Responses{
		{Answer: CheckboxAnswer{Value: ptr(true)}},
		{Answer: TextAnswer{}},
		{Answer: NumberAnswer{Value: ptr(1.0)}},
	}
	assert.Equal(t, 67, CompletionRate(rs))

	for i := range rs {
		rs[i].Answer = CheckboxAnswer{Value: ptr(true)}
	}
	assert.Equal(t, 100, CompletionRate(rs))
}

func TestHasCriticalIssues(t *testing.T) {
	assert.False(t, HasCriticalIssues(nil))
	assert.False(t, HasCriticalIssues(Responses{{IsCritical: true, IsCompliant: true}, {IsCompliant: false}}))
	assert.True(t, HasCriticalIssues(Responses{{IsCritical: true, IsCompliant: false}}))
}

func TestEvaluate(t *testing.T) {
	t.Run("no scored items", func(t *testing.T) {
		m := Evaluate(Responses{{Answer: TextAnswer{Value: ptr("x")}, IsCompliant: true}})
		assert.Nil(t, m.SuccessPercentage)
		assert.Zero(t, m.MaxScore)
		assert.Equal(t, 100, m.CompletionRate)
	})

	t.Run("mixed scores", func(t *testing.T) {
		rs := Responses{
			{MaxScore: ptr(4.0), Answer: CheckboxAnswer{Value: ptr(true)}, IsCompliant: true},
			{MaxScore: ptr(4.0), Answer: CheckboxAnswer{Value: ptr(false)}, IsCompliant: false, IsCritical: true},
			{MaxScore: ptr(2.0), Answer: NumberAnswer{Value: ptr(9.0)}, Score: ptr(1.0), IsCompliant: true},
			{Answer: TextAnswer{}},
		}
		m := Evaluate(rs)
		assert.Equal(t, 10.0, m.MaxScore)
		assert.Equal(t, 5.0, m.TotalScore)
		require.NotNil(t, m.SuccessPercentage)
		assert.Equal(t, 50, *m.SuccessPercentage)
		assert.Equal(t, 75, m.CompletionRate)
		assert.True(t, m.HasCriticalIssues)
	})
}

func TestNormalize(t *testing.T) {
	rs := Responses{
		{Answer: CheckboxAnswer{Value: ptr(false)}, IsCompliant: true},
		{Answer: CheckboxAnswer{}, IsCompliant: true},
		{Answer: TextAnswer{Value: ptr("x")}, IsCompliant: false},
	}
	Normalize(rs)
	assert.False(t, rs[0].IsCompliant)
	assert.True(t, rs[1].IsCompliant)
	assert.False(t, rs[2].IsCompliant)
}

func TestValidateAnswers(t *testing.T) {
	assert.NoError(t, ValidateAnswers(Responses{
		{ItemID: "s", SelectOptions: []string{"a", "b"}, Answer: SelectAnswer{Value: ptr("b")}},
		{ItemID: "free", Answer: SelectAnswer{Value: ptr("anything")}},
	}))

	err := ValidateAnswers(Responses{
		{ItemID: "s", SelectOptions: []string{"a", "b"}, Answer: SelectAnswer{Value: ptr("c")}},
		{ItemID: "n", MaxScore: ptr(2.0), Score: ptr(3.0), Answer: NumberAnswer{}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	fields := apperr.FieldsOf(err)
	assert.Contains(t, fields, "s")
	assert.Contains(t, fields, "n")
}

func TestValidateForCompletion_ReportsEveryMissingItem(t *testing.T) {
	var rs Responses
	for i := 0; i < 10; i++ {
		rs = append(rs, Response{
			ItemID:      fmt.Sprintf("item-%d", i),
			ItemText:    fmt.Sprintf("Item %d", i),
			IsRequired:  true,
			Answer:      CheckboxAnswer{Value: ptr(true)},
			IsCompliant: true,
		})
	}
	rs[3].Answer = CheckboxAnswer{}
	rs[7].Answer = CheckboxAnswer{}

	err := ValidateForCompletion(rs)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	var missing *MissingItemsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []MissingItem{
		{ItemID: "item-3", ItemText: "Item 3"},
		{ItemID: "item-7", ItemText: "Item 7"},
	}, missing.Items)

	rs[3].Answer = CheckboxAnswer{Value: ptr(false)}
	rs[7].Answer = CheckboxAnswer{Value: ptr(true)}
	assert.NoError(t, ValidateForCompletion(rs))
}

func TestFromItems(t *testing.T) {
	rs, err := FromItems(Items{
		{ID: "1", Text: "Belts", IsRequired: true, ResponseType: ResponseCheckbox},
		{ID: "2", Text: "Level", ResponseType: ResponseSelect, SelectOptions: []string{"ok"}},
	})
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, CheckboxAnswer{}, rs[0].Answer)
	assert.Equal(t, SelectAnswer{}, rs[1].Answer)
	assert.True(t, rs[0].IsCompliant)
	assert.False(t, HasCriticalIssues(rs))
	assert.Equal(t, 0, CompletionRate(rs))

	_, err = FromItems(Items{{ID: "1", ResponseType: "photo"}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = FromItems(Items{{ID: "1", ResponseType: ResponseText}, {ID: "1", ResponseType: ResponseText}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestApply(t *testing.T) {
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	snapshot, err := FromItems(Items{
		{ID: "1", Text: "Belts", IsRequired: true, IsCritical: true, ResponseType: ResponseCheckbox, MaxScore: ptr(2.0)},
		{ID: "2", Text: "Comment", ResponseType: ResponseText},
		{ID: "3", Text: "Level", ResponseType: ResponseSelect, SelectOptions: []string{"low", "ok"}},
	})
	require.NoError(t, err)

	t.Run("merges by id and keeps definitions", func(t *testing.T) {
		out, err := Apply(snapshot, Responses{
			{ItemID: "3", ItemText: "changed", Answer: SelectAnswer{Value: ptr("ok")}, IsCompliant: true},
			{ItemID: "1", Answer: CheckboxAnswer{Value: ptr(false)}, IsCompliant: true},
		}, now)
		require.NoError(t, err)
		require.Len(t, out, 3)

		assert.Equal(t, "Belts", out[0].ItemText)
		assert.False(t, out[0].IsCompliant)
		require.NotNil(t, out[0].ResponseDate)
		assert.Equal(t, now, *out[0].ResponseDate)
		assert.Equal(t, TextAnswer{}, out[1].Answer)
		assert.Equal(t, "Level", out[2].ItemText)
		assert.True(t, HasCriticalIssues(out))
	})

	t.Run("absent items are reset", func(t *testing.T) {
		first, err := Apply(snapshot, Responses{{ItemID: "2", Answer: TextAnswer{Value: ptr("x")}, IsCompliant: true}}, now)
		require.NoError(t, err)
		second, err := Apply(first, Responses{{ItemID: "1", Answer: CheckboxAnswer{Value: ptr(true)}}}, now)
		require.NoError(t, err)
		assert.Equal(t, TextAnswer{}, second[1].Answer)
		assert.Nil(t, second[1].ResponseDate)
	})

	t.Run("rejects bad payloads", func(t *testing.T) {
		cases := map[string]Responses{
			"unknown item":   {{ItemID: "99", Answer: TextAnswer{}}},
			"type mismatch":  {{ItemID: "1", Answer: TextAnswer{Value: ptr("yes")}}},
			"duplicate item": {{ItemID: "2", Answer: TextAnswer{}}, {ItemID: "2", Answer: TextAnswer{}}},
			"invalid option": {{ItemID: "3", Answer: SelectAnswer{Value: ptr("high")}}},
		}
		for name, submitted := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := Apply(snapshot, submitted, now)
				assert.True(t, errors.Is(err, apperr.ErrValidation))
			})
		}
	})
}
