package filter_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/renovation-api/internal/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priority string

type job struct {
	ID        uuid.UUID
	Title     string
	Customer  *string
	Priority  priority
	Value     float64
	Budget    string
	DueDate   *time.Time
	Converted bool
}

func strPtr(s string) *string { return &s }

func datePtr(y int, m time.Month, d, h int) *time.Time {
	t := time.Date(y, m, d, h, 0, 0, 0, time.UTC)
	return &t
}

var jobFields = filter.Fields[job]{
	"id":        func(j job) any { return j.ID },
	"title":     func(j job) any { return j.Title },
	"customer":  func(j job) any { return j.Customer },
	"priority":  func(j job) any { return j.Priority },
	"value":     func(j job) any { return j.Value },
	"budget":    func(j job) any { return j.Budget },
	"dueDate":   func(j job) any { return j.DueDate },
	"converted": func(j job) any { return j.Converted },
}

var jobSearchable = []string{"title", "customer"}

func fixtures() []job {
	return []job{
		{ID: uuid.New(), Title: "Kitchen remodel", Customer: strPtr("Nordmann"), Priority: "low", Value: 1000, Budget: "1000", DueDate: datePtr(2024, 3, 1, 9)},
		{ID: uuid.New(), Title: "Bathroom tiles", Customer: strPtr("Hansen"), Priority: "medium", Value: 5000, Budget: "5000", DueDate: datePtr(2024, 3, 15, 23)},
		{ID: uuid.New(), Title: "Roof repair", Customer: nil, Priority: "high", Value: 20000, Budget: "n/a", DueDate: nil},
		{ID: uuid.New(), Title: "KITCHEN island", Customer: strPtr("Berg"), Priority: "urgent", Value: 7500, Budget: "7500", DueDate: datePtr(2024, 4, 2, 12), Converted: true},
	}
}

func titles(items []job) []string {
	out := make([]string, len(items))
	for i, j := range items {
		out[i] = j.Title
	}
	return out
}

func TestApply_NoSearchNoFilters(t *testing.T) {
	items := fixtures()
	result := filter.Apply(items, "", nil, jobFields, jobSearchable)
	assert.Equal(t, items, result)
}

func TestApply_Search(t *testing.T) {
	items := fixtures()

	t.Run("case insensitive substring", func(t *testing.T) {
		result := filter.Apply(items, "kitchen", nil, jobFields, jobSearchable)
		assert.Equal(t, []string{"Kitchen remodel", "KITCHEN island"}, titles(result))

		upper := filter.Apply(items, "KITCHEN", nil, jobFields, jobSearchable)
		assert.Equal(t, titles(result), titles(upper))
	})

	t.Run("matches any searchable field", func(t *testing.T) {
		result := filter.Apply(items, "hansen", nil, jobFields, jobSearchable)
		assert.Equal(t, []string{"Bathroom tiles"}, titles(result))
	})

	t.Run("whitespace is part of the term", func(t *testing.T) {
		result := filter.Apply(items, "kitchen i", nil, jobFields, jobSearchable)
		assert.Equal(t, []string{"KITCHEN island"}, titles(result))

		assert.Empty(t, filter.Apply(items, "   ", nil, jobFields, jobSearchable))
	})

	t.Run("absent values never match", func(t *testing.T) {
		result := filter.Apply(items, "roof", nil, jobFields, []string{"customer"})
		assert.Empty(t, result)
	})

	t.Run("non searchable fields are ignored", func(t *testing.T) {
		result := filter.Apply(items, "urgent", nil, jobFields, jobSearchable)
		assert.Empty(t, result)
	})
}

func TestApply_PriorityScenario(t *testing.T) {
	items := fixtures()

	active, err := filter.ParseFilters(map[string]any{
		"priority": []any{"high", "urgent"},
	})
	require.NoError(t, err)

	result := filter.Apply(items, "", active, jobFields, jobSearchable)
	assert.Equal(t, []string{"Roof repair", "KITCHEN island"}, titles(result))
}

func TestApply_Equals(t *testing.T) {
	items := fixtures()

	result := filter.Apply(items, "", filter.Filters{"priority": filter.Equals{Value: "medium"}}, jobFields, nil)
	assert.Equal(t, []string{"Bathroom tiles"}, titles(result))

	t.Run("uuid compares by string", func(t *testing.T) {
		result := filter.Apply(items, "", filter.Filters{"id": filter.Equals{Value: items[2].ID.String()}}, jobFields, nil)
		assert.Equal(t, []string{"Roof repair"}, titles(result))
	})

	t.Run("numbers compare numerically", func(t *testing.T) {
		result := filter.Apply(items, "", filter.Filters{"value": filter.Equals{Value: 5000}}, jobFields, nil)
		assert.Equal(t, []string{"Bathroom tiles"}, titles(result))
	})
}

func TestApply_NumberRange(t *testing.T) {
	items := fixtures()
	lo, hi := 1000.0, 7500.0

	t.Run("inclusive bounds", func(t *testing.T) {
		result := filter.Apply(items, "", filter.Filters{"value": filter.NumberRange{Min: &lo, Max: &hi}}, jobFields, nil)
		assert.Equal(t, []string{"Kitchen remodel", "Bathroom tiles", "KITCHEN island"}, titles(result))
	})

	t.Run("open upper bound", func(t *testing.T) {
		min := 6000.0
		result := filter.Apply(items, "", filter.Filters{"value": filter.NumberRange{Min: &min}}, jobFields, nil)
		assert.Equal(t, []string{"Roof repair", "KITCHEN island"}, titles(result))
	})

	t.Run("string values are coerced", func(t *testing.T) {
		result := filter.Apply(items, "", filter.Filters{"budget": filter.NumberRange{Min: &lo, Max: &hi}}, jobFields, nil)
		assert.Equal(t, []string{"Kitchen remodel", "Bathroom tiles", "KITCHEN island"}, titles(result))
	})
}

func TestApply_DateRange(t *testing.T) {
	items := fixtures()

	active, err := filter.ParseFilters(map[string]any{
		"dueDate": map[string]any{"start": "2024-03-01", "end": "2024-03-15"},
	})
	require.NoError(t, err)

	// the 23:00 item on the end date is still inside a date-only end bound
	result := filter.Apply(items, "", active, jobFields, nil)
	assert.Equal(t, []string{"Kitchen remodel", "Bathroom tiles"}, titles(result))

	t.Run("open start", func(t *testing.T) {
		active, err := filter.ParseFilters(map[string]any{
			"dueDate": map[string]any{"start": nil, "end": "2024-03-10"},
		})
		require.NoError(t, err)

		result := filter.Apply(items, "", active, jobFields, nil)
		assert.Equal(t, []string{"Kitchen remodel"}, titles(result))
	})

	t.Run("timestamp end is exact", func(t *testing.T) {
		active, err := filter.ParseFilters(map[string]any{
			"dueDate": map[string]any{"end": "2024-03-15T12:00:00Z"},
		})
		require.NoError(t, err)

		result := filter.Apply(items, "", active, jobFields, nil)
		assert.Equal(t, []string{"Kitchen remodel"}, titles(result))
	})
}

func TestApply_Flag(t *testing.T) {
	items := fixtures()
	yes := true

	result := filter.Apply(items, "", filter.Filters{"converted": filter.Flag{Value: &yes}}, jobFields, nil)
	assert.Equal(t, []string{"KITCHEN island"}, titles(result))

	t.Run("null means no constraint", func(t *testing.T) {
		result := filter.Apply(items, "", filter.Filters{"converted": filter.Flag{}}, jobFields, nil)
		assert.Len(t, result, len(items))
	})
}

func TestApply_UnknownFieldNeverMatches(t *testing.T) {
	items := fixtures()
	result := filter.Apply(items, "", filter.Filters{"colour": filter.Equals{Value: "red"}}, jobFields, nil)
	assert.Empty(t, result)
}

func TestApply_Properties(t *testing.T) {
	items := fixtures()
	lo := 1000.0
	active := filter.Filters{
		"priority": filter.OneOf{Values: []any{"low", "medium", "urgent"}},
		"value":    filter.NumberRange{Min: &lo},
	}

	t.Run("idempotent", func(t *testing.T) {
		once := filter.Apply(items, "i", active, jobFields, jobSearchable)
		twice := filter.Apply(once, "i", active, jobFields, jobSearchable)
		assert.Equal(t, once, twice)
	})

	t.Run("adding a filter never grows the result", func(t *testing.T) {
		base := filter.Apply(items, "", active, jobFields, jobSearchable)

		narrowed := filter.Filters{"title": filter.Equals{Value: "Bathroom tiles"}}
		for k, v := range active {
			narrowed[k] = v
		}
		more := filter.Apply(items, "", narrowed, jobFields, jobSearchable)
		assert.LessOrEqual(t, len(more), len(base))
		for _, j := range more {
			assert.Contains(t, base, j)
		}
	})

	t.Run("stable order", func(t *testing.T) {
		result := filter.Apply(items, "", active, jobFields, jobSearchable)
		assert.Equal(t, []string{"Kitchen remodel", "Bathroom tiles", "KITCHEN island"}, titles(result))
	})
}

func TestParseFilters(t *testing.T) {
	t.Run("inactive values are dropped", func(t *testing.T) {
		active, err := filter.ParseFilters(map[string]any{
			"a": nil,
			"b": "",
			"c": []any{},
			"d": map[string]any{"min": nil, "max": ""},
			"e": map[string]any{"start": "", "end": nil},
			"f": map[string]any{},
		})
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	t.Run("typed predicates", func(t *testing.T) {
		active, err := filter.ParseFilters(map[string]any{
			"stage":    "won",
			"priority": []string{"high"},
			"value":    map[string]any{"min": "100", "max": 200},
			"archived": false,
		})
		require.NoError(t, err)
		require.Len(t, active, 4)

		assert.Equal(t, filter.Equals{Value: "won"}, active["stage"])
		assert.Equal(t, filter.OneOf{Values: []any{"high"}}, active["priority"])

		rng, ok := active["value"].(filter.NumberRange)
		require.True(t, ok)
		assert.Equal(t, 100.0, *rng.Min)
		assert.Equal(t, 200.0, *rng.Max)

		flag, ok := active["archived"].(filter.Flag)
		require.True(t, ok)
		assert.False(t, *flag.Value)
	})

	t.Run("invalid number", func(t *testing.T) {
		_, err := filter.ParseFilters(map[string]any{"value": map[string]any{"min": "lots"}})
		assert.Error(t, err)
	})

	t.Run("invalid date", func(t *testing.T) {
		_, err := filter.ParseFilters(map[string]any{"due": map[string]any{"start": "yesterday-ish"}})
		assert.Error(t, err)
	})

	t.Run("unsupported object", func(t *testing.T) {
		_, err := filter.ParseFilters(map[string]any{"due": map[string]any{"from": 1}})
		assert.Error(t, err)
	})
}

func TestParseQuery(t *testing.T) {
	active, err := filter.ParseQuery(`{"priority":["high","urgent"],"stage":""}`)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	cleared, err := filter.ParseQuery(`{"value":{},"due":{"start":null,"end":null}}`)
	require.NoError(t, err)
	assert.Empty(t, cleared)

	empty, err := filter.ParseQuery("  ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = filter.ParseQuery("{not json")
	assert.Error(t, err)
}
