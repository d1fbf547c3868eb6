package schedule_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-rota/internal/schedule"
)

// ignoreRaw keeps diffs focused on the canonical fields.
var ignoreRaw = cmpopts.IgnoreFields(schedule.Normalized{}, "Raw")

func TestNormalize_FlatObject(t *testing.T) {
	got := schedule.Normalize(map[string]any{"mon": "9-5", "tue": "OFF"})

	want := schedule.Normalized{
		OK: true,
		Days: []schedule.Day{
			{Name: "mon", Shift: "9-5", Hours: 8},
			{Name: "tue", Shift: "OFF", Hours: 0},
		},
		Total: 8,
	}
	if diff := cmp.Diff(want, got, ignoreRaw); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_ShapePriority(t *testing.T) {
	tests := []struct {
		name     string
		payload  map[string]any
		wantDays []string
	}{
		{
			name: "days wins over everything",
			payload: map[string]any{
				"days":     []any{map[string]any{"name": "Mon", "shift": "9-5"}},
				"schedule": []any{map[string]any{"name": "Tue", "shift": "9-5"}},
				"wed":      "9-5",
			},
			wantDays: []string{"Mon"},
		},
		{
			name: "nested week.days",
			payload: map[string]any{
				"week": map[string]any{"days": []any{map[string]any{"day": "Lun", "shift": "8-4"}}},
				"rows": []any{map[string]any{"name": "Tue", "shift": "9-5"}},
			},
			wantDays: []string{"Lun"},
		},
		{
			name: "schedule before rows",
			payload: map[string]any{
				"schedule": []any{map[string]any{"name": "Wed", "shift": "9-5"}},
				"rows":     []any{map[string]any{"name": "Thu", "shift": "9-5"}},
			},
			wantDays: []string{"Wed"},
		},
		{
			name:     "rows",
			payload:  map[string]any{"rows": []any{map[string]any{"name": "Fri", "shift": "9-5"}}},
			wantDays: []string{"Fri"},
		},
		{
			name:     "flat keys keep the listed order and case variants",
			payload:  map[string]any{"Sun": "OFF", "wed": "9-5", "mon": "9-5"},
			wantDays: []string{"mon", "wed", "Sun"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := schedule.Normalize(tt.payload)
			require.True(t, got.OK)
			names := make([]string, len(got.Days))
			for i, d := range got.Days {
				names[i] = d.Name
			}
			assert.Equal(t, tt.wantDays, names)
		})
	}
}

func TestNormalize_DayEntries(t *testing.T) {
	got := schedule.Normalize(map[string]any{
		"days": []any{
			map[string]any{"name": "Mon", "shift": "9-5", "hours": float64(7.5)},
			map[string]any{"name": "Tue", "text": "10-2"},
			map[string]any{"name": "Wed", "shift": "9-5", "hours": "6"},
			map[string]any{"name": "Thu", "shift": "9-5", "hours": float64(0)},
			map[string]any{"name": "Fri"},
			"12-8",
		},
		"rowAlias":  "GIRALDO",
		"weekLabel": "Nov 3 – Nov 9",
	})

	want := schedule.Normalized{
		OK: true,
		Days: []schedule.Day{
			{Name: "Mon", Shift: "9-5", Hours: 7.5},
			{Name: "Tue", Shift: "10-2", Hours: 4},
			{Name: "Wed", Shift: "9-5", Hours: 6},
			{Name: "Thu", Shift: "9-5", Hours: 8},
			{Name: "Fri", Shift: "-", Hours: 0},
			{Name: "", Shift: "12-8", Hours: 8},
		},
		Total:     33.5,
		RowAlias:  "GIRALDO",
		WeekLabel: "Nov 3 – Nov 9",
	}
	if diff := cmp.Diff(want, got, ignoreRaw); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_TotalAndAliases(t *testing.T) {
	got := schedule.Normalize(map[string]any{
		"rows":  []any{map[string]any{"name": "Mon", "shift": "9-5"}},
		"total": float64(40),
		"alias": "DE LA CRUZ",
		"label": "Week 45",
	})
	assert.InDelta(t, 40, got.Total, 1e-9, "a numeric backend total is authoritative")
	assert.Equal(t, "DE LA CRUZ", got.RowAlias)
	assert.Equal(t, "Week 45", got.WeekLabel)

	got = schedule.Normalize(map[string]any{
		"rows":  []any{map[string]any{"name": "Mon", "shift": "9-5"}},
		"total": "40",
	})
	assert.InDelta(t, 8, got.Total, 1e-9, "a non-numeric total is ignored")
}

func TestNormalize_NotOK(t *testing.T) {
	for _, payload := range []map[string]any{
		nil,
		{},
		{"ok": false, "error": "not_found"},
		{"days": []any{}, "mon": "9-5"},
		{"days": "not a list"},
	} {
		got := schedule.Normalize(payload)
		assert.False(t, got.OK, "%v", payload)
		assert.Empty(t, got.Days)
		assert.Zero(t, got.Total)
	}
}

func TestNormalize_KeepsRaw(t *testing.T) {
	raw := map[string]any{"mon": "9-5", "rowPhone": "300"}
	got := schedule.Normalize(raw)
	assert.Equal(t, "300", schedule.Field(got.Raw, "rowPhone"))
}

func TestDecode(t *testing.T) {
	got := schedule.Decode([]byte(`[{"name":"Mon","shift":"9-5"}]`))
	require.True(t, got.OK)
	assert.InDelta(t, 8, got.Total, 1e-9)

	assert.False(t, schedule.Decode([]byte(`{oops`)).OK)
	assert.False(t, schedule.Decode([]byte(`"just a string"`)).OK)
}

func TestField(t *testing.T) {
	m := map[string]any{"a": "  ", "b": float64(3001234567), "c": " x ", "d": true}
	assert.Equal(t, "3001234567", schedule.Field(m, "a", "b"))
	assert.Equal(t, "x", schedule.Field(m, "missing", "c"))
	assert.Equal(t, "true", schedule.Field(m, "d"))
	assert.Equal(t, "", schedule.Field(nil, "a"))
}

func TestToday(t *testing.T) {
	n := schedule.Normalize(map[string]any{"days": []any{
		map[string]any{"name": "Lunes", "shift": "9-5"},
		map[string]any{"name": "Tuesday", "shift": "OFF"},
	}})

	d, ok := n.Today("mon")
	require.True(t, ok)
	assert.Equal(t, "9-5", d.Shift)

	_, ok = n.Today("wed")
	assert.False(t, ok)
}

func TestCanonical(t *testing.T) {
	n := schedule.Normalize(map[string]any{"days": []any{
		map[string]any{"name": "Sábado", "shift": "9-1"},
		map[string]any{"name": "mon", "shift": "9-5"},
		map[string]any{"name": "Monday", "shift": "ignored"},
	}})

	got := n.Canonical()
	require.Len(t, got.Days, 7)
	assert.Equal(t, schedule.Day{Name: "Mon", Shift: "9-5", Hours: 8}, got.Days[0])
	assert.Equal(t, schedule.Day{Name: "Tue", Shift: "-", Hours: 0}, got.Days[1])
	assert.Equal(t, schedule.Day{Name: "Sat", Shift: "9-1", Hours: 4}, got.Days[5])
	assert.Equal(t, []schedule.Day{{Name: "Monday", Shift: "ignored", Hours: 0}}, got.Extra)
	assert.Len(t, n.Days, 3, "the receiver is left untouched")
}

func TestCanonical_UnnamedDaysByPosition(t *testing.T) {
	n := schedule.Normalize(map[string]any{"days": []any{"9-5", "OFF", "10-2"}})

	got := n.Canonical()
	require.Len(t, got.Days, 7)
	assert.Equal(t, schedule.Day{Name: "Mon", Shift: "9-5", Hours: 8}, got.Days[0])
	assert.Equal(t, schedule.Day{Name: "Tue", Shift: "OFF", Hours: 0}, got.Days[1])
	assert.Equal(t, schedule.Day{Name: "Wed", Shift: "10-2", Hours: 4}, got.Days[2])
	assert.Empty(t, got.Extra)

	sum := 0.0
	for _, d := range got.Days {
		sum += d.Hours
	}
	assert.InDelta(t, got.Total, sum, 1e-9)
}

func TestCanonical_KeepsUnplacedDays(t *testing.T) {
	n := schedule.Normalize(map[string]any{"days": []any{
		map[string]any{"name": "Mon", "shift": "9-5"},
		"12-8",
		map[string]any{"name": "Holiday", "shift": "10-2"},
	}})

	got := n.Canonical()
	assert.Equal(t, schedule.Day{Name: "Mon", Shift: "9-5", Hours: 8}, got.Days[0])
	assert.Equal(t, []schedule.Day{
		{Name: "", Shift: "12-8", Hours: 8},
		{Name: "Holiday", Shift: "10-2", Hours: 4},
	}, got.Extra)

	sum := 0.0
	for _, d := range append(got.Days, got.Extra...) {
		sum += d.Hours
	}
	assert.InDelta(t, got.Total, sum, 1e-9)
	assert.Equal(t, got.Extra, got.Canonical().Extra, "canonicalizing twice keeps the same extras")
}
