package datefilter

import (
	"reflect"
	"testing"

	"github.com/redigma/partner-dashboard/pkg/rows"
)

const column = "Created Time"

func orderRow(id string, created any) rows.Row {
	return rows.New(
		rows.Field{Key: "Order ID", Value: id},
		rows.Field{Key: column, Value: created},
	)
}

func ids(rs []rows.Row) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		v, _ := r.Get("Order ID")
		out = append(out, v.(string))
	}
	return out
}

func sampleRows() []rows.Row {
	return []rows.Row{
		orderRow("A", "2026-01-10T01:03:39.000Z"), // 2026-01-10
		orderRow("B", "2026-01-10T20:03:39.000Z"), // 2026-01-11
		orderRow("C", "09/01/2026"),               // 2026-01-09
		orderRow("D", "2026-01-09"),               // 2026-01-09
		orderRow("E", ""),
		orderRow("F", nil),
		rows.New(rows.Field{Key: "Order ID", Value: "G"}),
		orderRow("H", "10/01/2026"), // 2026-01-10
	}
}

func TestFilter_NoBoundsIsIdentity(t *testing.T) {
	input := sampleRows()

	got := Filter(input, Spec{Column: column})

	if !reflect.DeepEqual(got, input) {
		t.Errorf("Filter() without bounds changed the rows: %v", ids(got))
	}
}

func TestFilter_Bounds(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  []string
	}{
		{
			name:  "single day",
			start: "2026-01-10",
			end:   "2026-01-10",
			want:  []string{"A", "H"},
		},
		{
			name:  "start only",
			start: "2026-01-10",
			want:  []string{"A", "B", "H"},
		},
		{
			name: "end only",
			end:  "2026-01-09",
			want: []string{"C", "D"},
		},
		{
			name:  "full range keeps order",
			start: "2026-01-01",
			end:   "2026-01-31",
			want:  []string{"A", "B", "C", "D", "H"},
		},
		{
			name:  "nothing in range",
			start: "2027-01-01",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(sampleRows(), Spec{Column: column, Start: tt.start, End: tt.end})
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Errorf("Filter() = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestFilter_EmptyValueExcludedRegardlessOfBounds(t *testing.T) {
	input := []rows.Row{orderRow("E", "")}

	got := Filter(input, Spec{Column: column, Start: "0000-00-00", End: "9999-99-99"})
	if len(got) != 0 {
		t.Errorf("Filter() kept %v", ids(got))
	}
}

func TestFilter_DoesNotModifyInput(t *testing.T) {
	input := sampleRows()
	before := ids(input)

	Filter(input, Spec{Column: column, Start: "2026-01-10"})

	if !reflect.DeepEqual(ids(input), before) {
		t.Errorf("input changed: %v, want %v", ids(input), before)
	}
}

func TestSpec_Contains(t *testing.T) {
	spec := Spec{Start: "2026-01-10", End: "2026-01-12"}

	tests := map[string]bool{
		"2026-01-09": false,
		"2026-01-10": true,
		"2026-01-11": true,
		"2026-01-12": true,
		"2026-01-13": false,
	}
	for key, want := range tests {
		if got := spec.Contains(key); got != want {
			t.Errorf("Contains(%q) = %v, want %v", key, got, want)
		}
	}
}
