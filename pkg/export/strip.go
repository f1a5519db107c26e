package export

import "github.com/redigma/partner-dashboard/pkg/rows"

// StripColumns returns copies of rs without the hidden columns.
// The input rows are not modified.
func StripColumns(rs []rows.Row, hidden []string) []rows.Row {
	out := make([]rows.Row, len(rs))
	for i, r := range rs {
		out[i] = r.Without(hidden...)
	}
	return out
}
