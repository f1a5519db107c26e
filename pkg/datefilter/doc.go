// Package datefilter derives canonical YYYY-MM-DD keys from row date values
// and filters rows by an inclusive date range.
//
// Three input shapes are recognized:
//
//   - UTC instants such as "2026-01-10T20:03:39.000Z", shifted by the fixed
//     WIB offset (UTC+7) before the calendar date is taken.
//   - Day-first dates such as "09/01/2026", reassembled without calendar
//     validation.
//   - ISO dates such as "2026-01-09", used verbatim.
//
// Every derivation returns a Result that either carries the key or names the
// reason the value was rejected. Filter drops rejected rows instead of
// failing the request.
//
// Basic usage:
//
//	spec := datefilter.Spec{Column: "Created Time", Start: "2026-01-10", End: "2026-01-10"}
//	kept := datefilter.Filter(allRows, spec)
package datefilter
