// Package pagination slices an in-memory result set into fixed-size pages.
//
// Pages are half-open windows [(n-1)*size, n*size) clipped to the input.
// A page past the end is empty rather than an error, and HasMore reports
// whether any item lies beyond the current page.
//
// Example usage:
//
//	page := pagination.Paginate(filtered, 3, pagination.DefaultPageSize)
//	// page.Items holds items 40..59, page.HasMore is true if there are more
//
// Page numbers below 1 are not validated here; callers clamp them.
package pagination
