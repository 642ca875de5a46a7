// Package pagination walks cursor-paginated collections until exhaustion.
//
// Directory services such as Microsoft Graph return a collection one page at a
// time together with an opaque next-page cursor (@odata.nextLink for Graph, a
// paged-results cookie for LDAP). This package hides that loop behind a
// Strategy supplied per collection type.
//
// Example usage:
//
//	groups, err := pagination.FetchAll(ctx, graphClient, graph.GroupsStrategy{})
//	if err != nil {
//		// no partial result: the whole fetch failed
//	}
//
// The walker:
//   - Requests the first page, then follows the cursor until it is empty
//   - Treats a page without items as an empty page, not an error
//   - Preserves page-arrival order, then in-page order
//   - Fails on the first page error without retrying and without returning
//     the items gathered so far
//
// Termination is driven only by the cursor. A remote that never stops
// returning a cursor keeps the walker going; callers wanting a bound should
// cancel the context they pass in.
package pagination
