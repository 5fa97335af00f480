package http

import "net/http"

// The org/session resolver in front of this service authenticates the caller
// and forwards the resolved org as a header. Every handler requires it; all
// engine queries are scoped by it.
const orgHeader = "X-Org-ID"

func orgIDFromRequest(r *http.Request) (string, bool) {
	orgID := r.Header.Get(orgHeader)
	return orgID, orgID != ""
}
