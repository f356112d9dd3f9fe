// Package identity resolves the authenticated user for a request.
//
// The access engine does not authenticate anyone. A fronting auth
// proxy asserts the user id in the X-Lopan-User header; Middleware
// turns that id into a full User record via a Directory and attaches
// it to the request context, where ContextProvider hands it to the
// engine. Requests without a resolvable identity pass through
// unauthenticated and the engine denies them on evaluation.
package identity
