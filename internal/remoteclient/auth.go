package remoteclient

import "context"

// TokenSource provides OAuth2 bearer tokens on demand. Defined here at the
// consumer per "accept interfaces, return structs" — OAuth itself is out of
// scope (spec §1); production callers satisfy this with an
// oauth2.TokenSource adapter, tests with a fake.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Refresher is implemented by token sources that can be told "the last
// token you gave me was rejected, go get a new one". HTTPClient calls this
// at most once per request, on a 401 — the "single automatic token refresh"
// rule from spec §7 error kind 2.
type Refresher interface {
	Refresh(ctx context.Context) error
}
