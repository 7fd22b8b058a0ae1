package store

import "github.com/rida-louchachha/punchsync/internal/engine"

// The engine consumes persistence through its interfaces; one *Store
// satisfies all of them.
var (
	_ engine.IdentityStore = (*Store)(nil)
	_ engine.LinkStore     = (*Store)(nil)
	_ engine.SpanStore     = (*Store)(nil)
	_ engine.RawLogStore   = (*Store)(nil)
)
