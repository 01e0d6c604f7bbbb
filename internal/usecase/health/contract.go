package health

import "context"

// StorePinger checks that the note store is reachable.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// IndexCounter reports the number of indexed notes, as a cheap proof
// the note schema is intact.
type IndexCounter interface {
	Count(ctx context.Context) (int, error)
}
