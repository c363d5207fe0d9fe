package microblog

import (
	"context"
)

// RequestKind is the kind of page load a mediator is asked to perform
type RequestKind int

// Load kinds, mirroring the three-request paging contract
const (
	Refresh RequestKind = iota
	Append
	Prepend
)

// String returns a readable name for logging
func (k RequestKind) String() string {
	switch k {
	case Refresh:
		return "refresh"
	case Append:
		return "append"
	case Prepend:
		return "prepend"
	default:
		return "unknown"
	}
}

// Request asks a mediator for one page. Cursor is the opaque
// continuation token the mediator returned from its previous load;
// empty on Refresh and on the first Append after a Refresh.
type Request struct {
	Kind   RequestKind
	Cursor string
}

// Result reports the outcome of a successful page load. The mediator
// has already written the page into the cache store when it returns.
type Result struct {
	// NextCursor continues pagination in the direction of the request.
	// Meaningless when EndOfPagination is true.
	NextCursor string
	// EndOfPagination is true when no further pages remain in the
	// direction of the request. Sticky in the paging engine until the
	// next Refresh.
	EndOfPagination bool
	// Count is the number of timeline entries written, for logging
	Count int
}

// TimelineMediator fetches one logical feed from a backend and writes
// normalized rows into the cache store. Implementations never panic
// across this boundary and never leave a refresh half-applied: the
// clear and insert for a Refresh happen in a single store transaction
// after the network fetch has succeeded.
type TimelineMediator interface {
	// PagingKey identifies the feed this mediator owns
	PagingKey() string
	// Timeline loads one page of at most pageSize entries
	Timeline(ctx context.Context, pageSize int, req Request) (Result, error)
}

// ListMetaDataType enumerates list fields a backend can persist
type ListMetaDataType int

// List metadata capabilities
const (
	ListMetaTitle ListMetaDataType = iota
	ListMetaDescription
	ListMetaAvatar
)

// ListMetaData carries the editable fields of a curated list
type ListMetaData struct {
	Title       string
	Description string
	AvatarURL   string
}

// ListLoader manages curated lists (or feeds) for one backend. Lists
// are small and reloaded wholesale, so Load is cursor-paged but has no
// sort-id ordering requirement. SupportedMetaData advertises which
// fields the backend can store, so callers can hide the rest.
type ListLoader interface {
	SupportedMetaData() []ListMetaDataType
	Load(ctx context.Context, pageSize int, req Request) (Result, error)
	Create(ctx context.Context, meta ListMetaData) error
	Update(ctx context.Context, listID string, meta ListMetaData) error
	Delete(ctx context.Context, listID string) error
	AddMember(ctx context.Context, listID string, userID string) error
	RemoveMember(ctx context.Context, listID string, userID string) error
}
