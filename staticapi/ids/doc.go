// Package ids generates record ids for collections.
//
//	Overview
//
// Every record in a collection carries a numeric "id" field. When a client
// inserts a record without one, the store asks a Generator for a fresh id.
// The generator receives the set of ids already present in the collection
// (loaded from disk under the collection's write lock) and must return a
// value outside that set.
//
//	Strategies
//
// Sequential returns one more than the largest id in the set. Ids are
// strictly increasing within a collection as long as records are not
// removed from the tail, and generation never needs to retry.
//
// Random draws a uniform candidate in [1, Max] and retries on collision.
// This mimics servers that hand out short random ids. When the range is
// saturated the generator gives up after a bounded number of attempts and
// returns ErrExhausted instead of looping.
//
// Records whose id is not a non-negative 64-bit integer are not part of the
// set, so a string id such as "abc" can never collide with a generated one.
package ids
