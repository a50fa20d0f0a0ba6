// Package docstore loads and saves a whole bibliographic dataset as one
// document and derives logical collections from it.
//
// A document is a generic tree of Record, []any and scalar values decoded by a
// Codec (JSON, XML or YAML). A Shape describes where each entity Kind lives in
// that tree:
//
//   - Flat: an array of borrows, each embedding a student and a book, the book
//     embedding an author.
//   - Collections: top-level Borrows, Students, Books and Authors.
//   - Nested: Borrowers holding BorrowBatches holding Borrows.
//
// Shapes expose the places holding entities as sites (list items and embedded
// fields) so that callers never branch on the physical layout. Derive flattens
// the sites of a kind into an ordered collection deduplicated by id.
//
// Store serializes every load–mutate–save cycle behind a lock and writes the
// file atomically.
package docstore
