// Package catalog provides the immutable passage corpus that selection
// policies draw from.
//
// The corpus is a JSON file of books, each holding chapters of verse text.
// Passages are addressed by (book, chapter, verse) coordinates in corpus
// order. Filter produces an order-stable slice of passages matching a word
// count range; LookupNextAfter walks the corpus strictly past a coordinate,
// wrapping into the next allowed book, and reports exhaustion as an empty
// result rather than an error.
package catalog
