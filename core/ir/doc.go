// Package ir provides the intermediate representation shared by the psalm
// slide pipeline.
//
// # Core Types
//
// Data flows through three stages, each with its own record type:
//
//   - RawVerse: one verse element as parsed from the source page
//   - Verse: a normalized verse, split into display lines
//   - Assignment: the placement of one verse on a slide
//
// A Poem groups the normalized verses of one psalm.
//
// # Invariants
//
// Concatenating Assignment.Lines in order reproduces the concatenation of
// the Verse.Lines they were paginated from. Pagination partitions content
// across slides; it never reorders, drops or merges lines.
//
// # Selections
//
// ParseSelection turns command-line expressions such as "1-10, 23, 119"
// into an ordered list of psalm numbers.
package ir
