// Package discovery walks the vendor's cascading dropdowns and records
// every valid combination as a leaf of a catalog.Tree.
//
// The walk is depth-first and strictly sequential on one browser session:
// selecting an option at one level populates the dropdown of the next.
// Only fully walked paths are inserted into the tree, so a branch whose
// dropdown could not be read leaves no trace.
package discovery
