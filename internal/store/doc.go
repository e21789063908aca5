// Package store persists the option tree between runs.
//
// Three backends implement Store:
//   - File keeps one gob-encoded blob on the local disk and replaces it
//     atomically on every save.
//   - SQLite keeps a history of snapshots (via modernc.org/sqlite) with a
//     SHA3-256 digest per snapshot, pruned to the newest N.
//   - S3 keeps one object per catalog in a bucket.
//
// A missing catalog is never an error: Load returns an empty tree.
//
// The package also converts the legacy nested JSON format, in which every
// level mixes a "verbose_name" key with child ids and leaves carry a
// "download_url" string, to and from the tree.
package store
