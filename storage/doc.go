// Package storage persists feature vectors in SQLite, one row per uploaded
// filename.
package storage
