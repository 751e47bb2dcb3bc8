// Package store provides the key-value stores that back
// remote connection flags: an in-memory store and a file
// store shared safely between processes.
package store
