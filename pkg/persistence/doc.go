// Package persistence converts traversal sessions to and from save records.
//
// The store side lives behind ports.SaveStore; middleware in the
// middleware subpackage wraps any store.
package persistence
