// Package roster is the source of truth for which agents exist and where
// their delivery coordinates point.
//
// The backing file is reloaded wholesale; readers always see either the
// previous complete snapshot or the new one, never a half-loaded map.
// Validation failures are reported as data (ValidationIssue), not errors,
// so one bad agent never hides the state of the others.
package roster
