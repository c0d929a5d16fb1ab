// Package routing models coordination messages and resolves the strategy
// that governs how each one is delivered.
//
// Resolution is a pure function over {sender class, priority, message type};
// the strategy table maps the resolved name to its timeout/retry policy.
package routing
