// Package engine orchestrates message coordination: validate the message,
// resolve its strategy, look up the strategy's policy, execute, and keep
// the books.
//
// Execution here is a strategy-tagged simulation; the physical side effect
// belongs to the dispatch layer. Counters only ever go up; history is a
// bounded window.
package engine
