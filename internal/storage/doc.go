// Package storage persists the delivery audit trail.
//
// Every gate send, broadcast leg, and engine process outcome can be recorded
// as a DeliveryRecord. Drivers:
//   - "file": append-only JSON Lines with count-bounded compaction
//   - "sqlite": SQLite database file (build with -tags sqlite)
//   - "" / "none": disabled
package storage
