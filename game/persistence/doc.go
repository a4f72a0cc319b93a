// Package persistence stores the durable records of a player profile.
//
// Three independent records exist per profile:
//   - the adventure for each theme (a whole engine.GameState, replaced on every write)
//   - lifetime stats, updated with a single read-modify-write per win
//   - the remembered identity code
//
// Records live in a Store. FileStore writes one JSON file per record with an
// atomic rename, SQLiteStore keeps them in one table, and MemoryStore is used
// by tests and throwaway servers.
//
// Reconcile is the only place durable progress and a launch configuration are
// merged.
package persistence
