// Package fleet is the single-writer façade over the engine. A Manager owns
// the historical store, the active-state table, the simulator and the
// healing controller, and serializes every operation behind one mutex so a
// tick, a heal and a snapshot never interleave.
package fleet
