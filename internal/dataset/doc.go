// Package dataset reads the dataset's flat-file metadata: the per-sequence
// metadata table, the per-stream timestamp files, and the data directory
// tree they reference.
//
// Every path in the metadata table is relative to the dataset root and is
// resolved with security.ResolveWithinRoot before any file is touched.
package dataset
