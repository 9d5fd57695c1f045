// Package assets persists generated media blobs. Blobs live on disk under
// the configured asset directory, addressed by content hash; a SQLite index
// maps refs to kinds, logical names, and blob paths.
package assets
