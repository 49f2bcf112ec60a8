// Package cachefile persists a store snapshot under the vault so the
// next startup can seed the indexer's metadata tier instead of parsing
// the world. The snapshot is a small binary envelope (magic plus
// schema version) around a msgpack payload. A version mismatch is
// non-fatal: the cache is discarded and a full scan runs.
package cachefile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/dendrite-md/dendrite/internal/note"
	"github.com/dendrite-md/dendrite/internal/vfs"
)

// SnapshotPath is the fixed location of the snapshot, vault-relative.
const SnapshotPath = ".dendrite/cache.bin"

// schemaVersion is bumped whenever the payload layout changes.
const schemaVersion uint16 = 1

var magic = [4]byte{'D', 'N', 'D', 'C'}

// ErrSchemaVersion reports a snapshot written by an incompatible
// schema. Callers discard the cache and rescan.
var ErrSchemaVersion = errors.New("cache schema version mismatch")

// snapshot is the serialized payload. Backlinks are not stored: they
// are derivable from links, and rebuilding them at load time keeps the
// backlink invariant true by construction. The live identity registry
// is exactly the (path, id) pairs of the notes.
type snapshot struct {
	Notes []note.Note `msgpack:"notes"`
}

// Encode serializes notes into the versioned snapshot format.
func Encode(notes []*note.Note) ([]byte, error) {
	snap := snapshot{Notes: make([]note.Note, len(notes))}
	for i, n := range notes {
		snap.Notes[i] = *n
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	var ver [2]byte
	binary.BigEndian.PutUint16(ver[:], schemaVersion)
	buf.Write(ver[:])

	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true) // frontmatter maps encode deterministically
	if err := enc.Encode(&snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a snapshot produced by Encode.
func Decode(data []byte) ([]*note.Note, error) {
	if len(data) < len(magic)+2 || !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, fmt.Errorf("bad snapshot header: %w", ErrSchemaVersion)
	}
	ver := binary.BigEndian.Uint16(data[len(magic):])
	if ver != schemaVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d: %w", ver, schemaVersion, ErrSchemaVersion)
	}

	var snap snapshot
	if err := msgpack.Unmarshal(data[len(magic)+2:], &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	notes := make([]*note.Note, len(snap.Notes))
	for i := range snap.Notes {
		notes[i] = &snap.Notes[i]
	}
	return notes, nil
}

// Load reads and decodes the snapshot from the vault. A missing file
// returns (nil, nil); a corrupt or mismatched one returns the error for
// the caller to log before rescanning.
func Load(fs vfs.FS) ([]*note.Note, error) {
	data, err := fs.Read(SnapshotPath)
	if err != nil {
		return nil, nil
	}
	return Decode(data)
}

// Save encodes and writes the snapshot.
func Save(fs vfs.WritableFS, notes []*note.Note) error {
	data, err := Encode(notes)
	if err != nil {
		return err
	}
	return fs.WriteFile(SnapshotPath, data)
}
