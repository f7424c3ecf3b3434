package wal

import (
	"io"
	"os"

	"github.com/tysonmote/gommap"
)

// idxOffWidth/idxPosWidth/idxEntWidth mirror the teacher's index.go entry
// layout (internal/log/index.go): a fixed-width (relative seq_no, store
// position) pair, memory-mapped for O(1) lookup.
const (
	idxOffWidth uint64 = 4
	idxPosWidth uint64 = 8
	idxEntWidth        = idxOffWidth + idxPosWidth
)

// indexMaxBytes bounds how large the mmap'd region is allowed to grow
// before a segment must roll over — generous relative to capacityBytes
// since payloads are typically far larger than 12-byte index entries.
const indexMaxBytes = 12 * 1024 * 1024

// index maps a record's offset relative to its segment's base seq_no to
// the byte position of that record in the segment's store file, grounded
// on the teacher's gommap-backed index.go.
type index struct {
	file *os.File
	mmap gommap.MMap
	size uint64
}

func newIndex(f *os.File) (*index, error) {
	idx := &index{file: f}

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	idx.size = uint64(fi.Size())

	if err := os.Truncate(f.Name(), int64(indexMaxBytes)); err != nil {
		return nil, err
	}
	if idx.mmap, err = gommap.Map(f.Fd(), gommap.PROT_READ|gommap.PROT_WRITE, gommap.MAP_SHARED); err != nil {
		return nil, err
	}
	return idx, nil
}

// Read returns the (relative offset, store position) pair stored at
// entry in. in == -1 reads the last written entry.
func (i *index) Read(in int64) (out uint32, pos uint64, err error) {
	if i.size == 0 {
		return 0, 0, io.EOF
	}

	if in == -1 {
		out = uint32((i.size / idxEntWidth) - 1)
	} else {
		out = uint32(in)
	}

	entryPos := uint64(out) * idxEntWidth
	if i.size < entryPos+idxEntWidth {
		return 0, 0, io.EOF
	}

	out = enc.Uint32(i.mmap[entryPos : entryPos+idxOffWidth])
	pos = enc.Uint64(i.mmap[entryPos+idxOffWidth : entryPos+idxEntWidth])
	return out, pos, nil
}

// Write appends one (relative offset, store position) entry.
func (i *index) Write(off uint32, pos uint64) error {
	if uint64(len(i.mmap)) < i.size+idxEntWidth {
		return io.EOF
	}
	enc.PutUint32(i.mmap[i.size:i.size+idxOffWidth], off)
	enc.PutUint64(i.mmap[i.size+idxOffWidth:i.size+idxEntWidth], pos)
	i.size += idxEntWidth
	return nil
}

// Count returns the number of entries currently written.
func (i *index) Count() uint32 {
	return uint32(i.size / idxEntWidth)
}

func (i *index) Name() string {
	return i.file.Name()
}

// Close syncs the mapping back to disk, truncates the file to its real
// size (undoing the generous pre-allocation), and closes it.
func (i *index) Close() error {
	if err := i.mmap.Sync(gommap.MS_SYNC); err != nil {
		return err
	}
	if err := i.file.Sync(); err != nil {
		return err
	}
	if err := i.file.Truncate(int64(i.size)); err != nil {
		return err
	}
	return i.file.Close()
}
