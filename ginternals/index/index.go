// Package index contains the binary codec for the git index file
// (the staging area), version 2 only.
//
// An index file contains 4 sections. A header, a list of entries,
// a list of extensions, and a footer.
// Header: 12 bytes
//         The first 4 bytes contain the magic ('D', 'I', 'R', 'C')
//         The next 4 bytes contains the version (0, 0, 0, 2)
//         The last 4 bytes contains the number of entries in the file
// Entries: Variable size, written in the order of Index.Entries; this
//          package does not sort them.
// Extensions: not supported, see Non-goals.
// Footer: not written by Write; Read ignores any bytes that follow the
//         last entry.
// https://git-scm.com/docs/index-format
package index

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/gopherforge/mgit/ginternals"
	"github.com/gopherforge/mgit/internal/readutil"
	"golang.org/x/xerrors"
)

// magic is the 4-byte signature every index file starts with
const magic = "DIRC"

// supportedVersion is the only index format version this package
// reads and writes
const supportedVersion = 2

// entryHeaderSize is the size, in bytes, of a fixed-size entry header
// (everything before the variable-length name)
const entryHeaderSize = 62

// ErrInvalidIndex is returned when an index file is corrupted or uses
// an unsupported feature
var ErrInvalidIndex = errors.New("invalid index file")

// EntryMode represents the type bits of an index entry's mode
type EntryMode uint32

const (
	// ModeRegular is the type used by regular files
	ModeRegular EntryMode = 0b1000
	// ModeSymlink is the type used by symbolic links
	ModeSymlink EntryMode = 0b1010
	// ModeGitlink is the type used by submodules
	ModeGitlink EntryMode = 0b1110
)

// Entry represents a single staged file in the index
type Entry struct {
	CTime      time.Time
	MTime      time.Time
	Dev        uint32
	Ino        uint32
	ModeType   EntryMode
	ModePerms  uint32
	UID        uint32
	GID        uint32
	Size       uint32
	ID         ginternals.Oid
	AssumeValid bool
	Stage      uint16
	Path       string
}

// Index represents the content of a git index file
type Index struct {
	Version uint32
	Entries []Entry
}

// New returns an empty index at the default supported version
func New() *Index {
	return &Index{Version: supportedVersion}
}

func timeToParts(t time.Time) (sec, nsec uint32) {
	if t.IsZero() {
		return 0, 0
	}
	return uint32(t.Unix()), uint32(t.Nanosecond())
}

// Read parses the binary content of an index file
func Read(raw []byte) (*Index, error) {
	if len(raw) == 0 {
		return New(), nil
	}
	if len(raw) < 12 {
		return nil, xerrors.Errorf("header truncated: %w", ErrInvalidIndex)
	}

	c := readutil.NewCursor(raw)
	sig, _ := c.Take(4)
	if string(sig) != magic {
		return nil, xerrors.Errorf("bad signature %q: %w", sig, ErrInvalidIndex)
	}
	versionBytes, _ := c.Take(4)
	version := binary.BigEndian.Uint32(versionBytes)
	if version != supportedVersion {
		return nil, xerrors.Errorf("unsupported index version %d: %w", version, ErrInvalidIndex)
	}
	countBytes, _ := c.Take(4)
	count := binary.BigEndian.Uint32(countBytes)

	idx := &Index{Version: version}
	for i := uint32(0); i < count; i++ {
		e, err := readEntry(c)
		if err != nil {
			return nil, xerrors.Errorf("entry %d: %w", i, err)
		}
		idx.Entries = append(idx.Entries, *e)
	}
	return idx, nil
}

func readEntry(c *readutil.Cursor) (*Entry, error) {
	if c.Len() < entryHeaderSize {
		return nil, xerrors.Errorf("entry header truncated: %w", ErrInvalidIndex)
	}
	start := c.Pos()
	e := &Entry{}

	ctimeS := readU32(c)
	ctimeNS := readU32(c)
	e.CTime = time.Unix(int64(ctimeS), int64(ctimeNS))
	mtimeS := readU32(c)
	mtimeNS := readU32(c)
	e.MTime = time.Unix(int64(mtimeS), int64(mtimeNS))
	e.Dev = readU32(c)
	e.Ino = readU32(c)

	mode := readU32(c)
	e.ModeType = EntryMode(mode >> 12)
	switch e.ModeType {
	case ModeRegular, ModeSymlink, ModeGitlink:
	default:
		return nil, xerrors.Errorf("unsupported mode type %b: %w", e.ModeType, ErrInvalidIndex)
	}
	e.ModePerms = mode & 0o000777

	e.UID = readU32(c)
	e.GID = readU32(c)
	e.Size = readU32(c)

	shaBytes, ok := c.Take(ginternals.OidSize)
	if !ok {
		return nil, xerrors.Errorf("sha truncated: %w", ErrInvalidIndex)
	}
	oid, err := ginternals.NewOidFromHex(shaBytes)
	if err != nil {
		return nil, xerrors.Errorf("invalid sha: %w", ErrInvalidIndex)
	}
	e.ID = oid

	flags := readU16(c)
	e.AssumeValid = flags&0b1000000000000000 != 0
	if flags&0b0100000000000000 != 0 {
		return nil, xerrors.Errorf("extended flag set, unsupported: %w", ErrInvalidIndex)
	}
	e.Stage = flags & 0b0011000000000000
	nameLength := int(flags & 0b0000111111111111)

	var name []byte
	if nameLength < 0xFFF {
		name, ok = c.Take(nameLength)
		if !ok {
			return nil, xerrors.Errorf("name truncated: %w", ErrInvalidIndex)
		}
		if len(c.Peek(1)) != 1 || c.Peek(1)[0] != 0 {
			return nil, xerrors.Errorf("name not NULL-terminated: %w", ErrInvalidIndex)
		}
		c.Advance(1)
	} else {
		nullOffset := c.IndexByte(0)
		if nullOffset < 0 {
			return nil, xerrors.Errorf("name not NULL-terminated: %w", ErrInvalidIndex)
		}
		name, _ = c.Take(nullOffset)
		c.Advance(1)
	}
	e.Path = string(name)

	consumed := c.Pos() - start
	if pad := 8 - consumed%8; pad != 8 {
		c.Advance(pad)
	}

	return e, nil
}

func readU32(c *readutil.Cursor) uint32 {
	b, _ := c.Take(4)
	return binary.BigEndian.Uint32(b)
}

func readU16(c *readutil.Cursor) uint16 {
	b, _ := c.Take(2)
	return binary.BigEndian.Uint16(b)
}

// Write serializes the index to its on-disk binary representation
func Write(idx *Index) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteString(magic)

	version := idx.Version
	if version == 0 {
		version = supportedVersion
	}
	writeU32(buf, version)
	if len(idx.Entries) > math.MaxUint32 {
		return nil, xerrors.Errorf("too many entries: %w", ErrInvalidIndex)
	}
	writeU32(buf, uint32(len(idx.Entries)))

	written := 0
	for i := range idx.Entries {
		n, err := writeEntry(buf, &idx.Entries[i])
		if err != nil {
			return nil, xerrors.Errorf("entry %d: %w", i, err)
		}
		written += n
	}
	return buf.Bytes(), nil
}

func writeEntry(buf *bytes.Buffer, e *Entry) (int, error) {
	start := buf.Len()

	ctimeS, ctimeNS := timeToParts(e.CTime)
	mtimeS, mtimeNS := timeToParts(e.MTime)
	writeU32(buf, ctimeS)
	writeU32(buf, ctimeNS)
	writeU32(buf, mtimeS)
	writeU32(buf, mtimeNS)
	writeU32(buf, e.Dev)
	writeU32(buf, e.Ino)

	mode := uint32(e.ModeType)<<12 | (e.ModePerms & 0o000777)
	writeU32(buf, mode)
	writeU32(buf, e.UID)
	writeU32(buf, e.GID)
	writeU32(buf, e.Size)
	buf.Write(e.ID.Bytes())

	nameBytes := []byte(e.Path)
	nameLength := len(nameBytes)
	if nameLength > 0xFFF {
		nameLength = 0xFFF
	}
	var flags uint16
	if e.AssumeValid {
		flags |= 0b1000000000000000
	}
	flags |= e.Stage & 0b0011000000000000
	flags |= uint16(nameLength)
	writeU16(buf, flags)

	buf.Write(nameBytes)
	buf.WriteByte(0)

	written := buf.Len() - start
	if pad := 8 - written%8; pad != 8 {
		buf.Write(make([]byte, pad))
		written += pad
	}
	return written, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}
