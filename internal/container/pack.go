package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"pakaudio/internal/security"
	"pakaudio/pkg/spec"
)

var (
	ErrInvalidHeader   = errors.New("invalid pack header")
	ErrEntryOutOfRange = errors.New("pack entry out of range")
	ErrSealed          = errors.New("pack is sealed")
)

// Header is the fixed 12-byte pack prologue.
type Header struct {
	Reserved0 uint32
	Reserved1 uint32
	NumFiles  uint32
}

// Entry locates one payload; Offset is relative to the first data byte.
type Entry struct {
	Size   uint32
	Offset uint32
}

type ReadSeekerAt interface {
	io.ReadSeeker
	io.ReaderAt
}

// Pack is an opened resource pack. Entries are read through r starting at dataTop.
type Pack struct {
	Header  Header
	Entries []Entry

	r       io.ReaderAt
	closer  io.Closer
	dataTop int64
	size    int64
	key     []byte
}

// UnpackPack reads the header and entry table from r and checks that every entry fits.
func UnpackPack(r ReadSeekerAt) (*Pack, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	tableEnd := int64(spec.PackHeaderSize) + int64(h.NumFiles)*spec.PackEntrySize
	if tableEnd > end {
		return nil, fmt.Errorf("%w: %d entries do not fit in %d bytes", ErrInvalidHeader, h.NumFiles, end)
	}
	if _, err := r.Seek(spec.PackHeaderSize, io.SeekStart); err != nil {
		return nil, err
	}

	entries := make([]Entry, h.NumFiles)
	if err := binary.Read(r, binary.LittleEndian, entries); err != nil {
		return nil, fmt.Errorf("%w: entry table: %v", ErrInvalidHeader, err)
	}

	dataSize := end - tableEnd
	for i, e := range entries {
		if int64(e.Offset)+int64(e.Size) > dataSize {
			return nil, fmt.Errorf("%w: entry %d [%d+%d] beyond data (%d bytes)", ErrInvalidHeader, i, e.Offset, e.Size, dataSize)
		}
	}

	return &Pack{
		Header:  h,
		Entries: entries,
		r:       r,
		dataTop: tableEnd,
		size:    dataSize,
	}, nil
}

// OpenFile opens a pack on disk. A streaming pack keeps the file open and reads
// entries on demand; otherwise the whole file is loaded into memory.
func OpenFile(path string, stream bool) (*Pack, error) {
	if !stream {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return UnpackPack(bytes.NewReader(data))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	p, err := UnpackPack(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	p.closer = f
	return p, nil
}

// OpenFS opens a pack from an asset filesystem. Streaming is honoured only when
// the fs.File can seek and read at offsets (os.DirFS can, embed.FS cannot).
func OpenFS(fsys fs.FS, name string, stream bool) (*Pack, error) {
	if stream {
		f, err := fsys.Open(name)
		if err != nil {
			return nil, err
		}
		if rs, ok := f.(ReadSeekerAt); ok {
			p, err := UnpackPack(rs)
			if err != nil {
				f.Close()
				return nil, err
			}
			p.closer = f
			return p, nil
		}
		f.Close()
	}

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	return UnpackPack(bytes.NewReader(data))
}

func (p *Pack) NumFiles() int { return len(p.Entries) }

// DataSize is the number of payload bytes after the entry table.
func (p *Pack) DataSize() int64 { return p.size }

func (p *Pack) Sealed() bool { return p.Header.Reserved0&spec.PackFlagSealed != 0 }

// Unseal sets the password used to open entries of a sealed pack.
func (p *Pack) Unseal(password string) {
	p.key = security.PackKey(password)
}

// Open returns a reader over entry i. Sealed entries are decrypted in full first.
func (p *Pack) Open(i int) (*io.SectionReader, error) {
	if i < 0 || i >= len(p.Entries) {
		return nil, fmt.Errorf("%w: %d of %d", ErrEntryOutOfRange, i, len(p.Entries))
	}
	e := p.Entries[i]
	sec := io.NewSectionReader(p.r, p.dataTop+int64(e.Offset), int64(e.Size))
	if !p.Sealed() {
		return sec, nil
	}

	if p.key == nil {
		return nil, ErrSealed
	}
	buf := make([]byte, e.Size)
	if _, err := io.ReadFull(sec, buf); err != nil {
		return nil, err
	}
	plain, err := security.Decrypt(buf, p.key)
	if err != nil {
		return nil, fmt.Errorf("unsealing entry %d: %w", i, err)
	}
	return io.NewSectionReader(bytes.NewReader(plain), 0, int64(len(plain))), nil
}

// ReadEntry returns the (unsealed) bytes of entry i.
func (p *Pack) ReadEntry(i int) ([]byte, error) {
	sec, err := p.Open(i)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(sec)
}

// Close releases the backing file of a streaming pack.
func (p *Pack) Close() error {
	if p.closer == nil {
		return nil
	}
	err := p.closer.Close()
	p.closer = nil
	return err
}
