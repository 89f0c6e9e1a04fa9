package container

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"pakaudio/internal/security"
	"pakaudio/pkg/spec"
)

type pendingEntry struct {
	name string
	data []byte
}

// Writer collects payloads in order and writes them as a pack.
type Writer struct {
	header  Header
	entries []pendingEntry
	key     []byte
	total   uint64
}

func NewWriter() *Writer {
	return &Writer{}
}

// Seal makes every entry added afterwards AES-GCM sealed under password.
func (w *Writer) Seal(password string) {
	w.key = security.PackKey(password)
	w.header.Reserved0 |= spec.PackFlagSealed
}

// Add appends a payload. The data is copied.
func (w *Writer) Add(name string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	if w.key != nil {
		sealed, err := security.Encrypt(buf, w.key)
		if err != nil {
			return fmt.Errorf("sealing %s: %w", name, err)
		}
		buf = sealed
	}

	if w.total+uint64(len(buf)) > math.MaxUint32 {
		return fmt.Errorf("adding %s: pack would exceed 4 GiB", name)
	}
	w.total += uint64(len(buf))
	w.entries = append(w.entries, pendingEntry{name: name, data: buf})
	return nil
}

func (w *Writer) Len() int { return len(w.entries) }

// Names returns entry names in pack order.
func (w *Writer) Names() []string {
	names := make([]string, len(w.entries))
	for i, e := range w.entries {
		names[i] = e.name
	}
	return names
}

// WriteTo writes header, entry table and payloads.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	bw := bufio.NewWriter(out)
	var n int64

	h := w.header
	h.NumFiles = uint32(len(w.entries))
	if err := binary.Write(bw, binary.LittleEndian, h); err != nil {
		return n, err
	}
	n += spec.PackHeaderSize

	var offset uint32
	for _, e := range w.entries {
		ent := Entry{Size: uint32(len(e.data)), Offset: offset}
		if err := binary.Write(bw, binary.LittleEndian, ent); err != nil {
			return n, err
		}
		n += spec.PackEntrySize
		offset += ent.Size
	}

	for _, e := range w.entries {
		m, err := bw.Write(e.data)
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// WriteList writes one entry name per line, CRLF terminated.
func (w *Writer) WriteList(out io.Writer) error {
	for _, e := range w.entries {
		if _, err := fmt.Fprintf(out, "%s\r\n", e.name); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes the pack to path and, if listPath is set, the entry list.
func (w *Writer) WriteFile(path, listPath string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := w.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if listPath == "" {
		return nil
	}
	lf, err := os.Create(listPath)
	if err != nil {
		return err
	}
	if err := w.WriteList(lf); err != nil {
		lf.Close()
		return err
	}
	return lf.Close()
}
