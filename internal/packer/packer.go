// Package packer builds resource packs from a directory of sound files and
// reports on existing packs.
package packer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pakaudio/internal/codec"
	"pakaudio/internal/container"
	"pakaudio/internal/log"
	"pakaudio/internal/security"
	"pakaudio/pkg/spec"
)

// EncodeFunc converts a WAV payload into another entry format.
type EncodeFunc func(r io.ReadSeeker, w io.Writer) (float64, error)

type Options struct {
	// ListPath, when set, receives the entry names in pack order.
	ListPath string
	// Password seals the pack and writes a key locker next to it.
	Password string
	// Encode, when set, is applied to every WAV input.
	Encode EncodeFunc
	// Progress is called after each entry is added.
	Progress func(done, total int, name string)
}

// Collect returns the regular files in dir sorted by name, skipping hidden
// files and earlier pack outputs.
func Collect(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		switch {
		case strings.HasSuffix(name, spec.PackExt),
			strings.HasSuffix(name, spec.PackListExt),
			strings.HasSuffix(name, "_keys.dat"):
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Build packs every file Collect finds in dir into out.
func Build(dir, out string, opts Options) ([]string, error) {
	names, err := Collect(dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no input files in %s", dir)
	}

	w := container.NewWriter()
	if opts.Password != "" {
		w.Seal(opts.Password)
	}

	for i, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if opts.Encode != nil && codec.IsWAV(data) {
			var buf bytes.Buffer
			if _, err := opts.Encode(bytes.NewReader(data), &buf); err != nil {
				return nil, fmt.Errorf("encoding %s: %w", name, err)
			}
			data = buf.Bytes()
		}
		if err := w.Add(name, data); err != nil {
			return nil, err
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(names), name)
		}
	}

	if err := w.WriteFile(out, opts.ListPath); err != nil {
		return nil, err
	}
	if opts.Password != "" {
		if err := security.CreateKeyLocker(out, opts.Password); err != nil {
			return nil, fmt.Errorf("writing key locker: %w", err)
		}
	}
	log.Info(log.CatPack, "Pack written", "path", out, "entries", len(names), "sealed", opts.Password != "")
	return names, nil
}

// ReadList reads a CRLF (or LF) separated entry list.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if name := strings.TrimRight(sc.Text(), "\r"); name != "" {
			names = append(names, name)
		}
	}
	return names, sc.Err()
}

// EntryInfo describes one pack entry.
type EntryInfo struct {
	Index    int
	Name     string
	Size     uint32
	Offset   uint32
	Format   string
	Duration time.Duration
	Err      error

	// Filled when analyzing.
	Levels   *codec.Levels
	Warnings []string
}

// Thresholds for Warnings.
const (
	MaxLeadSilence = 20 * time.Millisecond
	MaxSeamJump    = 0.1
	MinPeakDB      = -30.0
)

// Warnings lists what in l is likely wrong for a pack entry: clipping,
// silence ahead of a one-shot, a loop seam that clicks, or an entry that is
// too quiet next to the rest of the mix.
func Warnings(l codec.Levels) []string {
	var w []string
	if l.Clipped > 0 {
		w = append(w, fmt.Sprintf("clipped (%d samples)", l.Clipped))
	}
	if l.LeadSilence > MaxLeadSilence {
		w = append(w, fmt.Sprintf("lead silence %s", l.LeadSilence))
	}
	if l.SeamJump > MaxSeamJump {
		w = append(w, fmt.Sprintf("loop seam %.2f", l.SeamJump))
	}
	if l.PeakDB < MinPeakDB {
		w = append(w, fmt.Sprintf("quiet (peak %.1f dBFS)", l.PeakDB))
	}
	return w
}

// Inspect lists the entries of p, decoding each to find its format and length.
// names may be nil or shorter than the entry table.
func Inspect(p *container.Pack, names []string, codecs *codec.Registry, analyze bool) []EntryInfo {
	if codecs == nil {
		codecs = codec.Default()
	}
	infos := make([]EntryInfo, p.NumFiles())
	for i, e := range p.Entries {
		info := EntryInfo{Index: i, Size: e.Size, Offset: e.Offset}
		if i < len(names) {
			info.Name = names[i]
		}
		info.Err = inspectEntry(p, i, codecs, analyze, &info)
		infos[i] = info
	}
	return infos
}

func inspectEntry(p *container.Pack, i int, codecs *codec.Registry, analyze bool, info *EntryInfo) error {
	sec, err := p.Open(i)
	if err != nil {
		return err
	}
	s, format, name, err := codecs.Decode(codec.NopCloser(sec))
	info.Format = name
	if err != nil {
		return err
	}
	defer s.Close()

	pcm, err := codec.ReadPCM(s, 0)
	if err != nil {
		return err
	}
	info.Duration = format.SampleRate.D(len(pcm) / 2)
	if !analyze {
		return nil
	}

	l := codec.Measure(pcm, format.SampleRate)
	info.Levels = &l
	info.Warnings = Warnings(l)
	log.Debug(log.CatCodec, "Entry measured", "entry", i, "peak", l.PeakDB, "warnings", len(info.Warnings))
	return nil
}
