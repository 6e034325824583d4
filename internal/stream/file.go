package stream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSource reads an on-disk file, reporting its known size from Stat.
type FileSource struct {
	id        string
	f         *os.File
	size      int64
	haveSize  bool
	bytesRead int64
}

// NewFileSource opens path for reading.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening source file: %w", err)
	}
	size, haveSize := int64(0), false
	if info, err := f.Stat(); err == nil {
		size, haveSize = info.Size(), true
	}
	return &FileSource{id: path, f: f, size: size, haveSize: haveSize}, nil
}

func (s *FileSource) ID() string { return s.id }

func (s *FileSource) ContentSize() (int64, bool) { return s.size, s.haveSize }

func (s *FileSource) BytesRead() int64 { return s.bytesRead }

func (s *FileSource) Read(buf []byte) (n int, eof bool, err error) {
	n, err = s.f.Read(buf)
	s.bytesRead += int64(n)
	if err == nil {
		return n, false, nil
	}
	if n > 0 {
		// A short read without EOF still needs its bytes delivered; EOF
		// (or the read error) is reported on the next call instead of here.
		return n, false, nil
	}
	if !errors.Is(err, io.EOF) {
		return 0, true, fmt.Errorf("reading source file: %w", err)
	}
	return n, true, nil
}

// Close releases the underlying file handle.
func (s *FileSource) Close() error { return s.f.Close() }

// FileSink writes to a temp file in the destination's directory and
// renames it into place only on Commit — the atomic-destination guarantee
// of §4.5: a reader never observes a partially-written destination file.
type FileSink struct {
	destPath  string
	tmp       *os.File
	tmpPath   string
	done      bool
}

// ErrDestinationExists is wrapped into NewFileSink's returned error when
// overwrite is false and destPath already exists, so callers can
// distinguish that case from an unrelated I/O failure (e.g. a missing
// parent directory) without string-matching the error text.
var ErrDestinationExists = errors.New("destination exists and overwrite is disabled")

// NewFileSink prepares to write destPath atomically. If overwrite is
// false and destPath already exists, it fails before creating anything —
// the Overwrite error class must surface before any cryptographic work.
func NewFileSink(destPath string, overwrite bool) (*FileSink, error) {
	if !overwrite {
		if _, err := os.Stat(destPath); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrDestinationExists, destPath)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".cipherpack-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	return &FileSink{destPath: destPath, tmp: tmp, tmpPath: tmp.Name()}, nil
}

func (s *FileSink) Write(p []byte) (int, error) {
	return s.tmp.Write(p)
}

func (s *FileSink) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tmp.Close(); err != nil {
		os.Remove(s.tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(s.tmpPath, s.destPath); err != nil {
		os.Remove(s.tmpPath)
		return fmt.Errorf("renaming temp file into place: %w", err)
	}
	return nil
}

func (s *FileSink) Abort() error {
	if s.done {
		return nil
	}
	s.done = true
	s.tmp.Close()
	return os.Remove(s.tmpPath)
}
