package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// segmentFile wraps one append-only ".segment" file, tracking its current
// length so appends and truncations don't need a stat call per write.
type segmentFile struct {
	mu   sync.Mutex
	f    *os.File
	size int64
}

func segmentPath(dir string, id uint32) string {
	return filepath.Join(dir, fmt.Sprintf("%06d.segment", id))
}

func openSegment(dir string, id uint32) (*segmentFile, error) {
	p := segmentPath(dir, id)
	f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &segmentFile{f: f, size: info.Size()}, nil
}

// append writes body at the current end of the file and returns the
// offset it was written at. The caller is responsible for calling sync
// once per batch, not once per append.
func (s *segmentFile) append(body []byte) (offset uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	off := s.size
	n, err := s.f.WriteAt(body, off)
	if err != nil {
		return 0, err
	}
	s.size += int64(n)
	return uint64(off), nil
}

// readAt reads length bytes at offset.
func (s *segmentFile) readAt(offset uint64, length uint32) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := s.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, err
	}
	return buf, nil
}

// truncateTo truncates the file to exactly size bytes. Truncating to zero
// removes the file entirely so empty segments don't linger on disk.
func (s *segmentFile) truncateTo(size int64, dir string, id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if size == 0 {
		s.f.Close()
		s.size = 0
		return os.Remove(segmentPath(dir, id))
	}
	if err := s.f.Truncate(size); err != nil {
		return err
	}
	s.size = size
	return nil
}

func (s *segmentFile) sync() error {
	return s.f.Sync()
}

func (s *segmentFile) close() error {
	return s.f.Close()
}
