// Package savestore keeps save-state slots in memory and mirrors them to a
// host directory.
package savestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/retroenv/retrogolib/log"
)

// DefaultQuota bounds the total size of all slots.
const DefaultQuota = 64 << 20

const (
	extension   = ".state"
	maxBaseName = 32
)

var validName = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,40}\.state$`)

var (
	ErrSlotNotFound  = errors.New("save slot not found")
	ErrInvalidName   = errors.New("invalid save slot name")
	ErrQuotaExceeded = errors.New("save store quota exceeded")
)

// Slot is a stored save state.
type Slot struct {
	Data     []byte
	Created  time.Time
	Modified time.Time
}

// Store is safe for concurrent use; the disk syncer runs beside the frontend.
type Store struct {
	mu    sync.RWMutex
	dir   string
	quota int
	slots map[string]*Slot
	dirty map[string]bool
	used  int
}

// New creates an empty store persisted to dir. A quota <= 0 selects
// DefaultQuota.
func New(dir string, quota int) *Store {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &Store{
		dir:   dir,
		quota: quota,
		slots: make(map[string]*Slot),
		dirty: make(map[string]bool),
	}
}

// SlotName builds the slot name for a numbered save of a ROM.
func SlotName(romPath string, slot int) string {
	base := strings.TrimSuffix(filepath.Base(romPath), filepath.Ext(romPath))
	clean := []rune(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, base))
	if len(clean) > maxBaseName {
		clean = clean[:maxBaseName]
	}
	if len(clean) == 0 {
		clean = []rune("rom")
	}
	return fmt.Sprintf("%s_%d%s", string(clean), slot, extension)
}

// Dir returns the host directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save stores a copy of data, replacing any previous slot of that name.
func (s *Store) Save(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	oldSize := 0
	slot, ok := s.slots[name]
	if ok {
		oldSize = len(slot.Data)
	}
	if s.used-oldSize+len(data) > s.quota {
		return fmt.Errorf("%w: %d bytes free", ErrQuotaExceeded, s.quota-s.used+oldSize)
	}

	now := time.Now()
	if !ok {
		slot = &Slot{Created: now}
		s.slots[name] = slot
	}
	slot.Data = append([]byte(nil), data...)
	slot.Modified = now

	s.dirty[name] = true
	s.used += len(data) - oldSize
	return nil
}

// Load returns a copy of the slot data.
func (s *Store) Load(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), slot.Data...), nil
}

// Size returns the size of a slot in bytes.
func (s *Store) Size(name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	return len(slot.Data), nil
}

// Meta returns the creation and modification time of a slot.
func (s *Store) Meta(name string) (time.Time, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, err := s.lookup(name)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return slot.Created, slot.Modified, nil
}

// Delete removes a slot; the file goes on the next Flush.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, err := s.lookup(name)
	if err != nil {
		return err
	}
	s.used -= len(slot.Data)
	delete(s.slots, name)
	s.dirty[name] = true
	return nil
}

func (s *Store) lookup(name string) (*Slot, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	slot, ok := s.slots[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, name)
	}
	return slot, nil
}

// List returns the sorted slot names.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.slots))
	for name := range s.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) FreeSpace() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quota - s.used
}

// Dirty reports whether changes are waiting for Flush.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dirty) > 0
}

// Open reads every slot file from the directory. A missing directory is an
// empty store. Files with other names are ignored.
func (s *Store) Open() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !validName.MatchString(name) {
			continue
		}
		if _, ok := s.slots[name]; ok {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return fmt.Errorf("reading save slot: %w", err)
		}
		if s.used+len(data) > s.quota {
			return fmt.Errorf("%w: loading %s", ErrQuotaExceeded, name)
		}

		modified := time.Now()
		if info, err := entry.Info(); err == nil {
			modified = info.ModTime()
		}
		s.slots[name] = &Slot{
			Data:     data,
			Created:  modified,
			Modified: modified,
		}
		s.used += len(data)
	}
	return nil
}

// Flush writes dirty slots to the directory and removes deleted ones. Slots
// that fail to write stay dirty. The first error is returned.
func (s *Store) Flush() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	// Copy the dirty set under the lock, then do I/O without it.
	s.mu.Lock()
	pending := make(map[string]*Slot, len(s.dirty))
	var deleted []string
	for name := range s.dirty {
		if slot, ok := s.slots[name]; ok {
			pending[name] = &Slot{
				Data:     append([]byte(nil), slot.Data...),
				Modified: slot.Modified,
			}
		} else {
			deleted = append(deleted, name)
		}
		delete(s.dirty, name)
	}
	s.mu.Unlock()

	var firstErr error
	for _, name := range deleted {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}

	for name, slot := range pending {
		path := filepath.Join(s.dir, name)
		if err := os.WriteFile(path, slot.Data, 0644); err != nil {
			s.mu.Lock()
			s.dirty[name] = true
			s.mu.Unlock()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		_ = os.Chtimes(path, time.Now(), slot.Modified)
	}
	return firstErr
}

// Run flushes the store every interval until ctx is done, then flushes once
// more.
func (s *Store) Run(ctx context.Context, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.Flush(); err != nil {
				logger.Error("Flushing save states failed", log.Err(err))
			}
			return
		case <-ticker.C:
			if !s.Dirty() {
				continue
			}
			if err := s.Flush(); err != nil {
				logger.Warn("Flushing save states failed", log.Err(err))
			}
		}
	}
}
