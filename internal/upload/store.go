// Package upload holds uploaded source documents for a bounded retention
// window. A handle is redeemable at most once: Take removes the record, and
// the removal is not rolled back if a downstream step fails. Callers that
// lose the bytes must re-upload.
package upload

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnsupportedFormat is returned for non-PDF uploads.
	ErrUnsupportedFormat = errors.New("unsupported format: only PDF is accepted")
	// ErrTooLarge is returned when the upload exceeds the size limit.
	ErrTooLarge = errors.New("file exceeds the maximum allowed size")
	// ErrTooManyPages is returned when the document exceeds the page limit.
	ErrTooManyPages = errors.New("document exceeds the maximum allowed pages")
	// ErrNotFound is returned when a handle is unknown, expired, or consumed.
	ErrNotFound = errors.New("upload not found")
)

type record struct {
	data      []byte
	expiresAt time.Time
}

// Store is an in-memory single-use document store with TTL expiry.
type Store struct {
	mu       sync.Mutex
	records  map[string]*record
	ttl      time.Duration
	maxBytes int64
	maxPages int
	stop     chan struct{}
}

// NewStore creates a store and starts its expiry janitor.
func NewStore(ttl time.Duration, maxBytes int64, maxPages int) *Store {
	s := &Store{
		records:  make(map[string]*record),
		ttl:      ttl,
		maxBytes: maxBytes,
		maxPages: maxPages,
		stop:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Close stops the expiry janitor.
func (s *Store) Close() {
	close(s.stop)
}

// Put validates and stores a document, returning its opaque handle.
func (s *Store) Put(data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", ErrUnsupportedFormat
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") || !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", ErrUnsupportedFormat
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}
	if countPages(data) > s.maxPages {
		return "", ErrTooManyPages
	}

	handle := uuid.New().String()
	s.mu.Lock()
	s.records[handle] = &record{data: data, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return handle, nil
}

// Take returns the stored bytes and invalidates the handle. A second Take for
// the same handle returns ErrNotFound, as does an expired or unknown handle.
func (s *Store) Take(handle string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[handle]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.records, handle)
	if time.Now().After(rec.expiresAt) {
		return nil, ErrNotFound
	}
	return rec.data, nil
}

// Len reports how many records are currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for handle, rec := range s.records {
				if now.After(rec.expiresAt) {
					delete(s.records, handle)
				}
			}
			s.mu.Unlock()
		}
	}
}

// countPages counts page objects in the raw PDF. This reads the object
// markers directly rather than pulling in a full PDF parser; it matches how
// every mainstream writer emits page dictionaries.
func countPages(data []byte) int {
	pages := bytes.Count(data, []byte("/Type /Page")) + bytes.Count(data, []byte("/Type/Page"))
	// "/Type /Pages" (the page tree node) also matches the prefix above.
	pages -= bytes.Count(data, []byte("/Type /Pages")) + bytes.Count(data, []byte("/Type/Pages"))
	if pages < 1 {
		return 1
	}
	return pages
}
