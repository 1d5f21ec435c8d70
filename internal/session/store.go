package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/attoclaw/gateway/internal/observability"
)

// metadataLine is the first line of a session's JSONL file.
type metadataLine struct {
	Type             string `json:"_type"`
	CreatedAt        int64  `json:"created_at"`
	UpdatedAt        int64  `json:"updated_at"`
	LastConsolidated int    `json:"last_consolidated"`
}

// Store is an in-memory cache over per-key JSON-Lines files on disk.
type Store struct {
	log *observability.Logger
	dir string

	mu    sync.Mutex
	cache map[string]*Session
}

// NewStore opens (creating if absent) a session directory.
func NewStore(dir string, log *observability.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &Store{log: log, dir: dir, cache: make(map[string]*Session)}, nil
}

// sanitizeKey replaces path separators so a session key can never escape
// the session directory, mirroring session.hpp's key-sanitization.
func sanitizeKey(key string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")
	return replacer.Replace(key)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".jsonl")
}

// GetOrCreate returns the cached session for key, loading it from disk on a
// cache miss, or creating an empty one if no file exists.
func (s *Store) GetOrCreate(key string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.cache[key]; ok {
		return sess
	}

	sess, err := s.load(key)
	if err != nil {
		s.log.Warnf("session %q: load failed, starting fresh: %v", key, err)
		sess = NewSession(key)
	}
	s.cache[key] = sess
	return sess
}

// Invalidate forgets the in-memory entry so the next access reloads from
// disk.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, key)
}

// ListKeys enumerates every session with a file on disk, sorted
// alphabetically. The sanitized on-disk name is recovered verbatim since
// sanitizeKey is lossy; callers get back the sanitized form, which is
// sufficient for display and for Invalidate/re-lookup by the same key.
func (s *Store) ListKeys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), ".jsonl"))
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes a session's on-disk file and its cache entry, if any.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) load(key string) (*Session, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return NewSession(key), nil
		}
		return nil, err
	}
	defer f.Close()

	sess := &Session{Key: key}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	first := true
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			var meta metadataLine
			if err := json.Unmarshal(line, &meta); err != nil {
				return nil, fmt.Errorf("parse metadata line: %w", err)
			}
			sess.CreatedAt = meta.CreatedAt
			sess.UpdatedAt = meta.UpdatedAt
			sess.LastConsolidated = meta.LastConsolidated
			continue
		}
		var m Message
		if err := json.Unmarshal(line, &m); err != nil {
			return nil, fmt.Errorf("parse message line: %w", err)
		}
		sess.Messages = append(sess.Messages, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sess, nil
}

// Save writes the session's metadata line plus one line per message,
// replacing the whole file. Persistence failures are logged, never
// propagated as a crash (spec.md §7, error kind 8).
func (s *Store) Save(sess *Session) {
	if err := s.save(sess); err != nil {
		s.log.Errorf("session %q: save failed: %v", sess.Key, err)
	}
}

func (s *Store) save(sess *Session) error {
	tmp := s.path(sess.Key) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	meta := metadataLine{
		Type:             "metadata",
		CreatedAt:        sess.CreatedAt,
		UpdatedAt:        sess.UpdatedAt,
		LastConsolidated: sess.LastConsolidated,
	}
	if err := writeJSONLine(w, meta); err != nil {
		return err
	}
	for _, m := range sess.Messages {
		if err := writeJSONLine(w, m); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(sess.Key))
}

func writeJSONLine(w *bufio.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	return w.WriteByte('\n')
}
