// Package memory implements the append-only long-term memory store that
// session consolidation promotes messages into, grounded on memory.hpp.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/attoclaw/gateway/internal/session"
)

const (
	longTermFile = "MEMORY.md"
	historyFile  = "HISTORY.md"
)

// Store is a workspace-rooted, append-only long-term memory: a freeform
// long-term-memory document plus a history log that session consolidation
// appends to.
type Store struct {
	mu        sync.Mutex
	workspace string
}

// NewStore roots a Store at workspace, creating the directory if absent.
func NewStore(workspace string) (*Store, error) {
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Store{workspace: workspace}, nil
}

// ReadLongTerm returns the freeform long-term memory document, or "" if
// none has been written yet.
func (s *Store) ReadLongTerm() string {
	return readOrEmpty(filepath.Join(s.workspace, longTermFile))
}

// WriteLongTerm overwrites the long-term memory document.
func (s *Store) WriteLongTerm(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.WriteFile(filepath.Join(s.workspace, longTermFile), []byte(content), 0o644)
}

// AppendHistory appends consolidated session messages to the append-only
// history log, implementing session.LongTermWriter.
func (s *Store) AppendHistory(sessionKey string, messages []session.Message) error {
	if len(messages) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.workspace, historyFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "\n## %s — %s\n\n", sessionKey, time.Now().UTC().Format(time.RFC3339))
	for _, m := range messages {
		fmt.Fprintf(&b, "**%s**: %s\n\n", m.Role, m.Content)
	}
	_, err = f.WriteString(b.String())
	return err
}

// MemoryContext returns the block the context builder splices into the
// system prompt: the long-term document if non-empty.
func (s *Store) MemoryContext() string {
	content := s.ReadLongTerm()
	if strings.TrimSpace(content) == "" {
		return ""
	}
	return "# Long-term memory\n\n" + content
}

func readOrEmpty(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(b)
}
