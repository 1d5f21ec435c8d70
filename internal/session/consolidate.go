package session

// KeepCount computes how many trailing messages survive consolidation.
// archiveAll forces everything to be promoted (keepCount=0); otherwise it is
// half the memory window, clamped to at least 1 when the window is smaller
// than 2 (spec.md §9 open question).
func KeepCount(memoryWindow int, archiveAll bool) int {
	if archiveAll {
		return 0
	}
	keep := memoryWindow / 2
	if keep < 1 {
		keep = 1
	}
	return keep
}

// LongTermWriter is the append-only sink consolidated messages are promoted
// into (internal/memory.Store.AppendHistory).
type LongTermWriter interface {
	AppendHistory(sessionKey string, messages []Message) error
}

// Consolidate promotes s.Messages[LastConsolidated : len-keepCount) into w
// and advances LastConsolidated. It is a no-op if there is nothing to
// promote. Triggered lazily at the start of each user turn when the session
// exceeds memoryWindow (spec.md §4.6).
func Consolidate(s *Session, w LongTermWriter, memoryWindow int) error {
	keep := KeepCount(memoryWindow, false)
	end := len(s.Messages) - keep
	if end <= s.LastConsolidated {
		return nil
	}

	promoted := s.Messages[s.LastConsolidated:end]
	if err := w.AppendHistory(s.Key, promoted); err != nil {
		return err
	}
	s.LastConsolidated = end
	return nil
}

// NeedsConsolidation reports whether s has grown past memoryWindow and
// should be consolidated before building the next turn's context.
func NeedsConsolidation(s *Session, memoryWindow int) bool {
	return len(s.Messages) > memoryWindow
}
