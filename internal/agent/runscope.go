package agent

// runScope is the RAII-style guard spec.md §4.7 step 7 and §5 describe:
// entering a turn flips task_in_progress and clears cancel_requested;
// every exit path — normal return, cancellation, or panic — flushes the
// deferred queue back to the inbound queue and resets both flags.
type runScope struct {
	loop *Loop
}

// enterRunScope flips the flags and returns a guard whose Close must run on
// every exit path (typically via defer).
func (l *Loop) enterRunScope(visionEnabled bool) *runScope {
	l.taskInProgress.Store(true)
	l.cancelRequested.Store(false)
	l.visionTool.SetEnabled(visionEnabled)
	return &runScope{loop: l}
}

// Close flushes deferred envelopes back onto the inbound queue and resets
// the turn flags. Always runs, including on panic, via defer at the call
// site.
func (s *runScope) Close() {
	for _, m := range s.loop.deferred.drain() {
		s.loop.bus.PublishInbound(m)
	}
	s.loop.cancelRequested.Store(false)
	s.loop.taskInProgress.Store(false)
	s.loop.visionTool.SetEnabled(false)
}
