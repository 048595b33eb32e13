package listview

import "sync"

// Sequencer hands out monotonically increasing request tokens so a result is
// applied only when it belongs to the most recently issued request.
type Sequencer struct {
	mu     sync.Mutex
	latest uint64
}

// Issue reserves a new token, superseding every earlier one.
func (s *Sequencer) Issue() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	return s.latest
}

// IsLatest reports whether token is still current.
func (s *Sequencer) IsLatest(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return token == s.latest
}

// Apply runs fn only when token is current and reports whether it ran. The
// check and fn execute under the same lock so a newer Issue cannot
// interleave.
func (s *Sequencer) Apply(token uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.latest {
		return false
	}
	fn()
	return true
}
