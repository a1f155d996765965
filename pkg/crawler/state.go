package crawler

import (
	"sort"
	"sync"
)

// runState accumulates the URL sets one crawl run shares between its tasks
type runState struct {
	mu      sync.Mutex
	skipped map[string][]string
	seen    map[string]map[string]struct{}
	fetched map[string]struct{}
}

func newRunState() *runState {
	return &runState{
		skipped: make(map[string][]string),
		seen:    make(map[string]map[string]struct{}),
		fetched: make(map[string]struct{}),
	}
}

func (s *runState) skip(reason, rawURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls, ok := s.seen[reason]
	if !ok {
		urls = make(map[string]struct{})
		s.seen[reason] = urls
	}
	if _, dup := urls[rawURL]; dup {
		return
	}
	urls[rawURL] = struct{}{}
	s.skipped[reason] = append(s.skipped[reason], rawURL)
}

func (s *runState) markFetched(rawURL string) {
	s.mu.Lock()
	s.fetched[rawURL] = struct{}{}
	s.mu.Unlock()
}

func (s *runState) fetchedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fetched)
}

// skippedByReason returns a copy of the skip sets, in first-seen order per reason
func (s *runState) skippedByReason() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]string, len(s.skipped))
	for reason, urls := range s.skipped {
		out[reason] = append([]string(nil), urls...)
	}
	return out
}

func (s *runState) skippedTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, urls := range s.skipped {
		n += len(urls)
	}
	return n
}

func sortedReasons(m map[string][]string) []string {
	reasons := make([]string, 0, len(m))
	for r := range m {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	return reasons
}
