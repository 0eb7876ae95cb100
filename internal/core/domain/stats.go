package domain

// ModelStats accumulates per-provider success counts for one job. Two paths
// feed the same counters: a local increment the moment a model_success frame
// names a provider, and a periodic authoritative resync from progress frames.
// Frame delivery order is not guaranteed relative to provider activity, so
// server totals merge with max() and per-provider counts never regress.
//
// ModelStats is not safe for concurrent use; the controller owns it and
// serializes access.
type ModelStats struct {
	counts   map[ProviderKey]int
	switches int
}

func NewModelStats() *ModelStats {
	return &ModelStats{counts: make(map[ProviderKey]int)}
}

// RecordSuccess applies one locally observed success for a provider.
func (s *ModelStats) RecordSuccess(provider ProviderKey) {
	s.counts[provider]++
}

// RecordSwitch notes one cascade fallback. Local-only: the server reports no
// equivalent, so this counter only ever increments.
func (s *ModelStats) RecordSwitch() {
	s.switches++
}

// MergeServer reconciles the server's cumulative per-provider counts into the
// local view: count = max(local, server) for each reported provider.
func (s *ModelStats) MergeServer(server map[ProviderKey]int) {
	for provider, reported := range server {
		if reported > s.counts[provider] {
			s.counts[provider] = reported
		}
	}
}

func (s *ModelStats) Count(provider ProviderKey) int {
	return s.counts[provider]
}

func (s *ModelStats) Switches() int {
	return s.switches
}

func (s *ModelStats) Total() int {
	total := 0
	for _, n := range s.counts {
		total += n
	}
	return total
}

// Snapshot copies the current counts, for summaries and history rows.
func (s *ModelStats) Snapshot() map[ProviderKey]int {
	out := make(map[ProviderKey]int, len(s.counts))
	for provider, n := range s.counts {
		out[provider] = n
	}
	return out
}

// Reset zeroes every counter. Called once per job start.
func (s *ModelStats) Reset() {
	s.counts = make(map[ProviderKey]int)
	s.switches = 0
}
