package domain

import "testing"

func TestRecordSuccessCounts(t *testing.T) {
	stats := NewModelStats()
	stats.RecordSuccess(ProviderGroq)
	stats.RecordSuccess(ProviderGroq)
	stats.RecordSuccess(ProviderGemini)

	if got := stats.Count(ProviderGroq); got != 2 {
		t.Fatalf("groq count = %d, want 2", got)
	}
	if got := stats.Count(ProviderGemini); got != 1 {
		t.Fatalf("gemini count = %d, want 1", got)
	}
	if got := stats.Total(); got != 3 {
		t.Fatalf("total = %d, want 3", got)
	}
}

func TestMergeServerNeverDecreases(t *testing.T) {
	stats := NewModelStats()
	stats.RecordSuccess(ProviderGroq)
	stats.RecordSuccess(ProviderGroq)
	stats.RecordSuccess(ProviderGroq)

	// Server snapshot lags the local count: local wins.
	stats.MergeServer(map[ProviderKey]int{ProviderGroq: 1, ProviderCerebras: 4})
	if got := stats.Count(ProviderGroq); got != 3 {
		t.Fatalf("groq count dropped to %d after stale merge", got)
	}
	if got := stats.Count(ProviderCerebras); got != 4 {
		t.Fatalf("cerebras count = %d, want 4", got)
	}

	// Server ahead: server wins.
	stats.MergeServer(map[ProviderKey]int{ProviderGroq: 7})
	if got := stats.Count(ProviderGroq); got != 7 {
		t.Fatalf("groq count = %d, want 7", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	stats := NewModelStats()
	stats.RecordSuccess(ProviderGroq)

	snapshot := stats.Snapshot()
	snapshot[ProviderGroq] = 99
	if got := stats.Count(ProviderGroq); got != 1 {
		t.Fatalf("mutating the snapshot leaked into the stats: %d", got)
	}
}

func TestResetClearsEverything(t *testing.T) {
	stats := NewModelStats()
	stats.RecordSuccess(ProviderGroq)
	stats.RecordSwitch()
	stats.Reset()

	if stats.Total() != 0 || stats.Switches() != 0 {
		t.Fatalf("reset left total=%d switches=%d", stats.Total(), stats.Switches())
	}
}
