package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/okulov/classify-console/internal/core/domain"
)

func TestHistoryRepositoryRecordSummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewHistoryRepository(db)
	summary := domain.JobSummary{
		JobID:         "job-42",
		Outcome:       domain.JobDone,
		Successful:    3,
		Failed:        0,
		Elapsed:       90 * time.Second,
		AvgPerProduct: 30 * time.Second,
		ProviderUse:   map[domain.ProviderKey]int{domain.ProviderGroq: 2, domain.ProviderGemini: 1},
		Switches:      1,
		FinishedAt:    time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO job_history").
		WithArgs(
			"job-42",
			string(domain.JobDone),
			3,
			0,
			int64(90000),
			int64(30000),
			sqlmock.AnyArg(),
			1,
			summary.FinishedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.RecordSummary(context.Background(), summary); err != nil {
		t.Fatalf("RecordSummary() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHistoryRepositoryRecordSummaryNullsEmptyJobID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewHistoryRepository(db)
	finished := time.Now().UTC()

	mock.ExpectExec("INSERT INTO job_history").
		WithArgs(
			nil,
			string(domain.JobStopped),
			0,
			0,
			int64(400),
			int64(0),
			sqlmock.AnyArg(),
			0,
			finished,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	summary := domain.JobSummary{
		Outcome:    domain.JobStopped,
		Elapsed:    400 * time.Millisecond,
		FinishedAt: finished,
	}
	if err := repo.RecordSummary(context.Background(), summary); err != nil {
		t.Fatalf("RecordSummary() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHistoryRepositoryRecentSummaries(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewHistoryRepository(db)
	finished := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"job_id", "outcome", "successful", "failed", "elapsed_ms", "avg_per_product_ms", "provider_use", "switches", "finished_at",
	}).AddRow("job-7", string(domain.JobDone), 5, 1, int64(120000), int64(24000), []byte(`{"groq":4,"gemini":1}`), 2, finished)

	mock.ExpectQuery("FROM job_history").
		WithArgs(10).
		WillReturnRows(rows)

	summaries, err := repo.RecentSummaries(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentSummaries() error = %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	got := summaries[0]
	if got.JobID != "job-7" || got.Outcome != domain.JobDone {
		t.Fatalf("unexpected summary %+v", got)
	}
	if got.ProviderUse[domain.ProviderGroq] != 4 {
		t.Fatalf("expected groq count 4, got %d", got.ProviderUse[domain.ProviderGroq])
	}
	if got.Elapsed != 2*time.Minute {
		t.Fatalf("expected elapsed 2m, got %s", got.Elapsed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
