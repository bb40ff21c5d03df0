package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/samirrijal/geosurvey/internal/core/domain"
	"github.com/samirrijal/geosurvey/internal/core/usecases"
)

var activeP1 = domain.ActiveProject{ID: "7d3c1a9e-0000-4000-8000-000000000001", Code: "P1"}

func candidate(row int, code, name, x, y string) domain.ImportCandidate {
	return domain.ImportCandidate{Row: row, ProjectCode: code, LocationName: name, X: x, Y: y}
}

func submit(t *testing.T, repo *mockLocationRepo, cands []domain.ImportCandidate) (int, error) {
	t.Helper()
	p := usecases.NewImportPipeline(repo)
	if err := p.Stage(cands); err != nil {
		t.Fatalf("stage: %v", err)
	}
	return p.Submit(context.Background(), activeP1)
}

func TestImportPipeline_MixedProjectCodes(t *testing.T) {
	repo := &mockLocationRepo{}
	_, err := submit(t, repo, []domain.ImportCandidate{
		candidate(2, "P1", "BH-01", "500100", "1700000"),
		candidate(3, "P2", "BH-02", "500200", "1700100"),
	})

	if !errors.Is(err, domain.ErrInvalidProjectCode) {
		t.Fatalf("err = %v, want ErrInvalidProjectCode", err)
	}
	var ie *domain.ImportError
	if !errors.As(err, &ie) || ie.Row != 3 || ie.Field != "project_code" || ie.Value != "P2" {
		t.Errorf("import error = %+v", ie)
	}
	if n := len(repo.writes()); n != 0 {
		t.Errorf("expected zero writes, got %d", n)
	}
}

func TestImportPipeline_WhitespaceNameRejectsWholeBatch(t *testing.T) {
	repo := &mockLocationRepo{}
	_, err := submit(t, repo, []domain.ImportCandidate{
		candidate(2, "P1", "BH-01", "500100", "1700000"),
		candidate(3, "P1", "  ", "500200", "1700100"),
		candidate(4, "P1", "BH-03", "500300", "1700200"),
	})

	if !errors.Is(err, domain.ErrMissingOrMalformedField) {
		t.Fatalf("err = %v, want ErrMissingOrMalformedField", err)
	}
	if n := len(repo.writes()); n != 0 {
		t.Errorf("expected zero writes, got %d", n)
	}
}

func TestImportPipeline_CommitsOneWriteStampedWithProjectID(t *testing.T) {
	repo := &mockLocationRepo{}
	var cands []domain.ImportCandidate
	for i := 0; i < 25; i++ {
		cands = append(cands, candidate(i+2, "P1", fmt.Sprintf("BH-%02d", i), "500000.5", fmt.Sprintf("%d", 1700000+i)))
	}

	n, err := submit(t, repo, cands)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 25 {
		t.Errorf("inserted = %d, want 25", n)
	}

	writes := repo.writes()
	if len(writes) != 1 {
		t.Fatalf("expected exactly one write, got %d", len(writes))
	}
	if len(writes[0]) != 25 {
		t.Fatalf("write carried %d records, want 25", len(writes[0]))
	}
	for i, rec := range writes[0] {
		if rec.ProjectID != activeP1.ID {
			t.Errorf("record %d project = %q, want %q", i, rec.ProjectID, activeP1.ID)
		}
		if rec.X != 500000.5 || rec.Y != float64(1700000+i) {
			t.Errorf("record %d coords = (%v, %v)", i, rec.X, rec.Y)
		}
	}
}

func TestImportPipeline_MalformedCoordinates(t *testing.T) {
	tests := []struct {
		name  string
		x, y  string
		field string
	}{
		{"missing x", "", "1700000", "x"},
		{"text y", "500000", "north", "y"},
		{"NaN x", "NaN", "1700000", "x"},
		{"infinite y", "500000", "+Inf", "y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockLocationRepo{}
			_, err := submit(t, repo, []domain.ImportCandidate{candidate(2, "P1", "BH-01", tt.x, tt.y)})

			var ie *domain.ImportError
			if !errors.As(err, &ie) || !errors.Is(err, domain.ErrMissingOrMalformedField) {
				t.Fatalf("err = %v", err)
			}
			if ie.Field != tt.field {
				t.Errorf("field = %q, want %q", ie.Field, tt.field)
			}
			if len(repo.writes()) != 0 {
				t.Error("expected zero writes")
			}
		})
	}
}

func TestImportPipeline_FirstFailureWins(t *testing.T) {
	repo := &mockLocationRepo{}
	_, err := submit(t, repo, []domain.ImportCandidate{
		candidate(2, "P1", "", "500100", "1700000"),
		candidate(3, "P9", "BH-02", "500200", "1700100"),
	})
	if !errors.Is(err, domain.ErrMissingOrMalformedField) {
		t.Fatalf("err = %v, want the row 2 name failure", err)
	}
}

func TestImportPipeline_RemarksAndNameTrimmed(t *testing.T) {
	repo := &mockLocationRepo{}
	c := candidate(2, "P1", "  BH-01 ", " 500100 ", "1700000")
	c.Remarks = "   "
	c2 := candidate(3, "P1", "BH-02", "500100", "1700000")
	c2.Remarks = " near road "

	if _, err := submit(t, repo, []domain.ImportCandidate{c, c2}); err != nil {
		t.Fatal(err)
	}
	recs := repo.writes()[0]
	if recs[0].Name != "BH-01" || recs[0].Remarks != nil {
		t.Errorf("record 0 = %+v", recs[0])
	}
	if recs[1].Remarks == nil || *recs[1].Remarks != "near road" {
		t.Errorf("record 1 remarks = %v", recs[1].Remarks)
	}
}

func TestImportPipeline_EmptyBatch(t *testing.T) {
	repo := &mockLocationRepo{}
	_, err := submit(t, repo, nil)
	if !errors.Is(err, domain.ErrEmptyBatch) {
		t.Fatalf("err = %v, want ErrEmptyBatch", err)
	}
	if len(repo.writes()) != 0 {
		t.Error("expected zero writes")
	}
}

func TestImportPipeline_StoreFailure(t *testing.T) {
	cause := errors.New("unique violation")
	repo := &mockLocationRepo{
		insertManyFn: func(ctx context.Context, locs []domain.NewLocation) (int, error) {
			return 0, cause
		},
	}
	p := usecases.NewImportPipeline(repo)
	_ = p.Stage([]domain.ImportCandidate{candidate(2, "P1", "BH-01", "1", "2")})

	_, err := p.Submit(context.Background(), activeP1)
	if !errors.Is(err, domain.ErrImportFailed) || !errors.Is(err, cause) {
		t.Fatalf("err = %v, want ErrImportFailed wrapping cause", err)
	}
	if len(repo.writes()) != 1 {
		t.Errorf("expected a single attempt, got %d", len(repo.writes()))
	}
	if p.Pending() != 0 || p.State() != usecases.StateIdle || p.Processing() {
		t.Errorf("pipeline not reset: pending=%d state=%v", p.Pending(), p.State())
	}
}

func TestImportPipeline_ResetsAfterRejection(t *testing.T) {
	repo := &mockLocationRepo{}
	p := usecases.NewImportPipeline(repo)
	_ = p.Stage([]domain.ImportCandidate{candidate(2, "P2", "BH-01", "1", "2")})
	if _, err := p.Submit(context.Background(), activeP1); err == nil {
		t.Fatal("expected rejection")
	}
	if p.Pending() != 0 || p.State() != usecases.StateIdle {
		t.Fatalf("pending=%d state=%v after rejection", p.Pending(), p.State())
	}

	// A fresh batch is accepted afterwards.
	if err := p.Stage([]domain.ImportCandidate{candidate(2, "P1", "BH-01", "1", "2")}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Submit(context.Background(), activeP1); err != nil {
		t.Fatal(err)
	}
}

func TestImportPipeline_RefusesConcurrentBatch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	repo := &mockLocationRepo{
		insertManyFn: func(ctx context.Context, locs []domain.NewLocation) (int, error) {
			close(started)
			<-release
			return len(locs), nil
		},
	}
	p := usecases.NewImportPipeline(repo)
	_ = p.Stage([]domain.ImportCandidate{candidate(2, "P1", "BH-01", "1", "2")})

	done := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), activeP1)
		done <- err
	}()
	<-started

	if !p.Processing() || p.State() != usecases.StateCommitting {
		t.Errorf("processing=%v state=%v during commit", p.Processing(), p.State())
	}
	if err := p.Stage([]domain.ImportCandidate{candidate(2, "P1", "BH-02", "1", "2")}); !errors.Is(err, domain.ErrImportInProgress) {
		t.Errorf("stage during commit: err = %v", err)
	}
	if _, err := p.Submit(context.Background(), activeP1); !errors.Is(err, domain.ErrImportInProgress) {
		t.Errorf("submit during commit: err = %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first batch failed: %v", err)
	}
	if p.Processing() {
		t.Error("still processing after commit")
	}
}

func TestImportPipeline_NotIdempotent(t *testing.T) {
	repo := &mockLocationRepo{}
	p := usecases.NewImportPipeline(repo)
	batch := []domain.ImportCandidate{candidate(2, "P1", "BH-01", "1", "2")}

	for i := 0; i < 2; i++ {
		if err := p.Stage(batch); err != nil {
			t.Fatal(err)
		}
		if _, err := p.Submit(context.Background(), activeP1); err != nil {
			t.Fatal(err)
		}
	}
	if len(repo.writes()) != 2 {
		t.Errorf("expected two writes for a resubmitted batch, got %d", len(repo.writes()))
	}
}

func TestImportPipeline_CommitOutlivesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writeErr error
	repo := &mockLocationRepo{insertManyFn: func(ctx context.Context, locs []domain.NewLocation) (int, error) {
		// The caller gives up while the write is in flight.
		cancel()
		writeErr = ctx.Err()
		return len(locs), nil
	}}

	p := usecases.NewImportPipeline(repo)
	if err := p.Stage([]domain.ImportCandidate{candidate(2, "P1", "BH-01", "500100", "1700000")}); err != nil {
		t.Fatalf("stage: %v", err)
	}
	n, err := p.Submit(ctx, activeP1)
	if err != nil || n != 1 {
		t.Fatalf("Submit = %d, %v", n, err)
	}
	if writeErr != nil {
		t.Errorf("write context cancelled: %v", writeErr)
	}
}
