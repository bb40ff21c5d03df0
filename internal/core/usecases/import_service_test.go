package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/geosurvey/internal/core/domain"
	"github.com/samirrijal/geosurvey/internal/core/usecases"
)

var projectP1 = domain.Project{ID: activeP1.ID, Code: "P1", Name: "Lake survey", UTMZone: 16, UTMBand: "Q"}

func TestImportService_Import(t *testing.T) {
	locs := &mockLocationRepo{}
	cache := newMockCache()
	pub := &mockPublisher{}
	svc := usecases.NewImportService(projectRepoWith(projectP1), locs, nil, cache, pub)

	res, err := svc.Import(context.Background(), projectP1.ID, []domain.ImportCandidate{
		candidate(2, "P1", "BH-01", "500100", "1700000"),
		candidate(3, "P1", "BH-02", "500200", "1700100"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, projectP1.ID, res.ProjectID)

	assert.Contains(t, cache.deleted, "locations:map:"+projectP1.ID)
	require.Len(t, pub.imported, 1)
	assert.Equal(t, 2, pub.imported[0].Inserted)
	assert.False(t, svc.Processing(projectP1.ID))
}

func TestImportService_RejectionPublishesNothing(t *testing.T) {
	locs := &mockLocationRepo{}
	cache := newMockCache()
	pub := &mockPublisher{}
	svc := usecases.NewImportService(projectRepoWith(projectP1), locs, nil, cache, pub)

	_, err := svc.Import(context.Background(), projectP1.ID, []domain.ImportCandidate{
		candidate(2, "P2", "BH-01", "500100", "1700000"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidProjectCode)
	assert.Empty(t, locs.writes())
	assert.Empty(t, cache.deleted)
	assert.Empty(t, pub.imported)
}

func TestImportService_UnknownProject(t *testing.T) {
	svc := usecases.NewImportService(projectRepoWith(projectP1), &mockLocationRepo{}, nil, nil, nil)
	_, err := svc.Import(context.Background(), "missing", []domain.ImportCandidate{candidate(2, "P1", "a", "1", "2")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestImportService_PipelinePerProject(t *testing.T) {
	svc := usecases.NewImportService(projectRepoWith(projectP1), &mockLocationRepo{}, nil, nil, nil)
	a := svc.Pipeline("a")
	assert.Same(t, a, svc.Pipeline("a"))
	assert.NotSame(t, a, svc.Pipeline("b"))
}

func TestImportService_ImportFile(t *testing.T) {
	reader := &mockReader{candidates: []domain.ImportCandidate{candidate(2, "P1", "BH-01", "500100", "1700000")}}
	locs := &mockLocationRepo{}
	svc := usecases.NewImportService(projectRepoWith(projectP1), locs, reader, nil, nil)

	res, err := svc.ImportFile(context.Background(), projectP1.ID, "points.csv", []byte("ignored"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	require.Len(t, locs.writes(), 1)
}

func TestImportService_ImportFileParseError(t *testing.T) {
	parseErr := errors.New("bad header")
	svc := usecases.NewImportService(projectRepoWith(projectP1), &mockLocationRepo{}, &mockReader{err: parseErr}, nil, nil)

	_, err := svc.ImportFile(context.Background(), projectP1.ID, "points.csv", nil)
	assert.ErrorIs(t, err, parseErr)
}

func TestImportService_Preview(t *testing.T) {
	reader := &mockReader{candidates: []domain.ImportCandidate{
		candidate(2, "P1", "BH-01", "500100", "1700000"),
		candidate(3, "P1", "BH-02", "oops", "1700000"),
	}}
	locs := &mockLocationRepo{}
	svc := usecases.NewImportService(projectRepoWith(projectP1), locs, reader, nil, nil)

	preview, err := svc.Preview(context.Background(), projectP1.ID, "points.csv", nil)
	require.NoError(t, err)
	assert.False(t, preview.Valid)
	require.NotNil(t, preview.Error)
	assert.Equal(t, 3, preview.Error.Row)
	assert.Equal(t, "x", preview.Error.Field)
	assert.Len(t, preview.Candidates, 2)
	assert.Empty(t, locs.writes())
}
