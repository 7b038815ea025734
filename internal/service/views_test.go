package service

import (
	"database/sql"
	"math"
	"testing"

	"annotation-review/internal/models"
	"annotation-review/internal/repository"

	"github.com/google/go-cmp/cmp"
)

func TestBuildStats_Empty(t *testing.T) {
	got := BuildStats(&repository.StatsSnapshot{}, DefaultLabels)

	want := &models.AnnotationStats{ByAnnotator: []models.AnnotatorStats{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("empty stats mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildStats_RateAndLabels(t *testing.T) {
	snapshot := &repository.StatsSnapshot{
		Totals: repository.StatsTotals{TotalAnnotations: 3, DistinctCases: 2, Agreed: 1, Disagreed: 1, Skipped: 1},
		Annotators: []repository.AnnotatorCounts{
			{Fingerprint: "f1", AccountName: "Alice", Total: 2, Agree: 1, Skip: 1},
			{Fingerprint: "0123456789abcdef", AccountName: "", Total: 1, Disagree: 1},
		},
	}

	got := BuildStats(snapshot, DefaultLabels)

	want := &models.AnnotationStats{
		Total:         2,
		Completed:     3,
		Agreed:        1,
		Disagreed:     1,
		Skipped:       1,
		AgreementRate: 33.33,
		ByAnnotator: []models.AnnotatorStats{
			{Fingerprint: "f1", Account: "Alice", Name: "Alice", Total: 2, Agree: 1, Skip: 1},
			{Fingerprint: "0123456789abcdef", Account: "unnamed annotator", Name: "annotator-01234567", Total: 1, Disagree: 1},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildStats_RateBounded(t *testing.T) {
	for _, agreed := range []int{0, 1, 7, 9} {
		snapshot := &repository.StatsSnapshot{
			Totals: repository.StatsTotals{TotalAnnotations: 9, DistinctCases: 9, Agreed: agreed},
		}
		rate := BuildStats(snapshot, DefaultLabels).AgreementRate
		if rate < 0 || rate > 100 {
			t.Errorf("agreement rate %v out of range for agreed=%d", rate, agreed)
		}
	}
}

func TestBuildProgress(t *testing.T) {
	tests := []struct {
		name     string
		snapshot *repository.ProgressSnapshot
		want     *models.Progress
	}{
		{
			name:     "nothing annotated uses placeholder",
			snapshot: &repository.ProgressSnapshot{},
			want:     &models.Progress{TotalRows: 100, AnnotatedRows: 0, AnnotatedCaseIDs: []int64{}, Progress: 0},
		},
		{
			name: "estimates from max case id",
			snapshot: &repository.ProgressSnapshot{
				CaseIDs:   []int64{0, 2},
				MaxCaseID: sql.NullInt64{Int64: 5, Valid: true},
			},
			want: &models.Progress{TotalRows: 6, AnnotatedRows: 2, AnnotatedCaseIDs: []int64{0, 2}, Progress: 33.33},
		},
		{
			name: "annotator with nothing yet on a started task",
			snapshot: &repository.ProgressSnapshot{
				CaseIDs:   []int64{},
				MaxCaseID: sql.NullInt64{Int64: 0, Valid: true},
			},
			want: &models.Progress{TotalRows: 1, AnnotatedRows: 0, AnnotatedCaseIDs: []int64{}, Progress: 0},
		},
		{
			name: "out of range stored id is clamped",
			snapshot: &repository.ProgressSnapshot{
				CaseIDs:   []int64{math.MaxInt64},
				MaxCaseID: sql.NullInt64{Int64: math.MaxInt64, Valid: true},
			},
			want: &models.Progress{TotalRows: MaxCaseID + 1, AnnotatedRows: 1, AnnotatedCaseIDs: []int64{math.MaxInt64}, Progress: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildProgress(tt.snapshot, DefaultLabels)
			if got.TotalRows < got.AnnotatedRows {
				t.Errorf("totalRows %d below annotatedRows %d", got.TotalRows, got.AnnotatedRows)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("progress mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildDimensions_DefaultLabel(t *testing.T) {
	rows := []repository.DimensionRow{
		{Dimension: "tone", AnnotationCount: 3, FirstAnnotation: "a", LastAnnotation: "b"},
		{Dimension: "", AnnotationCount: 1, FirstAnnotation: "c", LastAnnotation: "c"},
	}

	got := BuildDimensions("abc", rows, DefaultLabels)

	want := &models.FileDimensions{
		FileHash: "abc",
		Dimensions: []models.DimensionSummary{
			{Name: "tone", AnnotationCount: 3, FirstAnnotation: "a", LastAnnotation: "b"},
			{Name: "default dimension", AnnotationCount: 1, FirstAnnotation: "c", LastAnnotation: "c"},
		},
		TotalDimensions: 2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dimensions mismatch (-want +got):\n%s", diff)
	}
}
