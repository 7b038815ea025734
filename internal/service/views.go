package service

import (
	"math"

	"annotation-review/internal/models"
	"annotation-review/internal/repository"
)

// Labels used when rendering aggregates
type Labels struct {
	DefaultDimension string
	UnnamedAnnotator string
	AnnotatorPrefix  string
	PlaceholderTotal int
}

// DefaultLabels are used for any label left unset
var DefaultLabels = Labels{
	DefaultDimension: "default dimension",
	UnnamedAnnotator: "unnamed annotator",
	AnnotatorPrefix:  "annotator-",
	PlaceholderTotal: 100,
}

// BuildDimensions maps raw dimension rows for display. An empty stored
// dimension is shown as the default dimension label.
func BuildDimensions(fileHash string, rows []repository.DimensionRow, labels Labels) *models.FileDimensions {
	dims := make([]models.DimensionSummary, 0, len(rows))
	for _, row := range rows {
		name := row.Dimension
		if name == "" {
			name = labels.DefaultDimension
		}
		dims = append(dims, models.DimensionSummary{
			Name:            name,
			AnnotationCount: row.AnnotationCount,
			FirstAnnotation: row.FirstAnnotation,
			LastAnnotation:  row.LastAnnotation,
		})
	}
	return &models.FileDimensions{
		FileHash:        fileHash,
		Dimensions:      dims,
		TotalDimensions: len(dims),
	}
}

// BuildStats turns a stats snapshot into the public aggregate. The
// agreement rate is agreed/total annotations as a percentage rounded to
// two decimals, and is 0 when nothing has been annotated.
func BuildStats(snapshot *repository.StatsSnapshot, labels Labels) *models.AnnotationStats {
	stats := &models.AnnotationStats{ByAnnotator: []models.AnnotatorStats{}}
	totals := snapshot.Totals
	if totals.TotalAnnotations == 0 {
		return stats
	}

	stats.Total = totals.DistinctCases
	stats.Completed = totals.TotalAnnotations
	stats.Agreed = totals.Agreed
	stats.Disagreed = totals.Disagreed
	stats.Skipped = totals.Skipped
	stats.AgreementRate = percent(totals.Agreed, totals.TotalAnnotations)

	for _, a := range snapshot.Annotators {
		account, name := a.AccountName, a.AccountName
		if account == "" {
			account = labels.UnnamedAnnotator
			name = labels.AnnotatorPrefix + prefix(a.Fingerprint, 8)
		}
		stats.ByAnnotator = append(stats.ByAnnotator, models.AnnotatorStats{
			Fingerprint: a.Fingerprint,
			Account:     account,
			Name:        name,
			Total:       a.Total,
			Agree:       a.Agree,
			Disagree:    a.Disagree,
			Skip:        a.Skip,
		})
	}
	return stats
}

// BuildProgress estimates progress for a task. The store does not track
// how many rows the uploaded file had, so the total is max(case_id)+1, or
// the placeholder when nothing has been annotated yet.
func BuildProgress(snapshot *repository.ProgressSnapshot, labels Labels) *models.Progress {
	caseIDs := snapshot.CaseIDs
	if caseIDs == nil {
		caseIDs = []int64{}
	}

	total := labels.PlaceholderTotal
	if snapshot.MaxCaseID.Valid {
		total = rowsThrough(snapshot.MaxCaseID.Int64)
	}

	return &models.Progress{
		TotalRows:        total,
		AnnotatedRows:    len(caseIDs),
		AnnotatedCaseIDs: caseIDs,
		Progress:         percent(len(caseIDs), total),
	}
}

// rowsThrough is maxCaseID+1, clamped to [1, MaxCaseID+1] for ids stored
// before case_id was bounded.
func rowsThrough(maxCaseID int64) int {
	switch {
	case maxCaseID < 0:
		return 1
	case maxCaseID >= MaxCaseID:
		return MaxCaseID + 1
	}
	return int(maxCaseID) + 1
}

func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*100*100) / 100
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
