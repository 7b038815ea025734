package models

// DimensionSummary is one dimension observed for a file
type DimensionSummary struct {
	Name            string `json:"name"`
	AnnotationCount int    `json:"annotationCount"`
	FirstAnnotation string `json:"firstAnnotation"`
	LastAnnotation  string `json:"lastAnnotation"`
}

// FileDimensions lists every dimension annotated for a file
type FileDimensions struct {
	FileHash        string             `json:"fileHash"`
	Dimensions      []DimensionSummary `json:"dimensions"`
	TotalDimensions int                `json:"totalDimensions"`
}

// AnnotatorStats is the action breakdown for one (fingerprint, account) pair
type AnnotatorStats struct {
	Fingerprint string `json:"fingerprint"`
	Account     string `json:"account"`
	Name        string `json:"name"`
	Total       int    `json:"total"`
	Agree       int    `json:"agree"`
	Disagree    int    `json:"disagree"`
	Skip        int    `json:"skip"`
}

// AnnotationStats aggregates a file, optionally narrowed to one dimension.
// Total counts distinct cases, Completed counts judgement events.
type AnnotationStats struct {
	Total         int              `json:"total"`
	Completed     int              `json:"completed"`
	Agreed        int              `json:"agreed"`
	Disagreed     int              `json:"disagreed"`
	Skipped       int              `json:"skipped"`
	AgreementRate float64          `json:"agreementRate"`
	ByAnnotator   []AnnotatorStats `json:"byAnnotator"`
}

// Progress reports how much of a task has been annotated
type Progress struct {
	TotalRows        int     `json:"totalRows"`
	AnnotatedRows    int     `json:"annotatedRows"`
	AnnotatedCaseIDs []int64 `json:"annotatedCaseIds"`
	Progress         float64 `json:"progress"`
}
