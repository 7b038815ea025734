package models

import "time"

// TimeLayout is the fixed-width UTC layout used for stored timestamps,
// so lexical order in SQL matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Action is the annotator's verdict on the LLM output of a row
type Action string

const (
	ActionAgree    Action = "agree"
	ActionDisagree Action = "disagree"
	ActionSkip     Action = "skip"
)

// Valid reports whether a is one of the accepted actions
func (a Action) Valid() bool {
	switch a {
	case ActionAgree, ActionDisagree, ActionSkip:
		return true
	}
	return false
}

// AnnotationType describes the layout of the uploaded file
type AnnotationType string

const (
	SingleTurn               AnnotationType = "single-turn"
	MultiTurn                AnnotationType = "multi-turn"
	MultiDimensionSingleTurn AnnotationType = "multi-dimension-single"
	MultiDimensionMultiTurn  AnnotationType = "multi-dimension-multi"
)

// IsSingleTurn reports whether rows carry a single question/answer exchange
func (t AnnotationType) IsSingleTurn() bool {
	return t == SingleTurn || t == MultiDimensionSingleTurn
}

// EvaluationType describes how the LLM output was judged
type EvaluationType string

const (
	RuleBased  EvaluationType = "rule-based"
	Comparison EvaluationType = "comparison"
)

// Annotation is one human judgement on one row of one uploaded file,
// for one annotator, under one dimension.
//
// At most one Annotation exists per (TaskHash, CaseID, BrowserFingerprint).
// Only HumanAction, HumanJudgement, HumanReasoning and UpdatedAt change
// after the first insert.
type Annotation struct {
	ID                 string  `json:"id" db:"id"`
	TaskHash           string  `json:"task_hash" db:"task_hash"`
	FileHash           string  `json:"file_hash" db:"file_hash"`
	Filename           string  `json:"filename" db:"filename"`
	Dimension          *string `json:"dimension,omitempty" db:"dimension"`
	CaseID             int64   `json:"case_id" db:"case_id"`
	BrowserFingerprint string  `json:"browser_fingerprint" db:"browser_fingerprint"`
	AccountName        string  `json:"account_name" db:"account_name"`

	// OriginalData holds the source row as JSON text, stored verbatim
	OriginalData string `json:"original_data" db:"original_data"`

	LLMJudgement *string `json:"llm_judgement,omitempty" db:"llm_judgement"`
	LLMReasoning *string `json:"llm_reasoning,omitempty" db:"llm_reasoning"`

	HumanAction    Action  `json:"human_action" db:"human_action"`
	HumanJudgement *string `json:"human_judgement,omitempty" db:"human_judgement"`
	HumanReasoning *string `json:"human_reasoning,omitempty" db:"human_reasoning"`

	AnnotationType *string `json:"annotation_type,omitempty" db:"annotation_type"`
	EvaluationType *string `json:"evaluation_type,omitempty" db:"evaluation_type"`
	Labels         *string `json:"labels,omitempty" db:"labels"`
	Metadata       *string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"-"`
	UpdatedAt time.Time `json:"updated_at" db:"-"`
}

// SubmitRequest is the body of POST /projects/:id/annotations
type SubmitRequest struct {
	ItemID          string         `json:"itemId"`
	Action          Action         `json:"action" binding:"required"`
	HumanJudgement  *string        `json:"humanJudgement"`
	HumanReasoning  *string        `json:"humanReasoning"`
	Dimension       *string        `json:"dimension"`
	CompleteDataRow map[string]any `json:"completeDataRow"`
}

// SubmitResult is returned after a successful submission
type SubmitResult struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"projectId"`
	Status         Action    `json:"status"`
	HumanJudgement *string   `json:"humanJudgement"`
	HumanReasoning *string   `json:"humanReasoning"`
	AnnotatedAt    time.Time `json:"annotatedAt"`
}

// UploadResult describes a parsed upload
type UploadResult struct {
	FileID    string   `json:"fileId"`
	Filename  string   `json:"filename"`
	TotalRows int      `json:"totalRows"`
	Columns   []string `json:"columns"`
	IsValid   bool     `json:"isValid"`
	Errors    []string `json:"errors,omitempty"`
}
