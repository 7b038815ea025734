package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"annotation-review/internal/export"
	"annotation-review/internal/identity"
	"annotation-review/internal/models"
	"annotation-review/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configures the annotation workflow
type Options struct {
	DefaultFingerprint string
	Labels             Labels
	Extraction         ExtractionRules
}

// Annotator handles annotation business logic
type Annotator struct {
	repo   *repository.AnnotationRepository
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// ExportFile is a task's annotations ready to be streamed
type ExportFile struct {
	ContentDisposition string
	Rows               int

	taskHash string
	rows     []*models.Annotation
	logger   *zap.Logger
}

// NewAnnotator creates a new annotator service
func NewAnnotator(repo *repository.AnnotationRepository, opts Options, logger *zap.Logger) *Annotator {
	if opts.DefaultFingerprint == "" {
		opts.DefaultFingerprint = "unknown"
	}
	if len(opts.Extraction.Judgement) == 0 && len(opts.Extraction.Reasoning) == 0 {
		opts.Extraction = DefaultExtractionRules
	}
	if opts.Labels.DefaultDimension == "" {
		opts.Labels.DefaultDimension = DefaultLabels.DefaultDimension
	}
	if opts.Labels.UnnamedAnnotator == "" {
		opts.Labels.UnnamedAnnotator = DefaultLabels.UnnamedAnnotator
	}
	if opts.Labels.AnnotatorPrefix == "" {
		opts.Labels.AnnotatorPrefix = DefaultLabels.AnnotatorPrefix
	}
	if opts.Labels.PlaceholderTotal <= 0 {
		opts.Labels.PlaceholderTotal = DefaultLabels.PlaceholderTotal
	}
	return &Annotator{
		repo:   repo,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Submit records one annotator's judgement on one row. A repeat
// submission for the same task, case and fingerprint replaces the human
// judgement and keeps everything else from the first submission.
func (a *Annotator) Submit(ctx context.Context, projectID, fingerprint string, req *models.SubmitRequest) (*models.SubmitResult, error) {
	if req.CompleteDataRow == nil {
		return nil, invalid("Missing completeDataRow")
	}
	if !req.Action.Valid() {
		return nil, invalid(fmt.Sprintf("Invalid action %q: must be one of agree, disagree, skip", req.Action))
	}

	row := req.CompleteDataRow
	fileHash := stringField(row, "file_hash")
	filename := stringField(row, "filename")
	accountName := strings.TrimSpace(stringField(row, "account_name"))
	rawCaseID, hasCaseID := row["case_id"]
	if rawCaseID == nil {
		hasCaseID = false
	}

	var missing []string
	if fileHash == "" {
		missing = append(missing, "file_hash")
	}
	if filename == "" {
		missing = append(missing, "filename")
	}
	if !hasCaseID {
		missing = append(missing, "case_id")
	}
	if accountName == "" {
		missing = append(missing, "account_name")
	}
	if len(missing) > 0 {
		a.logger.Warn("Annotation submission missing fields", zap.Strings("missing", missing))
		return nil, missingFields(missing)
	}

	caseID, err := parseCaseID(rawCaseID)
	if err != nil {
		return nil, err
	}

	original := map[string]any{}
	if v, ok := row["original_data"]; ok && v != nil {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, invalid("original_data must be an object")
		}
		original = m
	}
	originalJSON, err := encodeJSON(original)
	if err != nil {
		return nil, invalid(fmt.Sprintf("original_data is not serializable: %v", err))
	}

	var dimension *string
	if req.Dimension != nil && *req.Dimension != "" {
		dimension = req.Dimension
	}
	if fingerprint == "" {
		fingerprint = a.opts.DefaultFingerprint
	}

	llmJudgement, llmReasoning := a.opts.Extraction.Extract(original)
	now := a.now()

	ann := &models.Annotation{
		ID:                 uuid.New().String(),
		TaskHash:           identity.TaskHash(fileHash, deref(dimension)),
		FileHash:           fileHash,
		Filename:           filename,
		Dimension:          dimension,
		CaseID:             caseID,
		BrowserFingerprint: fingerprint,
		AccountName:        accountName,
		OriginalData:       originalJSON,
		LLMJudgement:       llmJudgement,
		LLMReasoning:       llmReasoning,
		HumanAction:        req.Action,
		HumanJudgement:     req.HumanJudgement,
		HumanReasoning:     req.HumanReasoning,
		AnnotationType:     optionalString(row, "annotation_type"),
		EvaluationType:     optionalString(row, "evaluation_type"),
		Labels:             optionalJSON(row, "labels"),
		Metadata:           optionalJSON(row, "metadata"),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	storedID, err := a.repo.Upsert(ctx, ann)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Annotation submitted",
		zap.String("id", storedID),
		zap.String("task_hash", ann.TaskHash),
		zap.Int64("case_id", caseID),
		zap.String("action", string(req.Action)))

	return &models.SubmitResult{
		ID:             storedID,
		ProjectID:      projectID,
		Status:         req.Action,
		HumanJudgement: req.HumanJudgement,
		HumanReasoning: req.HumanReasoning,
		AnnotatedAt:    now,
	}, nil
}

// Dimensions lists the dimensions annotated for a file
func (a *Annotator) Dimensions(ctx context.Context, fileHash string) (*models.FileDimensions, error) {
	rows, err := a.repo.Dimensions(ctx, fileHash)
	if err != nil {
		return nil, err
	}
	return BuildDimensions(fileHash, rows, a.opts.Labels), nil
}

// Stats aggregates a file, narrowed to dimension when it is non-empty
func (a *Annotator) Stats(ctx context.Context, fileHash, dimension string) (*models.AnnotationStats, error) {
	snapshot, err := a.repo.Stats(ctx, fileHash, dimension)
	if err != nil {
		return nil, err
	}
	return BuildStats(snapshot, a.opts.Labels), nil
}

// Progress reports annotation progress for the task of (fileHash,
// dimension), narrowed to one annotator when fingerprint is non-empty.
func (a *Annotator) Progress(ctx context.Context, fileHash, dimension, fingerprint string) (*models.Progress, error) {
	taskHash := identity.TaskHash(fileHash, dimension)
	snapshot, err := a.repo.Progress(ctx, taskHash, fingerprint)
	if err != nil {
		return nil, err
	}
	return BuildProgress(snapshot, a.opts.Labels), nil
}

// ExportCSV loads every annotation of the task of (fileHash, dimension)
// for streaming. It returns ErrNotFound when the task has no annotations.
func (a *Annotator) ExportCSV(ctx context.Context, fileHash, dimension string) (*ExportFile, error) {
	taskHash := identity.TaskHash(fileHash, dimension)
	rows, err := a.repo.ListByTask(ctx, taskHash)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no annotations found for this task: %w", ErrNotFound)
	}

	return &ExportFile{
		ContentDisposition: export.ContentDisposition(fileHash, dimension),
		Rows:               len(rows),
		taskHash:           taskHash,
		rows:               rows,
		logger:             a.logger,
	}, nil
}

// Stream writes the export as CSV into w
func (f *ExportFile) Stream(w io.Writer) error {
	result, err := export.WriteCSV(w, f.rows)
	if err != nil {
		return fmt.Errorf("failed to render export: %w", err)
	}
	for _, id := range result.MalformedIDs {
		f.logger.Warn("Could not parse original_data, exporting it empty", zap.String("id", id))
	}

	f.logger.Info("Exported annotations",
		zap.String("task_hash", f.taskHash),
		zap.Int("rows", result.Rows))
	return nil
}

func stringField(row map[string]any, key string) string {
	s, _ := row[key].(string)
	return s
}

func optionalString(row map[string]any, key string) *string {
	if s := stringField(row, key); s != "" {
		return &s
	}
	return nil
}

// optionalJSON encodes row[key] unless it is absent or empty
func optionalJSON(row map[string]any, key string) *string {
	v, ok := row[key]
	if !ok || isEmpty(v) {
		return nil
	}
	s, err := encodeJSON(v)
	if err != nil {
		return nil
	}
	return &s
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	case bool:
		return !val
	case float64:
		return val == 0
	}
	return false
}

func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// MaxCaseID bounds case ids so that max(case_id)+1 always fits an int32
const MaxCaseID = math.MaxInt32 - 1

// parseCaseID accepts JSON numbers and numeric strings holding an integer
// in [0, MaxCaseID].
func parseCaseID(v any) (int64, error) {
	errInvalid := invalid(fmt.Sprintf("case_id must be a non-negative integer no greater than %d", MaxCaseID))

	var id int64
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) || val > MaxCaseID {
			return 0, errInvalid
		}
		id = int64(val)
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return 0, errInvalid
		}
		id = n
	case int:
		id = int64(val)
	case int64:
		id = val
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, errInvalid
		}
		id = n
	default:
		return 0, errInvalid
	}

	if id < 0 || id > MaxCaseID {
		return 0, errInvalid
	}
	return id, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
