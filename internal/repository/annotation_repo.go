package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"annotation-review/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// AnnotationRepository handles annotation storage
type AnnotationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// DimensionRow is a raw per-dimension aggregate for a file
type DimensionRow struct {
	Dimension       string `db:"dimension"`
	AnnotationCount int    `db:"annotation_count"`
	FirstAnnotation string `db:"first_annotation"`
	LastAnnotation  string `db:"last_annotation"`
}

// StatsTotals holds action counts over a file or file/dimension scope
type StatsTotals struct {
	TotalAnnotations int `db:"total_annotations"`
	DistinctCases    int `db:"distinct_cases"`
	Agreed           int `db:"agreed"`
	Disagreed        int `db:"disagreed"`
	Skipped          int `db:"skipped"`
}

// AnnotatorCounts holds action counts for one (fingerprint, account) pair
type AnnotatorCounts struct {
	Fingerprint string `db:"browser_fingerprint"`
	AccountName string `db:"account_name"`
	Total       int    `db:"total"`
	Agree       int    `db:"agree"`
	Disagree    int    `db:"disagree"`
	Skip        int    `db:"skip"`
}

// StatsSnapshot is read in a single transaction
type StatsSnapshot struct {
	Totals     StatsTotals
	Annotators []AnnotatorCounts
}

// ProgressSnapshot is read in a single transaction
type ProgressSnapshot struct {
	CaseIDs   []int64
	MaxCaseID sql.NullInt64
}

type annotationRow struct {
	models.Annotation
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

// NewAnnotationRepository opens the database at dbPath, applies migrations
// and returns a repository over it.
func NewAnnotationRepository(dbPath string, logger *zap.Logger) (*AnnotationRepository, error) {
	db, err := OpenDatabase(dbPath, logger)
	if err != nil {
		return nil, err
	}

	if err := MigrateDB(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Annotation repository initialized", zap.String("db_path", dbPath))

	return &AnnotationRepository{db: db, logger: logger}, nil
}

// Upsert inserts ann, or when a row already exists for
// (task_hash, case_id, browser_fingerprint) overwrites only the human
// judgement fields and updated_at. It returns the id of the stored row,
// which is the original id on the update path.
func (r *AnnotationRepository) Upsert(ctx context.Context, ann *models.Annotation) (string, error) {
	query := `
		INSERT INTO annotations (
			id, task_hash, file_hash, filename, dimension, case_id,
			browser_fingerprint, account_name, original_data,
			llm_judgement, llm_reasoning, human_action,
			human_judgement, human_reasoning, annotation_type,
			evaluation_type, labels, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_hash, case_id, browser_fingerprint) DO UPDATE SET
			human_action = excluded.human_action,
			human_judgement = excluded.human_judgement,
			human_reasoning = excluded.human_reasoning,
			updated_at = excluded.updated_at
		RETURNING id
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var storedID string
	err = tx.QueryRowxContext(ctx, query,
		ann.ID,
		ann.TaskHash,
		ann.FileHash,
		ann.Filename,
		ann.Dimension,
		ann.CaseID,
		ann.BrowserFingerprint,
		ann.AccountName,
		ann.OriginalData,
		ann.LLMJudgement,
		ann.LLMReasoning,
		ann.HumanAction,
		ann.HumanJudgement,
		ann.HumanReasoning,
		ann.AnnotationType,
		ann.EvaluationType,
		ann.Labels,
		ann.Metadata,
		formatTime(ann.CreatedAt),
		formatTime(ann.UpdatedAt),
	).Scan(&storedID)
	if err != nil {
		return "", fmt.Errorf("failed to save annotation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit annotation: %w", err)
	}

	return storedID, nil
}

// Dimensions returns the distinct dimensions annotated for a file, by
// descending annotation count then by name. An absent dimension is
// reported as the empty string.
func (r *AnnotationRepository) Dimensions(ctx context.Context, fileHash string) ([]DimensionRow, error) {
	query := `
		SELECT
			COALESCE(dimension, '') AS dimension,
			COUNT(*) AS annotation_count,
			MIN(created_at) AS first_annotation,
			MAX(created_at) AS last_annotation
		FROM annotations
		WHERE file_hash = ?
		GROUP BY COALESCE(dimension, '')
		ORDER BY annotation_count DESC, dimension
	`

	var rows []DimensionRow
	if err := r.db.SelectContext(ctx, &rows, query, fileHash); err != nil {
		return nil, fmt.Errorf("failed to query dimensions: %w", err)
	}
	return rows, nil
}

// Stats returns action counts for a file, narrowed to one dimension when
// dimension is non-empty, plus the per-annotator breakdown ordered by total.
func (r *AnnotationRepository) Stats(ctx context.Context, fileHash, dimension string) (*StatsSnapshot, error) {
	where := "WHERE file_hash = ?"
	args := []any{fileHash}
	if dimension != "" {
		where += " AND dimension = ?"
		args = append(args, dimension)
	}

	totalsQuery := `
		SELECT
			COUNT(*) AS total_annotations,
			COUNT(DISTINCT case_id) AS distinct_cases,
			COALESCE(SUM(CASE WHEN human_action = 'agree' THEN 1 ELSE 0 END), 0) AS agreed,
			COALESCE(SUM(CASE WHEN human_action = 'disagree' THEN 1 ELSE 0 END), 0) AS disagreed,
			COALESCE(SUM(CASE WHEN human_action = 'skip' THEN 1 ELSE 0 END), 0) AS skipped
		FROM annotations
		` + where

	annotatorQuery := `
		SELECT
			browser_fingerprint,
			COALESCE(account_name, '') AS account_name,
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN human_action = 'agree' THEN 1 ELSE 0 END), 0) AS agree,
			COALESCE(SUM(CASE WHEN human_action = 'disagree' THEN 1 ELSE 0 END), 0) AS disagree,
			COALESCE(SUM(CASE WHEN human_action = 'skip' THEN 1 ELSE 0 END), 0) AS skip
		FROM annotations
		` + where + `
		GROUP BY browser_fingerprint, account_name
		ORDER BY total DESC, browser_fingerprint, account_name
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	snapshot := &StatsSnapshot{}
	if err := tx.GetContext(ctx, &snapshot.Totals, totalsQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	if err := tx.SelectContext(ctx, &snapshot.Annotators, annotatorQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to query annotator stats: %w", err)
	}

	return snapshot, tx.Commit()
}

// Progress returns the sorted distinct case ids annotated for a task,
// narrowed to one annotator when fingerprint is non-empty, and the highest
// case id annotated by anyone for the task.
func (r *AnnotationRepository) Progress(ctx context.Context, taskHash, fingerprint string) (*ProgressSnapshot, error) {
	caseQuery := `SELECT DISTINCT case_id FROM annotations WHERE task_hash = ?`
	args := []any{taskHash}
	if fingerprint != "" {
		caseQuery += ` AND browser_fingerprint = ?`
		args = append(args, fingerprint)
	}
	caseQuery += ` ORDER BY case_id`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	snapshot := &ProgressSnapshot{CaseIDs: []int64{}}
	if err := tx.SelectContext(ctx, &snapshot.CaseIDs, caseQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to query annotated cases: %w", err)
	}

	err = tx.GetContext(ctx, &snapshot.MaxCaseID,
		`SELECT MAX(case_id) FROM annotations WHERE task_hash = ?`, taskHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query max case id: %w", err)
	}

	return snapshot, tx.Commit()
}

// ListByTask returns every annotation of a task ordered by case id then
// creation time.
func (r *AnnotationRepository) ListByTask(ctx context.Context, taskHash string) ([]*models.Annotation, error) {
	query := `
		SELECT
			id, task_hash, file_hash, filename, dimension, case_id,
			browser_fingerprint, account_name, original_data,
			llm_judgement, llm_reasoning, human_action,
			human_judgement, human_reasoning, annotation_type,
			evaluation_type, labels, metadata, created_at, updated_at
		FROM annotations
		WHERE task_hash = ?
		ORDER BY case_id, created_at
	`

	var rows []annotationRow
	if err := r.db.SelectContext(ctx, &rows, query, taskHash); err != nil {
		return nil, fmt.Errorf("failed to query annotations: %w", err)
	}

	annotations := make([]*models.Annotation, 0, len(rows))
	for i := range rows {
		ann := rows[i].Annotation
		ann.CreatedAt = r.parseTime(rows[i].CreatedAt, ann.ID)
		ann.UpdatedAt = r.parseTime(rows[i].UpdatedAt, ann.ID)
		annotations = append(annotations, &ann)
	}

	return annotations, nil
}

// Close closes the database connection
func (r *AnnotationRepository) Close() error {
	return r.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(models.TimeLayout)
}

// Rows written by older deployments may carry naive ISO timestamps.
var timeLayouts = []string{
	models.TimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

func (r *AnnotationRepository) parseTime(value, id string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	r.logger.Warn("Unparseable timestamp", zap.String("id", id), zap.String("value", value))
	return time.Time{}
}
