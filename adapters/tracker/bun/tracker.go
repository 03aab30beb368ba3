package trackerbun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-snapshot/export"
	"github.com/uptrace/bun"
)

// Tracker stores export run history in a Bun-backed database.
type Tracker struct {
	DB  *bun.DB
	Now func() time.Time
}

// NewTracker creates a Bun-backed tracker.
func NewTracker(db *bun.DB) *Tracker {
	return &Tracker{DB: db, Now: time.Now}
}

// CreateSchema creates the run table when missing.
func (t *Tracker) CreateSchema(ctx context.Context) error {
	if err := t.check(); err != nil {
		return err
	}
	_, err := t.DB.NewCreateTable().Model((*runModel)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Start creates a new run record.
func (t *Tracker) Start(ctx context.Context, record export.RunRecord) (string, error) {
	if err := t.check(); err != nil {
		return "", err
	}
	if record.ID == "" {
		return "", export.NewError(export.KindValidation, "export ID is required", nil)
	}
	if record.State == "" {
		record.State = export.StateQueued
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = t.now()
	}

	model := modelFromRecord(record)
	if _, err := t.DB.NewInsert().Model(&model).Exec(ctx); err != nil {
		return "", err
	}
	return record.ID, nil
}

// Progress records the latest stage; the stored fraction never decreases.
func (t *Tracker) Progress(ctx context.Context, id string, progress export.Progress) error {
	query := t.update(id).
		Set("stage = ?", string(progress.Stage)).
		Set("progress = MAX(progress, ?)", progress.Fraction).
		Set("state = CASE WHEN state = ? THEN ? ELSE state END", string(export.StateQueued), string(export.StateRunning)).
		Set("started_at = COALESCE(started_at, ?)", t.now())
	return t.exec(ctx, id, query)
}

// Complete marks the run as completed with its summary.
func (t *Tracker) Complete(ctx context.Context, id string, summary export.RunSummary) error {
	query := t.update(id).
		Set("state = ?", string(export.StateCompleted)).
		Set("stage = ?", string(export.StageDone)).
		Set("progress = 1").
		Set("sections = ?", summary.Sections).
		Set("placeholders = ?", summary.Placeholders).
		Set("pages = ?", summary.Pages).
		Set("bytes = ?", summary.Bytes).
		Set("filename = ?", summary.Filename).
		Set("artifact_key = ?", summary.ArtifactKey).
		Set("completed_at = COALESCE(completed_at, ?)", t.now())
	return t.exec(ctx, id, query)
}

// Fail marks the run as failed.
func (t *Tracker) Fail(ctx context.Context, id string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	query := t.update(id).
		Set("state = ?", string(export.StateFailed)).
		Set("stage = ?", string(export.StageFailed)).
		Set("error = ?", message).
		Set("completed_at = COALESCE(completed_at, ?)", t.now())
	return t.exec(ctx, id, query)
}

// Status returns a record by ID.
func (t *Tracker) Status(ctx context.Context, id string) (export.RunRecord, error) {
	if err := t.check(); err != nil {
		return export.RunRecord{}, err
	}
	if id == "" {
		return export.RunRecord{}, export.NewError(export.KindValidation, "export ID is required", nil)
	}

	model := new(runModel)
	err := t.DB.NewSelect().Model(model).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return export.RunRecord{}, export.NewError(export.KindNotFound, fmt.Sprintf("export %q not found", id), nil)
		}
		return export.RunRecord{}, err
	}
	return model.toRecord(), nil
}

// List returns records matching a filter, newest first.
func (t *Tracker) List(ctx context.Context, filter export.RunFilter) ([]export.RunRecord, error) {
	if err := t.check(); err != nil {
		return nil, err
	}

	models := make([]runModel, 0)
	query := t.DB.NewSelect().Model(&models)
	if filter.State != "" {
		query = query.Where("state = ?", string(filter.State))
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		query = query.Where("created_at <= ?", filter.Until)
	}
	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	records := make([]export.RunRecord, 0, len(models))
	for _, model := range models {
		records = append(records, model.toRecord())
	}
	return records, nil
}

func (t *Tracker) update(id string) *bun.UpdateQuery {
	if t == nil || t.DB == nil {
		return nil
	}
	return t.DB.NewUpdate().Model((*runModel)(nil)).Where("id = ?", id)
}

func (t *Tracker) exec(ctx context.Context, id string, query *bun.UpdateQuery) error {
	if err := t.check(); err != nil {
		return err
	}
	if id == "" {
		return export.NewError(export.KindValidation, "export ID is required", nil)
	}
	res, err := query.Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return export.NewError(export.KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	return nil
}

func (t *Tracker) check() error {
	if t == nil || t.DB == nil {
		return export.NewError(export.KindNotImpl, "tracker database not configured", nil)
	}
	return nil
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

type runModel struct {
	bun.BaseModel `bun:"table:snapshot_runs,alias:snapshot_runs"`

	ID           string    `bun:",pk"`
	Title        string    `bun:"title"`
	Format       string    `bun:",notnull"`
	Continuous   bool      `bun:"continuous"`
	State        string    `bun:",notnull"`
	Stage        string    `bun:"stage"`
	Progress     float64   `bun:"progress"`
	Sections     int       `bun:"sections"`
	Placeholders int       `bun:"placeholders"`
	Pages        int       `bun:"pages"`
	Bytes        int64     `bun:"bytes"`
	Filename     string    `bun:"filename"`
	ArtifactKey  string    `bun:"artifact_key"`
	Error        string    `bun:"error"`
	CreatedAt    time.Time `bun:"created_at"`
	StartedAt    time.Time `bun:"started_at,nullzero"`
	CompletedAt  time.Time `bun:"completed_at,nullzero"`
}

func modelFromRecord(record export.RunRecord) runModel {
	return runModel{
		ID:           record.ID,
		Title:        record.Title,
		Format:       string(record.Format),
		Continuous:   record.Continuous,
		State:        string(record.State),
		Stage:        string(record.Stage),
		Progress:     record.Progress,
		Sections:     record.Sections,
		Placeholders: record.Placeholders,
		Pages:        record.Pages,
		Bytes:        record.Bytes,
		Filename:     record.Filename,
		ArtifactKey:  record.ArtifactKey,
		Error:        record.Error,
		CreatedAt:    record.CreatedAt,
		StartedAt:    record.StartedAt,
		CompletedAt:  record.CompletedAt,
	}
}

func (m runModel) toRecord() export.RunRecord {
	return export.RunRecord{
		ID:           m.ID,
		Title:        m.Title,
		Format:       export.Format(m.Format),
		Continuous:   m.Continuous,
		State:        export.RunState(m.State),
		Stage:        export.Stage(m.Stage),
		Progress:     m.Progress,
		Sections:     m.Sections,
		Placeholders: m.Placeholders,
		Pages:        m.Pages,
		Bytes:        m.Bytes,
		Filename:     m.Filename,
		ArtifactKey:  m.ArtifactKey,
		Error:        m.Error,
		CreatedAt:    m.CreatedAt,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
	}
}
