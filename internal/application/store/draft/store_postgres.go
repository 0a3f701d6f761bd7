package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"govportal/internal/application/models"
	id "govportal/pkg/domain"
	"govportal/pkg/platform/sentinel"
	txcontext "govportal/pkg/platform/tx"
)

// PostgresStore persists applications and their step rows in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectApplication = `
	SELECT id, user_id, status, form_data, created_at, updated_at, submitted_at
	FROM applications
`

func (s *PostgresStore) FindLatestDraft(ctx context.Context, userID id.UserID) (*models.Application, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		selectApplication+` WHERE user_id = $1 AND status = 'DRAFT' ORDER BY updated_at DESC LIMIT 1`,
		uuid.UUID(userID),
	)
	return scanApplication(row)
}

// CreateDraft inserts app. When the one-draft-per-user index rejects the
// insert, the draft that won is returned instead.
func (s *PostgresStore) CreateDraft(ctx context.Context, app *models.Application) (*models.Application, error) {
	query := `
		INSERT INTO applications (id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, 'DRAFT', $3, $4)
		ON CONFLICT (user_id) WHERE status = 'DRAFT' DO NOTHING
	`
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(app.ID),
		uuid.UUID(app.UserID),
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert draft: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		created := *app
		return &created, nil
	}
	return s.FindLatestDraft(ctx, app.UserID)
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID, appID id.ApplicationID) (*models.Application, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		selectApplication+` WHERE id = $1 AND user_id = $2`,
		uuid.UUID(appID), uuid.UUID(userID),
	)
	return scanApplication(row)
}

// LockByID reads the application with a row lock held until the surrounding
// transaction ends.
func (s *PostgresStore) LockByID(ctx context.Context, userID id.UserID, appID id.ApplicationID) (*models.Application, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		selectApplication+` WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		uuid.UUID(appID), uuid.UUID(userID),
	)
	return scanApplication(row)
}

func (s *PostgresStore) ListSteps(ctx context.Context, appID id.ApplicationID) ([]models.Step, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT seq, step_key, payload, updated_at
		FROM application_steps
		WHERE application_id = $1
		ORDER BY seq
	`, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var steps []models.Step
	for rows.Next() {
		st := models.Step{ApplicationID: appID}
		var payload []byte
		if err := rows.Scan(&st.Seq, &st.Key, &payload, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		st.Payload = json.RawMessage(payload)
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// UpsertStep writes the payload for (appID, key). An existing row keeps its seq.
func (s *PostgresStore) UpsertStep(ctx context.Context, appID id.ApplicationID, key string, payload json.RawMessage, now time.Time) error {
	query := `
		INSERT INTO application_steps (application_id, step_key, payload, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT application_steps_app_key
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`
	if _, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, uuid.UUID(appID), key, string(payload), now); err != nil {
		return fmt.Errorf("upsert step %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Touch(ctx context.Context, appID id.ApplicationID, now time.Time) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`UPDATE applications SET updated_at = $2 WHERE id = $1`,
		uuid.UUID(appID), now,
	)
	if err != nil {
		return fmt.Errorf("touch application: %w", err)
	}
	return requireRow(res)
}

// MarkSubmitted flips a draft to SUBMITTED. It returns ErrInvalidState when
// the row exists but is no longer a draft.
func (s *PostgresStore) MarkSubmitted(ctx context.Context, appID id.ApplicationID, formData map[string]any, now time.Time) error {
	raw, err := json.Marshal(formData)
	if err != nil {
		return fmt.Errorf("encode form data: %w", err)
	}
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE applications
		SET status = 'SUBMITTED', form_data = $2, submitted_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'DRAFT'
	`, uuid.UUID(appID), string(raw), now)
	if err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	if err := requireRow(res); err != nil {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Application, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx,
		selectApplication+` WHERE user_id = $1 ORDER BY updated_at DESC`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return apps, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(row scanner) (*models.Application, error) {
	var (
		app         models.Application
		rawID       uuid.UUID
		rawUserID   uuid.UUID
		status      string
		formData    []byte
		submittedAt sql.NullTime
	)
	err := row.Scan(&rawID, &rawUserID, &status, &formData, &app.CreatedAt, &app.UpdatedAt, &submittedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	app.ID = id.ApplicationID(rawID)
	app.UserID = id.UserID(rawUserID)
	app.Status = models.Status(status)
	if app.FormData, err = models.DecodeFormData(formData); err != nil {
		return nil, fmt.Errorf("decode form data: %w", err)
	}
	if submittedAt.Valid {
		t := submittedAt.Time
		app.SubmittedAt = &t
	}
	return &app, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
