package scene

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for scene persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Scene, error)
	GetBySlug(ctx context.Context, slug string) (*Scene, error)
	List(ctx context.Context) ([]Scene, error)
	Create(ctx context.Context, scene *Scene) error
	Update(ctx context.Context, scene *Scene) error
	Delete(ctx context.Context, id string) error
}

// sceneColumns is the SELECT column list for scene queries.
const sceneColumns = `id, name, slug, description, loop, builtin, keyframes,
			sort_order, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a scene by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Scene, error) {
	query := `SELECT ` + sceneColumns + ` FROM scenes WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	scene, err := scanSceneRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSceneNotFound
		}
		return nil, fmt.Errorf("querying scene by id: %w", err)
	}
	return scene, nil
}

// GetBySlug retrieves a scene by its slug.
func (r *SQLiteRepository) GetBySlug(ctx context.Context, slug string) (*Scene, error) {
	query := `SELECT ` + sceneColumns + ` FROM scenes WHERE slug = ?`

	row := r.db.QueryRowContext(ctx, query, slug)
	scene, err := scanSceneRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSceneNotFound
		}
		return nil, fmt.Errorf("querying scene by slug: %w", err)
	}
	return scene, nil
}

// List retrieves all scenes ordered by sort_order then name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Scene, error) {
	query := `SELECT ` + sceneColumns + ` FROM scenes ORDER BY sort_order, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying scenes: %w", err)
	}
	defer rows.Close()

	var scenes []Scene
	for rows.Next() {
		scene, scanErr := scanSceneRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning scene: %w", scanErr)
		}
		scenes = append(scenes, *scene)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scenes: %w", err)
	}
	return scenes, nil
}

// Create inserts a new scene.
func (r *SQLiteRepository) Create(ctx context.Context, scene *Scene) error {
	keyframesJSON, err := json.Marshal(scene.Keyframes)
	if err != nil {
		return fmt.Errorf("marshalling keyframes: %w", err)
	}

	now := time.Now().UTC()
	if scene.CreatedAt.IsZero() {
		scene.CreatedAt = now
	}
	scene.UpdatedAt = now

	query := `
		INSERT INTO scenes (
			id, name, slug, description, loop, builtin, keyframes,
			sort_order, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		scene.ID,
		scene.Name,
		scene.Slug,
		nullableString(scene.Description),
		boolToInt(scene.Loop),
		boolToInt(scene.Builtin),
		string(keyframesJSON),
		scene.SortOrder,
		scene.CreatedAt.Format(time.RFC3339),
		scene.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSceneExists
		}
		return fmt.Errorf("inserting scene: %w", err)
	}
	return nil
}

// Update modifies an existing scene.
func (r *SQLiteRepository) Update(ctx context.Context, scene *Scene) error {
	keyframesJSON, err := json.Marshal(scene.Keyframes)
	if err != nil {
		return fmt.Errorf("marshalling keyframes: %w", err)
	}

	scene.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE scenes SET
			name = ?, slug = ?, description = ?, loop = ?, builtin = ?,
			keyframes = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		scene.Name,
		scene.Slug,
		nullableString(scene.Description),
		boolToInt(scene.Loop),
		boolToInt(scene.Builtin),
		string(keyframesJSON),
		scene.SortOrder,
		scene.UpdatedAt.Format(time.RFC3339),
		scene.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSceneExists
		}
		return fmt.Errorf("updating scene: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSceneNotFound
	}
	return nil
}

// Delete removes a scene by ID. Deleting a built-in scene is allowed; the
// seeder restores it on the next startup.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM scenes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting scene: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSceneNotFound
	}
	return nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSceneRow(scanner rowScanner) (*Scene, error) {
	var s Scene
	var description sql.NullString
	var loop, builtin int
	var keyframesJSON string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&s.ID,
		&s.Name,
		&s.Slug,
		&description,
		&loop,
		&builtin,
		&keyframesJSON,
		&s.SortOrder,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		s.Description = &description.String
	}
	s.Loop = loop != 0
	s.Builtin = builtin != 0

	// Parse timestamps (stored as RFC3339 text)
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		s.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		s.UpdatedAt = t
	}

	if keyframesJSON != "" && keyframesJSON != "[]" {
		if jsonErr := json.Unmarshal([]byte(keyframesJSON), &s.Keyframes); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling keyframes: %w", jsonErr)
		}
	}
	if s.Keyframes == nil {
		s.Keyframes = []Keyframe{}
	}

	return &s, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
