package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sandevgo/recall/internal/core"
)

type NotesRepo struct {
	db *sql.DB
}

func NewNotesRepo(db *sql.DB) *NotesRepo {
	return &NotesRepo{db: db}
}

const noteColumns = `id, tenant_id, title, body, summary, category, note_type, tags, source_url, task_meta, embedding, created_at, updated_at`

func (r *NotesRepo) CreateNote(ctx context.Context, note core.Note) error {
	tagsJSON, err := json.Marshal(note.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	tagsStr := string(tagsJSON)
	if tagsStr == "null" {
		tagsStr = ""
	}

	var taskStr string
	if note.Task != nil {
		taskJSON, err := json.Marshal(note.Task)
		if err != nil {
			return fmt.Errorf("failed to marshal task meta: %w", err)
		}
		taskStr = string(taskJSON)
	}

	var vecBlob []byte
	if len(note.Embedding) > 0 {
		vecBlob, err = serializeVector(note.Embedding)
		if err != nil {
			return err
		}
	}

	query := `INSERT INTO notes (` + noteColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		note.ID, note.TenantID, note.Title, note.Body, note.Summary,
		note.Category, note.NoteType, tagsStr, note.SourceURL, taskStr,
		vecBlob, note.CreatedAt, note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}
	return nil
}

func (r *NotesRepo) ListNotes(ctx context.Context, tenantID string, limit int) ([]core.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE tenant_id = ? ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	return scanNotes(rows)
}

// SearchByVector scans the tenant's embedded notes and scores them with
// cosine similarity in process. The corpus is per-tenant and small; a
// dedicated vector index is not worth the operational cost here.
func (r *NotesRepo) SearchByVector(ctx context.Context, tenantID string, vec []float32, threshold float32, limit int, excluded []string) ([]core.VectorMatch, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE tenant_id = ? AND embedding IS NOT NULL`
	args := []any{tenantID}
	query, args = appendExcluded(query, args, excluded)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	notes, err := scanNotes(rows)
	if err != nil {
		return nil, err
	}

	matches := make([]core.VectorMatch, 0, len(notes))
	for _, note := range notes {
		if len(note.Embedding) != len(vec) {
			continue
		}
		sim := cosineSimilarity(vec, note.Embedding)
		if sim > 1 {
			sim = 1
		}
		if sim < threshold {
			continue
		}
		matches = append(matches, core.VectorMatch{Note: note, Similarity: sim})
	}

	// Similarity descending, most recent first on ties.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Note.CreatedAt.After(matches[j].Note.CreatedAt)
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (r *NotesRepo) SearchLexical(ctx context.Context, tenantID, text string, limit int, excluded []string) ([]core.Note, error) {
	needle := strings.ToLower(text)

	query := `SELECT ` + noteColumns + ` FROM notes
		WHERE tenant_id = ?
		AND (instr(lower(title), ?) > 0 OR instr(lower(body), ?) > 0 OR instr(lower(summary), ?) > 0)`
	args := []any{tenantID, needle, needle, needle}
	query, args = appendExcluded(query, args, excluded)
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}
	defer rows.Close()

	return scanNotes(rows)
}

func appendExcluded(query string, args []any, excluded []string) (string, []any) {
	if len(excluded) == 0 {
		return query, args
	}
	query += ` AND id NOT IN (?` + strings.Repeat(",?", len(excluded)-1) + `)`
	for _, id := range excluded {
		args = append(args, id)
	}
	return query, args
}

func scanNotes(rows *sql.Rows) ([]core.Note, error) {
	var notes []core.Note
	for rows.Next() {
		var note core.Note
		var summary, category, noteType, tagsStr, sourceURL, taskStr sql.NullString
		var vecBlob []byte
		var createdAt time.Time
		var updatedAt sql.NullTime

		if err := rows.Scan(
			&note.ID, &note.TenantID, &note.Title, &note.Body, &summary,
			&category, &noteType, &tagsStr, &sourceURL, &taskStr,
			&vecBlob, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}

		note.Summary = summary.String
		note.Category = category.String
		note.NoteType = noteType.String
		note.SourceURL = sourceURL.String
		note.CreatedAt = createdAt
		if updatedAt.Valid {
			t := updatedAt.Time
			note.UpdatedAt = &t
		}

		if tagsStr.Valid && tagsStr.String != "" {
			if err := json.Unmarshal([]byte(tagsStr.String), &note.Tags); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
			}
		}
		if taskStr.Valid && taskStr.String != "" {
			note.Task = &core.TaskMeta{}
			if err := json.Unmarshal([]byte(taskStr.String), note.Task); err != nil {
				return nil, fmt.Errorf("failed to unmarshal task meta: %w", err)
			}
		}

		if len(vecBlob) > 0 {
			vec, err := deserializeVector(vecBlob)
			if err != nil {
				return nil, err
			}
			note.Embedding = vec
		}

		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}
