package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clinic/internal/schedule"
)

var (
	ErrNotFound         = errors.New("schedule not found")
	ErrRevisionConflict = errors.New("schedule was changed by someone else")
	ErrActorRequired    = errors.New("actor id is required")
)

// Edit is one accepted change of a professional's schedule.
type Edit struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	Revision       int64
	ActorID        uuid.UUID
	Rules          schedule.FlatRecords
	Exceptions     []schedule.ExceptionPeriod
	Config         schedule.Config
	CreatedAt      time.Time
}

// LoadDocument returns the stored schedule of a professional.
func (db *DB) LoadDocument(ctx context.Context, professionalID uuid.UUID) (*schedule.Document, error) {
	var (
		rulesJSON, exceptionsJSON, updatedBy string
		doc                                  schedule.Document
	)
	err := db.QueryRowContext(ctx, `
		SELECT rules, exceptions, time_zone, buffer_minutes, revision, updated_by, updated_at
		FROM schedule_documents
		WHERE professional_id = ?`,
		professionalID.String(),
	).Scan(&rulesJSON, &exceptionsJSON, &doc.Config.TimeZone, &doc.Config.BufferMinutes,
		&doc.Revision, &updatedBy, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load schedule %s: %w", professionalID, err)
	}

	doc.ProfessionalID = professionalID
	if doc.UpdatedBy, err = uuid.Parse(updatedBy); err != nil {
		return nil, fmt.Errorf("load schedule %s: updated_by: %w", professionalID, err)
	}
	if doc.Rules, doc.Exceptions, err = decodeDocument(rulesJSON, exceptionsJSON); err != nil {
		return nil, fmt.Errorf("load schedule %s: %w", professionalID, err)
	}
	return &doc, nil
}

// SaveDocument stores doc atomically together with an edit record. doc.Revision
// must equal the stored revision (0 for a new professional); the saved copy
// carries the next revision.
func (db *DB) SaveDocument(ctx context.Context, doc schedule.Document, actorID uuid.UUID) (*schedule.Document, error) {
	if actorID == uuid.Nil {
		return nil, ErrActorRequired
	}

	rulesJSON, err := schedule.EncodeRules(doc.Rules)
	if err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}
	exceptionsJSON, err := schedule.EncodeExceptions(doc.Exceptions)
	if err != nil {
		return nil, fmt.Errorf("encode exceptions: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var current int64
	err = tx.QueryRowContext(ctx,
		"SELECT revision FROM schedule_documents WHERE professional_id = ?",
		doc.ProfessionalID.String(),
	).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read revision: %w", err)
	}
	if current != doc.Revision {
		return nil, fmt.Errorf("%w: stored revision %d, got %d", ErrRevisionConflict, current, doc.Revision)
	}

	now := time.Now().UTC()
	next := current + 1
	_, err = tx.ExecContext(ctx, `
		INSERT INTO schedule_documents (
			professional_id, rules, exceptions, time_zone, buffer_minutes,
			revision, updated_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(professional_id) DO UPDATE SET
			rules = excluded.rules,
			exceptions = excluded.exceptions,
			time_zone = excluded.time_zone,
			buffer_minutes = excluded.buffer_minutes,
			revision = excluded.revision,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`,
		doc.ProfessionalID.String(), string(rulesJSON), string(exceptionsJSON),
		doc.Config.TimeZone, doc.Config.BufferMinutes, next, actorID.String(), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert schedule: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO schedule_edits (
			id, professional_id, revision, actor_id, rules, exceptions,
			time_zone, buffer_minutes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), doc.ProfessionalID.String(), next, actorID.String(),
		string(rulesJSON), string(exceptionsJSON), doc.Config.TimeZone, doc.Config.BufferMinutes, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert edit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	saved := doc
	saved.Revision = next
	saved.UpdatedBy = actorID
	saved.UpdatedAt = now
	return &saved, nil
}

// ListProfessionals returns ids of professionals with a stored schedule.
func (db *DB) ListProfessionals(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := db.QueryContext(ctx, "SELECT professional_id FROM schedule_documents ORDER BY professional_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse professional id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListEdits returns the latest edits of a professional, newest first.
func (db *DB) ListEdits(ctx context.Context, professionalID uuid.UUID, limit int) ([]Edit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, revision, actor_id, rules, exceptions, time_zone, buffer_minutes, created_at
		FROM schedule_edits
		WHERE professional_id = ?
		ORDER BY revision DESC
		LIMIT ?`,
		professionalID.String(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edits []Edit
	for rows.Next() {
		var (
			e                                    Edit
			id, actor, rulesJSON, exceptionsJSON string
		)
		if err := rows.Scan(&id, &e.Revision, &actor, &rulesJSON, &exceptionsJSON,
			&e.Config.TimeZone, &e.Config.BufferMinutes, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if e.ActorID, err = uuid.Parse(actor); err != nil {
			return nil, err
		}
		if e.Rules, e.Exceptions, err = decodeDocument(rulesJSON, exceptionsJSON); err != nil {
			return nil, err
		}
		e.ProfessionalID = professionalID
		edits = append(edits, e)
	}
	return edits, rows.Err()
}

// DeleteDocument removes a professional's schedule and its history.
func (db *DB) DeleteDocument(ctx context.Context, professionalID uuid.UUID) error {
	res, err := db.ExecContext(ctx, "DELETE FROM schedule_documents WHERE professional_id = ?", professionalID.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeDocument(rulesJSON, exceptionsJSON string) (schedule.FlatRecords, []schedule.ExceptionPeriod, error) {
	shape, err := schedule.DecodeRules([]byte(rulesJSON))
	if err != nil {
		return nil, nil, fmt.Errorf("decode rules: %w", err)
	}
	exceptions, err := schedule.DecodeExceptions([]byte(exceptionsJSON))
	if err != nil {
		return nil, nil, fmt.Errorf("decode exceptions: %w", err)
	}
	return schedule.Flatten(shape), exceptions, nil
}
