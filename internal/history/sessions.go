package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jbonatakis/reshai/internal/conversation"
)

type Session struct {
	ID                string
	Title             string
	ModelID           string
	TerminalSessionID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CreateSession inserts a new session. Empty ID and Title are filled with a
// fresh uuid and the default title.
func (s *Store) CreateSession(ctx context.Context, session Session) (Session, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if strings.TrimSpace(session.Title) == "" {
		session.Title = conversation.DefaultTitle
	}
	now := s.now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_sessions (id, title, model_id, terminal_session_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, session.ID, session.Title, session.ModelID, session.TerminalSessionID, toMillis(now), toMillis(now))
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, model_id, terminal_session_id, created_at, updated_at
		FROM ai_sessions WHERE id = ?
	`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ListSessions returns sessions most recently updated first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, model_id, terminal_session_id, created_at, updated_at
		FROM ai_sessions ORDER BY updated_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (s *Store) RenameSession(ctx context.Context, id string, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title required")
	}
	return s.updateSession(ctx, id, "title = ?", title)
}

// SetSessionModel records the model last used by the session.
func (s *Store) SetSessionModel(ctx context.Context, id string, modelID string) error {
	return s.updateSession(ctx, id, "model_id = ?", modelID)
}

// LinkTerminal binds the session to a terminal session id.
func (s *Store) LinkTerminal(ctx context.Context, id string, terminalSessionID string) error {
	return s.updateSession(ctx, id, "terminal_session_id = ?", terminalSessionID)
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM ai_messages WHERE session_id = ?", id); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM ai_sessions WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return requireAffected(res, id)
	})
}

func (s *Store) updateSession(ctx context.Context, id string, assignment string, value any) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE ai_sessions SET "+assignment+", updated_at = ? WHERE id = ?",
		value, toMillis(s.now().UTC()), id)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return requireAffected(res, id)
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var session Session
	var modelID, terminalID sql.NullString
	var created, updated int64
	if err := row.Scan(&session.ID, &session.Title, &modelID, &terminalID, &created, &updated); err != nil {
		return Session{}, err
	}
	session.ModelID = modelID.String
	session.TerminalSessionID = terminalID.String
	session.CreatedAt = fromMillis(created)
	session.UpdatedAt = fromMillis(updated)
	return session, nil
}
