package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jbonatakis/reshai/internal/conversation"
)

// Append stores msg at the end of the session log and bumps the session's
// updated_at. Missing ids and timestamps are filled in; the stored message is
// returned.
func (s *Store) Append(ctx context.Context, sessionID string, msg conversation.Message) (conversation.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now().UTC()
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE ai_sessions SET updated_at = ? WHERE id = ?", toMillis(msg.CreatedAt), sessionID)
		if err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		if err := requireAffected(res, sessionID); err != nil {
			return err
		}
		return insertMessage(ctx, tx, sessionID, msg)
	})
	if err != nil {
		return conversation.Message{}, err
	}
	return msg, nil
}

// Load returns the most recent limit messages of the session in chronological
// order. A limit of zero or less loads the whole log.
func (s *Store) Load(ctx context.Context, sessionID string, limit int) ([]conversation.Message, error) {
	query := `
		SELECT id, role, content, reasoning_content, tool_calls, tool_call_id, model_id, created_at
		FROM ai_messages WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var messages []conversation.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// TruncateAfterLastUser deletes everything after the session's last user
// message and returns how many messages were removed.
func (s *Store) TruncateAfterLastUser(ctx context.Context, sessionID string) (int, error) {
	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var lastUser sql.NullInt64
		err := tx.QueryRowContext(ctx,
			"SELECT MAX(rowid) FROM ai_messages WHERE session_id = ? AND role = ?",
			sessionID, string(conversation.RoleUser)).Scan(&lastUser)
		if err != nil {
			return fmt.Errorf("find last user message: %w", err)
		}
		if !lastUser.Valid {
			return nil
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM ai_messages WHERE session_id = ? AND rowid > ?", sessionID, lastUser.Int64)
		if err != nil {
			return fmt.Errorf("delete turn: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	return int(removed), err
}

// Rewrite replaces the session log with messages, keeping their ids and
// timestamps. Used to persist a repaired log.
func (s *Store) Rewrite(ctx context.Context, sessionID string, messages []conversation.Message) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM ai_sessions WHERE id = ?", sessionID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		if err != nil {
			return fmt.Errorf("check session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM ai_messages WHERE session_id = ?", sessionID); err != nil {
			return fmt.Errorf("clear messages: %w", err)
		}
		for _, msg := range messages {
			if msg.ID == "" {
				msg.ID = uuid.NewString()
			}
			if msg.CreatedAt.IsZero() {
				msg.CreatedAt = s.now().UTC()
			}
			if err := insertMessage(ctx, tx, sessionID, msg); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertMessage(ctx context.Context, tx *sql.Tx, sessionID string, msg conversation.Message) error {
	var toolCalls sql.NullString
	if len(msg.ToolCalls) > 0 {
		encoded, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("encode tool calls: %w", err)
		}
		toolCalls = sql.NullString{String: string(encoded), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO ai_messages
		(id, session_id, role, content, reasoning_content, tool_calls, tool_call_id, model_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		msg.ID,
		sessionID,
		string(msg.Role),
		nullable(msg.Content),
		nullable(msg.Reasoning),
		toolCalls,
		nullable(msg.ToolCallID),
		nullable(msg.ModelID),
		toMillis(msg.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func scanMessage(row rowScanner) (conversation.Message, error) {
	var msg conversation.Message
	var role string
	var content, reasoning, toolCalls, toolCallID, modelID sql.NullString
	var created int64
	if err := row.Scan(&msg.ID, &role, &content, &reasoning, &toolCalls, &toolCallID, &modelID, &created); err != nil {
		return conversation.Message{}, fmt.Errorf("scan message: %w", err)
	}
	msg.Role = conversation.ParseRole(role)
	msg.Content = content.String
	msg.Reasoning = reasoning.String
	msg.ToolCallID = toolCallID.String
	msg.ModelID = modelID.String
	msg.CreatedAt = fromMillis(created)
	if toolCalls.Valid && toolCalls.String != "" {
		if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
			return conversation.Message{}, fmt.Errorf("decode tool calls of %s: %w", msg.ID, err)
		}
	}
	return msg, nil
}

func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
