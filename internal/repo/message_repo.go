package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/nyayasathi/kanun/internal/model"
	"github.com/nyayasathi/kanun/internal/pkg/dbutil"
)

type MessageRepo struct {
	db *sqlx.DB
}

func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreatePair inserts a user turn and the matching assistant turn in one
// transaction, so a crash never leaves a question without its answer or
// vice versa.
func (r *MessageRepo) CreatePair(ctx context.Context, userMsg *model.Message, assistantMsg *model.Message) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	sqlStr := `INSERT INTO messages (conversation_id, role, content, metadata, ctime)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	for _, msg := range []*model.Message{userMsg, assistantMsg} {
		var meta interface{}
		if msg.Metadata != nil {
			raw, err := json.Marshal(msg.Metadata)
			if err != nil {
				return err
			}
			meta = raw
		}
		if err := tx.QueryRowContext(ctx, sqlStr, msg.ConversationID, msg.Role, msg.Content, meta, msg.Ctime).Scan(&msg.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanMessages(rows *sql.Rows) ([]*model.Message, error) {
	var msgs []*model.Message
	for rows.Next() {
		var (
			msg  model.Message
			meta sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &meta, &msg.Ctime); err != nil {
			return nil, err
		}
		if meta.Valid && meta.String != "" {
			var md model.MessageMetadata
			if err := json.Unmarshal([]byte(meta.String), &md); err != nil {
				return nil, err
			}
			msg.Metadata = &md
		}
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

func (r *MessageRepo) query(ctx context.Context, where map[string]interface{}) ([]*model.Message, error) {
	sqlStr, args, err := builder.BuildSelect("messages", where,
		[]string{"id", "conversation_id", "role", "content", "metadata", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanMessages(rows)
}

// List returns all messages of a conversation, oldest first.
func (r *MessageRepo) List(ctx context.Context, conversationID string) ([]*model.Message, error) {
	return r.query(ctx, map[string]interface{}{
		"conversation_id": conversationID,
		"_orderby":        "id asc",
	})
}

// ListRecent returns the newest limit messages of a conversation, in
// chronological order.
func (r *MessageRepo) ListRecent(ctx context.Context, conversationID string, limit int) ([]*model.Message, error) {
	msgs, err := r.query(ctx, map[string]interface{}{
		"conversation_id": conversationID,
		"_orderby":        "id desc",
		"_limit":          []uint{uint(limit)},
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *MessageRepo) CountByConversation(ctx context.Context, conversationID string) (int64, error) {
	where := map[string]interface{}{"conversation_id": conversationID}
	sqlStr, args, err := builder.BuildSelect("messages", where, []string{"count(*)"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var count int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
