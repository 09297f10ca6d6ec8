package repo

import (
	"context"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/nyayasathi/kanun/internal/model"
	"github.com/nyayasathi/kanun/internal/pkg/dbutil"
	appErr "github.com/nyayasathi/kanun/internal/pkg/errors"
)

type ConversationRepo struct {
	db *sqlx.DB
}

func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	data := map[string]interface{}{
		"id":      conv.ID,
		"user_id": conv.UserID,
		"title":   conv.Title,
		"ctime":   conv.Ctime,
		"mtime":   conv.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("conversations", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *ConversationRepo) Get(ctx context.Context, conversationID string) (*model.Conversation, error) {
	where := map[string]interface{}{"id": conversationID}
	sqlStr, args, err := builder.BuildSelect("conversations", where, []string{"id", "user_id", "title", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var conv model.Conversation
	if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Ctime, &conv.Mtime); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID string) ([]*model.Conversation, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "mtime desc",
	}
	sqlStr, args, err := builder.BuildSelect("conversations", where, []string{"id", "user_id", "title", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var convs []*model.Conversation
	for rows.Next() {
		var conv model.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Ctime, &conv.Mtime); err != nil {
			return nil, err
		}
		convs = append(convs, &conv)
	}
	return convs, rows.Err()
}

func (r *ConversationRepo) UpdateTitle(ctx context.Context, conversationID string, title string, mtime int64) error {
	where := map[string]interface{}{"id": conversationID}
	update := map[string]interface{}{
		"title": title,
		"mtime": mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("conversations", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *ConversationRepo) Touch(ctx context.Context, conversationID string, mtime int64) error {
	where := map[string]interface{}{"id": conversationID}
	update := map[string]interface{}{"mtime": mtime}
	sqlStr, args, err := builder.BuildUpdate("conversations", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ConversationRepo) Delete(ctx context.Context, conversationID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	msgSQL, msgArgs, err := builder.BuildDelete("messages", map[string]interface{}{"conversation_id": conversationID})
	if err != nil {
		return err
	}
	msgSQL, msgArgs = dbutil.Finalize(msgSQL, msgArgs)
	if _, err := tx.ExecContext(ctx, msgSQL, msgArgs...); err != nil {
		return err
	}

	convSQL, convArgs, err := builder.BuildDelete("conversations", map[string]interface{}{"id": conversationID})
	if err != nil {
		return err
	}
	convSQL, convArgs = dbutil.Finalize(convSQL, convArgs)
	result, err := tx.ExecContext(ctx, convSQL, convArgs...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return tx.Commit()
}
