package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
)

// MessageRepository persists chat messages and their read state.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Create stores msg and fills in its ID and CreatedAt.
func (r *MessageRepository) Create(ctx context.Context, msg *db.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListByMatch returns the conversation in chronological order. The id
// breaks ties between messages created within the same clock tick.
func (r *MessageRepository) ListByMatch(ctx context.Context, matchID uint64) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// MarkRead flags every unread message senderID sent to receiverID as read
// and returns how many rows changed. A second call changes nothing.
func (r *MessageRepository) MarkRead(ctx context.Context, receiverID, senderID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", receiverID, senderID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CountUnread counts messages senderID sent to receiverID that are unread.
func (r *MessageRepository) CountUnread(ctx context.Context, receiverID, senderID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", receiverID, senderID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// LatestByMatch returns the newest message of each given match, keyed by
// match id. Matches without messages are absent from the map.
func (r *MessageRepository) LatestByMatch(ctx context.Context, matchIDs []uint64) (map[uint64]db.Message, error) {
	out := make(map[uint64]db.Message, len(matchIDs))
	if len(matchIDs) == 0 {
		return out, nil
	}

	latest := r.db.
		Model(&db.Message{}).
		Select("MAX(id)").
		Where("match_id IN ?", matchIDs).
		Group("match_id")

	var msgs []db.Message
	if err := r.db.WithContext(ctx).Where("id IN (?)", latest).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("latest messages: %w", err)
	}
	for _, m := range msgs {
		out[m.MatchID] = m
	}
	return out, nil
}

// UnreadByMatch counts unread messages addressed to receiverID per match.
func (r *MessageRepository) UnreadByMatch(ctx context.Context, receiverID uint64, matchIDs []uint64) (map[uint64]int64, error) {
	out := make(map[uint64]int64, len(matchIDs))
	if len(matchIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		MatchID uint64
		N       int64
	}
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Select("match_id, COUNT(*) AS n").
		Where("receiver_id = ? AND is_read = ? AND match_id IN ?", receiverID, false, matchIDs).
		Group("match_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("unread counts: %w", err)
	}
	for _, row := range rows {
		out[row.MatchID] = row.N
	}
	return out, nil
}
