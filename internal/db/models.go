package db

import (
	"time"
)

// User is owned by the identity/profile collaborators. The matching core
// reads it and only ever writes the reported location.
//
// SearchRadiusKm, MinAge and MaxAge are stored exactly as given; zero is a
// valid preference.
//
// Lat/Lon stay NULL until the user reports a location for the first time;
// such users are neither seekers nor candidates in discovery.
type User struct {
	ID                uint64 `gorm:"primaryKey;autoIncrement"`
	Username          string `gorm:"uniqueIndex;size:64;not null"`
	Email             string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash      string `gorm:"size:255;not null"`
	Age               int    `gorm:"not null;index:idx_user_age"`
	Lat               *float64
	Lon               *float64
	LocationUpdatedAt *time.Time
	SearchRadiusKm    float64   `gorm:"not null"`
	MinAge            int       `gorm:"not null"`
	MaxAge            int       `gorm:"not null"`
	Photos            []Photo   `gorm:"foreignKey:UserID"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

// HasLocation reports whether the user has reported a location yet.
func (u User) HasLocation() bool { return u.Lat != nil && u.Lon != nil }

// Photo belongs to a user; Position orders a user's gallery ascending.
type Photo struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   uint64 `gorm:"not null;index:idx_photo_user_position,priority:1" json:"-"`
	URL      string `gorm:"size:512;not null" json:"url"`
	Position int    `gorm:"not null;index:idx_photo_user_position,priority:2" json:"position"`
}

// Like is a directed interest edge.
//
// Composite PK: (FromUserID, ToUserID)
//   - At most one row per ordered pair; inserts are insert-if-absent.
//
// Indexes:
//   - idx_like_to_from(to_user_id, from_user_id) serves the reverse-edge
//     lookup of the match resolver and the received-likes count.
type Like struct {
	FromUserID uint64    `gorm:"primaryKey;autoIncrement:false" json:"fromUserId"`
	ToUserID   uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_like_to_from,priority:1" json:"toUserId"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_like_to_from,priority:2" json:"createdAt"`
}

// Match is the undirected pairing of two users, stored under CanonicalPair.
//
// idx_match_pair(user_low, user_high) is unique and is the only thing that
// keeps concurrent resolvers from creating the same match twice.
type Match struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserLow   uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:1" json:"userLow"`
	UserHigh  uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:2;index:idx_match_high" json:"userHigh"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// Partner returns the other participant of the match.
func (m Match) Partner(userID uint64) (uint64, bool) {
	switch userID {
	case m.UserLow:
		return m.UserHigh, true
	case m.UserHigh:
		return m.UserLow, true
	}
	return 0, false
}

// Message belongs to exactly one match.
type Message struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	MatchID    uint64    `gorm:"not null;index:idx_message_match_created,priority:1" json:"matchId"`
	SenderID   uint64    `gorm:"not null;index:idx_message_receiver_sender_read,priority:2" json:"senderId"`
	ReceiverID uint64    `gorm:"not null;index:idx_message_receiver_sender_read,priority:1" json:"receiverId"`
	Body       string    `gorm:"type:text;not null" json:"content"`
	IsRead     bool      `gorm:"not null;default:false;index:idx_message_receiver_sender_read,priority:3" json:"isRead"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_message_match_created,priority:2" json:"createdAt"`
}

// CanonicalPair orders two user ids so that an unordered pair always maps
// to the same (low, high) storage key. Used for writes and lookups alike.
func CanonicalPair(a, b uint64) (low, high uint64) {
	if a < b {
		return a, b
	}
	return b, a
}

// Models lists every table the core migrates.
func Models() []any {
	return []any{&User{}, &Photo{}, &Like{}, &Match{}, &Message{}}
}
