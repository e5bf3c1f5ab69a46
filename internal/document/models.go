package document

import "time"

// PresenceEntry records one user's recent activity on one document.
// CursorPosition is optional; nil means the client never reported one.
type PresenceEntry struct {
	UserID         string    `json:"userId" bson:"userId"`
	Username       string    `json:"username" bson:"username"`
	LastActive     time.Time `json:"lastActive" bson:"lastActive"`
	CursorPosition *int      `json:"cursorPosition,omitempty" bson:"cursorPosition,omitempty"`
}

// Document is the persistent document model. IDs are caller-supplied strings;
// a record is created lazily with empty content on first read or first join.
type Document struct {
	ID             string          `json:"id" bson:"_id"`
	Content        string          `json:"content" bson:"content"`
	LastModified   time.Time       `json:"lastModified" bson:"lastModified"`
	LastModifiedBy string          `json:"lastModifiedBy" bson:"lastModifiedBy"`
	ActiveUsers    []PresenceEntry `json:"activeUsers" bson:"activeUsers"`
}
