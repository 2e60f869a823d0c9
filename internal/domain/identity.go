package domain

// Identity is the resolved user behind an authenticated connection.
// It is owned by the surrounding platform; the chat service only reads it
// from verified token claims.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}
