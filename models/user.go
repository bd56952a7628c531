package models

// User holds the identity fields the chat and notification paths read.
// Registration, credentials and profile editing live with the identity
// provider, not here.
type User struct {
	Model
	Fullname     string `json:"fullname"`
	Username     string `json:"username" gorm:"unique;not null"`
	Email        string `json:"email" gorm:"unique;not null"`
	ThumbNailURL string `json:"thumbnail_url,omitempty"`
	IsBlocked    bool   `json:"is_blocked" gorm:"default:false"`
}

// DisplayName mirrors the classic get_full_name-or-username fallback.
func (u *User) DisplayName() string {
	if u.Fullname != "" {
		return u.Fullname
	}
	return u.Username
}
