package models

import "strings"

// AuthorProfile is the author metadata attached to posts. Once resolved an
// entry is immutable for the lifetime of the cache.
type AuthorProfile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Birthday  string `json:"dob"`

	Position string `json:"position"`
	Height   string `json:"height"`
	Weight   string `json:"weight"`
	Location string `json:"location"`

	ShowEmail bool `json:"show_email"`
	ShowPhone bool `json:"show_phone"`

	// AvatarURL is either the resolved profile picture or a placeholder,
	// never empty once the profile went through resolution.
	AvatarURL string `json:"avatar_url"`
}

func (p AuthorProfile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
