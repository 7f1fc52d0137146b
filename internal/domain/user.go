// Package domain contains core domain types for the modmail relay.
package domain

import "strconv"

// User is a platform account as seen by the relay. Nick is only set when the
// account was resolved as a member of the staff server.
type User struct {
	ID            uint64 `json:"id,string"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator,omitempty"`
	Nick          string `json:"nick,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	Bot           bool   `json:"bot"`
}

// Tag returns the account name the way the platform prints it.
func (u *User) Tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// DisplayName prefers the server nickname and keeps the account tag
// alongside it so staff can still tell who they are talking to.
func (u *User) DisplayName() string {
	if u.Nick != "" {
		return u.Nick + " (" + u.Tag() + ")"
	}
	return u.Tag()
}

// Mention returns the platform mention markup for the user.
func (u *User) Mention() string {
	return Mention(u.ID)
}

// Mention returns the platform mention markup for a user id.
func Mention(userID uint64) string {
	return "<@" + strconv.FormatUint(userID, 10) + ">"
}
