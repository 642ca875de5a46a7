// Package directory defines the directory entities fetched from a remote
// directory service (groups, users) and the naming functions used to turn
// them into file names.
package directory

import (
	"strings"
	"time"
)

// Object is any directory entity that carries an identifier.
// Implementations must tolerate a nil receiver.
type Object interface {
	GetID() string
}

// NameFunc maps an entity to its display name. It may return "".
type NameFunc[T Object] func(T) string

// Group represents a directory group.
type Group struct {
	ID              string     `json:"id"`
	DisplayName     string     `json:"displayName,omitempty"`
	Description     string     `json:"description,omitempty"`
	Mail            string     `json:"mail,omitempty"`
	MailNickname    string     `json:"mailNickname,omitempty"`
	MailEnabled     bool       `json:"mailEnabled"`
	SecurityEnabled bool       `json:"securityEnabled"`
	GroupTypes      []string   `json:"groupTypes,omitempty"`
	Visibility      string     `json:"visibility,omitempty"`
	CreatedDateTime *time.Time `json:"createdDateTime,omitempty"`
}

// GetID returns the group identifier.
func (g *Group) GetID() string {
	if g == nil {
		return ""
	}
	return g.ID
}

// User represents a directory user.
type User struct {
	ID                string   `json:"id"`
	DisplayName       string   `json:"displayName,omitempty"`
	GivenName         string   `json:"givenName,omitempty"`
	Surname           string   `json:"surname,omitempty"`
	UserPrincipalName string   `json:"userPrincipalName,omitempty"`
	Mail              string   `json:"mail,omitempty"`
	JobTitle          string   `json:"jobTitle,omitempty"`
	OfficeLocation    string   `json:"officeLocation,omitempty"`
	MobilePhone       string   `json:"mobilePhone,omitempty"`
	BusinessPhones    []string `json:"businessPhones,omitempty"`
	PreferredLanguage string   `json:"preferredLanguage,omitempty"`
	AccountEnabled    *bool    `json:"accountEnabled,omitempty"`
}

// GetID returns the user identifier.
func (u *User) GetID() string {
	if u == nil {
		return ""
	}
	return u.ID
}

// GroupName names a group by its display name.
func GroupName(g *Group) string {
	if g == nil {
		return ""
	}
	return g.DisplayName
}

// UserName names a user by its display name.
func UserName(u *User) string {
	if u == nil {
		return ""
	}
	return u.DisplayName
}

// Blank reports whether s is empty or only whitespace.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
