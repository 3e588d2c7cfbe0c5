package user

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Kind is the role a user plays within their branch.
type Kind string

const (
	KindStudent Kind = "student"
	KindTeacher Kind = "teacher"
	KindAdmin   Kind = "admin"
)

func (k Kind) Valid() bool {
	switch k {
	case KindStudent, KindTeacher, KindAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id" db:"id"`
	BranchID     string    `json:"branch_id" db:"branch_id"`
	Kind         Kind      `json:"kind" db:"kind"`
	Username     string    `json:"username" db:"username"`
	GivenName    string    `json:"given_name" db:"given_name"`
	FamilyName   string    `json:"family_name" db:"family_name"`
	ImageURL     string    `json:"image_url,omitempty" db:"image_url"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login" db:"last_login"` // UTC
}

// DisplayName is the name reports are sorted by.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.GivenName + " " + u.FamilyName)
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsStudent() bool { return u.Kind == KindStudent }
func (u User) IsTeacher() bool { return u.Kind == KindTeacher }
func (u User) IsAdmin() bool   { return u.Kind == KindAdmin }

// Filter selects users; zero fields are ignored and set fields are ANDed.
type Filter struct {
	IDs        []string
	ExcludeIDs []string
	BranchID   string
	Kind       Kind
	IsActive   *bool
	Username   string
}

// Match reports whether usr satisfies the filter.
func (f Filter) Match(usr User) bool {
	if len(f.IDs) > 0 && !contains(f.IDs, usr.ID) {
		return false
	}
	if contains(f.ExcludeIDs, usr.ID) {
		return false
	}
	if f.BranchID != "" && usr.BranchID != f.BranchID {
		return false
	}
	if f.Kind != "" && usr.Kind != f.Kind {
		return false
	}
	if f.IsActive != nil && usr.IsActive != *f.IsActive {
		return false
	}
	if f.Username != "" && usr.Username != f.Username {
		return false
	}
	return true
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
