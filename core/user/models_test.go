package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		usr  User
		want string
	}{
		{usr: User{GivenName: "Amani", FamilyName: "Kabila"}, want: "Amani Kabila"},
		{usr: User{GivenName: "Amani"}, want: "Amani"},
		{usr: User{FamilyName: "Kabila"}, want: "Kabila"},
		{usr: User{}, want: ""},
	}
	for _, tt := range tests {
		if got := tt.usr.DisplayName(); got != tt.want {
			t.Errorf("DisplayName() = %q, want %q", got, tt.want)
		}
	}
}

func TestUser_SetPassword(t *testing.T) {
	var usr User
	if err := usr.SetPassword("s3cr3t!"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	assert.NoError(t, usr.CheckPassword("s3cr3t!"))
	assert.Error(t, usr.CheckPassword("secret"))
}

func TestFilter_Match(t *testing.T) {
	active, inactive := true, false
	usr := User{ID: "u1", BranchID: "b1", Kind: KindStudent, Username: "kabila_amani", IsActive: true}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "empty", filter: Filter{}, want: true},
		{name: "ids", filter: Filter{IDs: []string{"u2", "u1"}}, want: true},
		{name: "ids (miss)", filter: Filter{IDs: []string{"u2"}}},
		{name: "excluded", filter: Filter{ExcludeIDs: []string{"u1"}}},
		{name: "branch", filter: Filter{BranchID: "b1", Kind: KindStudent}, want: true},
		{name: "other branch", filter: Filter{BranchID: "b2"}},
		{name: "kind", filter: Filter{Kind: KindTeacher}},
		{name: "is_active=true", filter: Filter{IsActive: &active}, want: true},
		{name: "is_active=false", filter: Filter{IsActive: &inactive}},
		{name: "username", filter: Filter{Username: "kabila_amani"}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(usr); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultUsername(t *testing.T) {
	assert.Equal(t, "kabila_amani", DefaultUsername(" Amani ", "Kabila"))
	assert.Equal(t, "vandenberg_jan", DefaultUsername("Jan", "Van den Berg"))
}
