package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleStaff, true},
		{RoleAdmin, RoleStudent, true},
		{RoleStaff, RoleAdmin, false},
		{RoleStaff, RoleStaff, true},
		{RoleStaff, RoleStudent, true},
		{RoleStudent, RoleAdmin, false},
		{RoleStudent, RoleStaff, false},
		{RoleStudent, RoleStudent, true},
		// Unknown roles fail-closed.
		{"unknown", RoleStudent, false},
		{RoleAdmin, "unknown", false},
		{"", "", false},
		{"", RoleStudent, false},
	}

	for _, tt := range tests {
		got := RoleAtLeast(tt.role, tt.minimum)
		if got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.expected)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestValidRole(t *testing.T) {
	valid := map[string]bool{
		RoleAdmin:   true,
		RoleStaff:   true,
		RoleStudent: true,
		"manager":   false,
		"user":      false,
		"Student":   false,
		"":          false,
	}
	for role, want := range valid {
		if got := ValidRole(role); got != want {
			t.Errorf("ValidRole(%q) = %v, want %v", role, got, want)
		}
	}
}

func TestStudentPermissions(t *testing.T) {
	// Students file and read their own reports but never act as staff.
	if !RoleAtLeast(RoleStudent, RoleStudent) {
		t.Error("student should satisfy the student minimum")
	}
	for _, minimum := range []string{RoleStaff, RoleAdmin} {
		if RoleAtLeast(RoleStudent, minimum) {
			t.Errorf("student should not satisfy %q", minimum)
		}
	}
	for _, legacy := range []string{"manager", "user"} {
		if RoleAtLeast(legacy, RoleStudent) {
			t.Errorf("unknown role %q granted student access", legacy)
		}
	}
}
