package model

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"candidate", RoleMentee, false},
		{"interviewer", RoleMentor, false},
		{"mentor", 0, true},
		{"", 0, true},
		{"Candidate", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoleExternalRoundTrip(t *testing.T) {
	for _, r := range []Role{RoleMentee, RoleMentor} {
		got, err := ParseRole(r.External())
		if err != nil {
			t.Fatalf("%v: %v", r, err)
		}
		if got != r {
			t.Errorf("got %v, want %v", got, r)
		}
	}
}

func TestRoleExternalPanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero role")
		}
	}()
	_ = Role(0).External()
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusUpcoming, StatusCompleted, StatusCancelled} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Status("done").Valid() {
		t.Error("unexpected valid status")
	}
}
