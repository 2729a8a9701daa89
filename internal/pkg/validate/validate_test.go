package validate

import (
	"reflect"
	"testing"
	"time"

	"github.com/Varaprasad-34/college-job-portal/internal/model"
)

const testDomain = "@college.edu"

func TestCollegeEmail_StudentDomainPolicy(t *testing.T) {
	cases := []struct {
		name    string
		email   string
		role    string
		wantErr bool
	}{
		{"student with college email", "alice@college.edu", model.RoleStudent, false},
		{"student with outside email", "alice@gmail.com", model.RoleStudent, true},
		{"student with bare domain lookalike", "alice@notcollege.example", model.RoleStudent, true},
		{"alumni with outside email", "bob@gmail.com", model.RoleAlumni, false},
		{"alumni with college email", "bob@college.edu", model.RoleAlumni, false},
		{"alumni with malformed email", "not-an-email", model.RoleAlumni, true},
		{"student with malformed email", "a b@college.edu", model.RoleStudent, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CollegeEmail(tc.email, tc.role, testDomain)
			if (err != nil) != tc.wantErr {
				t.Fatalf("CollegeEmail(%q, %q) error = %v, wantErr %v", tc.email, tc.role, err, tc.wantErr)
			}
			if err != nil && err.Field != "email" {
				t.Fatalf("expected email field error, got %q", err.Field)
			}
		})
	}
}

func TestGraduationYear(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	year := func(y int) *int { return &y }

	cases := []struct {
		name    string
		role    string
		year    *int
		wantErr bool
	}{
		{"alumni current year", model.RoleAlumni, year(2026), false},
		{"alumni future year", model.RoleAlumni, year(2027), true},
		{"alumni lower bound", model.RoleAlumni, year(1976), false},
		{"alumni below lower bound", model.RoleAlumni, year(1975), true},
		{"alumni missing year", model.RoleAlumni, nil, true},
		{"student missing year ok", model.RoleStudent, nil, false},
		{"student future year ignored", model.RoleStudent, year(2030), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := GraduationYear(tc.role, tc.year, now)
			if (err != nil) != tc.wantErr {
				t.Fatalf("GraduationYear(%q, %v) error = %v, wantErr %v", tc.role, tc.year, err, tc.wantErr)
			}
		})
	}
}

func TestSalaryRange(t *testing.T) {
	n := func(v int64) *int64 { return &v }

	cases := []struct {
		name     string
		min, max *int64
		wantErr  bool
	}{
		{"both unset", nil, nil, false},
		{"only min", n(50000), nil, false},
		{"only max", nil, n(90000), false},
		{"max above min", n(50000), n(90000), false},
		{"max equals min", n(50000), n(50000), false},
		{"max below min", n(90000), n(50000), true},
		{"negative min", n(-1), nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := SalaryRange(tc.min, tc.max)
			if (err != nil) != tc.wantErr {
				t.Fatalf("SalaryRange(%v, %v) error = %v, wantErr %v", tc.min, tc.max, err, tc.wantErr)
			}
		})
	}
}

func TestFutureDeadline(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	if err := FutureDeadline(nil, now); err != nil {
		t.Fatalf("nil deadline should pass, got %v", err)
	}
	future := now.Add(time.Hour)
	if err := FutureDeadline(&future, now); err != nil {
		t.Fatalf("future deadline should pass, got %v", err)
	}
	past := now.Add(-time.Hour)
	if err := FutureDeadline(&past, now); err == nil {
		t.Fatal("past deadline should be rejected")
	}
	if err := FutureDeadline(&now, now); err == nil {
		t.Fatal("deadline equal to now should be rejected")
	}
}

func TestLinkedinURL(t *testing.T) {
	cases := []struct {
		url     string
		wantErr bool
	}{
		{"", false},
		{"https://www.linkedin.com/in/jane-doe", false},
		{"https://www.linkedin.com/in/jane-doe/", false},
		{"http://www.linkedin.com/in/jane-doe", true},
		{"https://linkedin.com/in/jane-doe", true},
		{"https://www.linkedin.com/company/acme", true},
	}
	for _, tc := range cases {
		err := LinkedinURL(tc.url)
		if (err != nil) != tc.wantErr {
			t.Errorf("LinkedinURL(%q) error = %v, wantErr %v", tc.url, err, tc.wantErr)
		}
	}
}

func TestNormalizeSkills(t *testing.T) {
	got, err := NormalizeSkills([]string{" Go ", "go", "", "SQL", "sql ", "Redis"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Go", "SQL", "Redis"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeSkills = %v, want %v", got, want)
	}

	over := make([]string, MaxSkills+1)
	for i := range over {
		over[i] = "skill-" + string(rune('a'+i))
	}
	if _, err := NormalizeSkills(over); err == nil {
		t.Fatal("expected error for more than 20 skills")
	}
}

func TestDeriveTags(t *testing.T) {
	got := DeriveTags("Backend Engineer Backend", "Acme Corp", []string{"Go", "gRPC"})
	want := []string{"backend", "engineer", "acme corp", "go", "grpc"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DeriveTags = %v, want %v", got, want)
	}
}

func TestApplicationStatus(t *testing.T) {
	for _, v := range []string{"pending", "reviewed", "accepted", "rejected"} {
		if !ApplicationStatus(v) {
			t.Errorf("status %q should be valid", v)
		}
	}
	for _, v := range []string{"", "open", "PENDING", "withdrawn"} {
		if ApplicationStatus(v) {
			t.Errorf("status %q should be invalid", v)
		}
	}
}
