package handlers

import (
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/deskhub/backend/internal/models"
)

func TestParseTeamsCSV(t *testing.T) {
	content := "name,focus_area,coverage_start_utc,coverage_end_utc\nBilling Squad,Billing,9,17\nGeneral Desk,general,,\n"
	fh := makeMultipartFile(t, "teams", "teams.csv", content)
	teams, errs := parseTeamsCSV(fh)
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(teams) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(teams))
	}
	if teams[0].FocusArea != "billing" {
		t.Fatalf("expected focus area lowercased, got %q", teams[0].FocusArea)
	}
	if teams[0].CoverageStartUTC != 9 || teams[0].CoverageEndUTC != 17 {
		t.Fatalf("unexpected coverage: %+v", teams[0])
	}
	if teams[1].CoverageStartUTC != 0 || teams[1].CoverageEndUTC != 23 {
		t.Fatalf("expected default coverage, got %+v", teams[1])
	}
	if teams[0].ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestParseTeamsCSV_BadHour(t *testing.T) {
	content := "name,focus_area,coverage_start_utc\nTeam,general,25\n"
	fh := makeMultipartFile(t, "teams", "teams.csv", content)
	teams, errs := parseTeamsCSV(fh)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	if len(teams) != 0 {
		t.Fatalf("expected bad row skipped, got %d teams", len(teams))
	}
}

func TestParseSkillsCSV_DedupesCaseInsensitive(t *testing.T) {
	content := "skill_name\nBilling\nbilling\nVPN\n"
	fh := makeMultipartFile(t, "skills", "skills.csv", content)
	skills, errs := parseSkillsCSV(fh)
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(skills) != 2 {
		t.Fatalf("expected duplicate skill dropped, got %d", len(skills))
	}
}

func TestParseAgentsCSV(t *testing.T) {
	content := "id,full_name,company_name,role\nu1,Dana Agent,Acme,employee\n,NoID Agent,Acme,\n"
	fh := makeMultipartFile(t, "agents", "agents.csv", content)
	agents, errs := parseAgentsCSV(fh)
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(agents))
	}
	if agents[0].ID != "u1" || agents[0].Role != models.RoleEmployee {
		t.Fatalf("unexpected first agent: %+v", agents[0])
	}
	if !agents[0].EmployeeApproved {
		t.Fatalf("imported employees should be pre-approved")
	}
	if agents[1].ID == "" {
		t.Fatalf("expected generated id for missing id column")
	}
	if agents[1].Role != models.RoleEmployee {
		t.Fatalf("expected default employee role, got %v", agents[1].Role)
	}
}

func TestParseAgentsCSV_MissingName(t *testing.T) {
	content := "id,full_name\nu1,\n"
	fh := makeMultipartFile(t, "agents", "agents.csv", content)
	agents, errs := parseAgentsCSV(fh)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	if len(agents) != 0 {
		t.Fatalf("expected no agents, got %d", len(agents))
	}
}

func makeMultipartFile(t *testing.T, fieldName, filename, content string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(int64(buf.Len()))
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	files := form.File[fieldName]
	if len(files) == 0 {
		t.Fatalf("no file headers found")
	}
	return files[0]
}
