package handlers

import (
	"encoding/csv"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/deskhub/backend/internal/models"
)

type ImportSummary struct {
	Teams struct {
		Parsed   int `json:"parsed"`
		Inserted int `json:"inserted"`
		Errors   int `json:"errors"`
	} `json:"teams"`
	Skills struct {
		Parsed   int `json:"parsed"`
		Inserted int `json:"inserted"`
		Errors   int `json:"errors"`
	} `json:"skills"`
	Agents struct {
		Parsed   int `json:"parsed"`
		Inserted int `json:"inserted"`
		Errors   int `json:"errors"`
	} `json:"agents"`
	Errors []string `json:"errors"`
}

// @Summary Import directory data
// @Description Upload teams, skills, and agents CSV files
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param teams formData file false "teams.csv"
// @Param skills formData file false "skills.csv"
// @Param agents formData file false "agents.csv"
// @Success 200 {object} ImportSummary
// @Failure 400 {object} map[string]any
// @Router /api/admin/import [post]
func (h *Handler) Import(c *gin.Context) {
	teamsFile, _ := c.FormFile("teams")
	skillsFile, _ := c.FormFile("skills")
	agentsFile, _ := c.FormFile("agents")
	if teamsFile == nil && skillsFile == nil && agentsFile == nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "at least one CSV file required", nil)
		return
	}
	for _, f := range []*multipart.FileHeader{teamsFile, skillsFile, agentsFile} {
		if f != nil && !validateExt(f.Filename) {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "all files must be .csv", f.Filename)
			return
		}
	}

	summary := ImportSummary{Errors: []string{}}

	var teams []models.Team
	var skills []models.Skill
	var agents []models.Profile
	var errs []string

	if teamsFile != nil {
		teams, errs = parseTeamsCSV(teamsFile)
		summary.Teams.Parsed = len(teams)
		summary.Teams.Errors = len(errs)
		summary.Errors = append(summary.Errors, errs...)
	}
	if skillsFile != nil {
		skills, errs = parseSkillsCSV(skillsFile)
		summary.Skills.Parsed = len(skills)
		summary.Skills.Errors = len(errs)
		summary.Errors = append(summary.Errors, errs...)
	}
	if agentsFile != nil {
		agents, errs = parseAgentsCSV(agentsFile)
		summary.Agents.Parsed = len(agents)
		summary.Agents.Errors = len(errs)
		summary.Errors = append(summary.Errors, errs...)
	}

	if len(summary.Errors) > 0 {
		writeError(c, http.StatusBadRequest, "CSV_PARSE_ERROR", "CSV validation errors", summary.Errors)
		return
	}

	ctx := c.Request.Context()
	if len(teams) > 0 {
		inserted, err := h.Store.InsertTeams(ctx, teams)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert teams", err.Error())
			return
		}
		summary.Teams.Inserted = int(inserted)
	}
	if len(skills) > 0 {
		inserted, err := h.Store.InsertSkills(ctx, skills)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert skills", err.Error())
			return
		}
		summary.Skills.Inserted = int(inserted)
	}
	if len(agents) > 0 {
		inserted, err := h.Store.InsertProfiles(ctx, agents)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert agents", err.Error())
			return
		}
		summary.Agents.Inserted = int(inserted)
	}

	c.JSON(http.StatusOK, summary)
}

func parseTeamsCSV(file *multipart.FileHeader) ([]models.Team, []string) {
	var out []models.Team
	errs := readCSV(file, func(rec []string, idx map[string]int) string {
		name := getFieldAny(rec, idx, "name", "team", "team_name")
		focus := getFieldAny(rec, idx, "focus_area", "focus", "area")
		if name == "" || focus == "" {
			return "team name and focus_area required"
		}
		start, startErr := parseHour(getFieldAny(rec, idx, "coverage_start_utc", "coverage_start", "start"), 0)
		end, endErr := parseHour(getFieldAny(rec, idx, "coverage_end_utc", "coverage_end", "end"), 23)
		if startErr != "" {
			return startErr
		}
		if endErr != "" {
			return endErr
		}

		out = append(out, models.Team{
			ID:               uuid.NewString(),
			Name:             name,
			FocusArea:        strings.ToLower(focus),
			CoverageStartUTC: start,
			CoverageEndUTC:   end,
		})
		return ""
	})
	return out, errs
}

func parseSkillsCSV(file *multipart.FileHeader) ([]models.Skill, []string) {
	var out []models.Skill
	seen := map[string]struct{}{}
	errs := readCSV(file, func(rec []string, idx map[string]int) string {
		name := getFieldAny(rec, idx, "skill_name", "name", "skill")
		if name == "" {
			return "skill name required"
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return ""
		}
		seen[key] = struct{}{}
		out = append(out, models.Skill{ID: uuid.NewString(), Name: name})
		return ""
	})
	return out, errs
}

func parseAgentsCSV(file *multipart.FileHeader) ([]models.Profile, []string) {
	var out []models.Profile
	errs := readCSV(file, func(rec []string, idx map[string]int) string {
		id := getFieldAny(rec, idx, "id", "user_id", "agent_id")
		name := getFieldAny(rec, idx, "full_name", "name")
		if name == "" {
			return "agent full_name required"
		}
		if id == "" {
			id = uuid.NewString()
		}
		role := models.ParseRole(getFieldAny(rec, idx, "role"))
		if role == models.RoleUnknown {
			role = models.RoleEmployee
		}

		out = append(out, models.Profile{
			ID:               id,
			FullName:         name,
			CompanyName:      getFieldAny(rec, idx, "company_name", "company"),
			Role:             role,
			EmployeeApproved: role == models.RoleEmployee,
		})
		return ""
	})
	return out, errs
}

// readCSV walks the records of a headered CSV, collecting per-row errors from
// the handle callback. A non-empty return skips the row.
func readCSV(file *multipart.FileHeader, handle func(rec []string, idx map[string]int) string) []string {
	f, err := file.Open()
	if err != nil {
		return []string{err.Error()}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return []string{"failed to read header"}
	}
	idx := headerIndex(headers)

	var errs []string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if msg := handle(rec, idx); msg != "" {
			errs = append(errs, msg)
		}
	}
	return errs
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func getField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

func getFieldAny(rec []string, idx map[string]int, names ...string) string {
	for _, name := range names {
		if v := getField(rec, idx, normalizeHeader(name)); v != "" {
			return v
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	return strings.ToLower(strings.TrimSpace(h))
}

func parseHour(value string, fallback int) (int, string) {
	if value == "" {
		return fallback, ""
	}
	hour, err := strconv.Atoi(value)
	if err != nil || hour < 0 || hour > 23 {
		return 0, "coverage hour must be 0-23: " + value
	}
	return hour, ""
}

func validateExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv"
}
