package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deskhub/backend/internal/models"
)

func (s *Store) CreateTeam(ctx context.Context, t models.Team) (string, error) {
	id := uuid.NewString()
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO teams (id, name, focus_area, coverage_start_time_utc, coverage_end_time_utc, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, id, t.Name, t.FocusArea, t.CoverageStartUTC, t.CoverageEndUTC, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) DeleteTeam(ctx context.Context, id string) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}

func (s *Store) ListTeams(ctx context.Context) ([]models.Team, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, name, focus_area, COALESCE(coverage_start_time_utc, 0), COALESCE(coverage_end_time_utc, 23), created_at
		FROM teams ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.FocusArea, &t.CoverageStartUTC, &t.CoverageEndUTC, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// FindTeamByFocusArea matches case-insensitively. Several teams may share a
// focus area; creation order makes the pick stable.
func (s *Store) FindTeamByFocusArea(ctx context.Context, focusArea string) (models.Team, error) {
	var t models.Team
	err := s.Pool.QueryRow(ctx, `
		SELECT id, name, focus_area, COALESCE(coverage_start_time_utc, 0), COALESCE(coverage_end_time_utc, 23), created_at
		FROM teams WHERE LOWER(focus_area) = LOWER($1)
		ORDER BY created_at ASC, id ASC LIMIT 1
	`, focusArea).Scan(&t.ID, &t.Name, &t.FocusArea, &t.CoverageStartUTC, &t.CoverageEndUTC, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Team{}, models.ErrNotFound
		}
		return models.Team{}, err
	}
	return t, nil
}

func (s *Store) GetTeamCoverage(ctx context.Context, teamID string) (int, int, error) {
	var start, end int
	err := s.Pool.QueryRow(ctx, `
		SELECT COALESCE(coverage_start_time_utc, 0), COALESCE(coverage_end_time_utc, 23)
		FROM teams WHERE id = $1
	`, teamID).Scan(&start, &end)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, models.ErrNotFound
		}
		return 0, 0, err
	}
	return start, end, nil
}

func (s *Store) AddTeamMember(ctx context.Context, teamID, userID string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id) VALUES ($1,$2)
		ON CONFLICT (team_id, user_id) DO NOTHING
	`, teamID, userID)
	return err
}

func (s *Store) RemoveTeamMember(ctx context.Context, teamID, userID string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) ListTeamMembers(ctx context.Context, teamID string) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `SELECT user_id FROM team_members WHERE team_id = $1 ORDER BY user_id ASC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) CreateSkill(ctx context.Context, name string) (string, error) {
	id := uuid.NewString()
	_, err := s.Pool.Exec(ctx, `INSERT INTO skills (id, skill_name) VALUES ($1,$2)`, id, name)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) DeleteSkill(ctx context.Context, id string) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM employee_skills WHERE skill_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM skills WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}

func (s *Store) ListSkills(ctx context.Context) ([]models.Skill, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, skill_name FROM skills ORDER BY skill_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Skill
	for rows.Next() {
		var sk models.Skill
		if err := rows.Scan(&sk.ID, &sk.Name); err != nil {
			return nil, err
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

func (s *Store) FindSkillByName(ctx context.Context, name string) (models.Skill, error) {
	var sk models.Skill
	err := s.Pool.QueryRow(ctx, `
		SELECT id, skill_name FROM skills WHERE LOWER(skill_name) = LOWER($1)
		ORDER BY skill_name ASC, id ASC LIMIT 1
	`, name).Scan(&sk.ID, &sk.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Skill{}, models.ErrNotFound
		}
		return models.Skill{}, err
	}
	return sk, nil
}

func (s *Store) GrantEmployeeSkill(ctx context.Context, userID, skillID string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO employee_skills (user_id, skill_id) VALUES ($1,$2)
		ON CONFLICT (user_id, skill_id) DO NOTHING
	`, userID, skillID)
	return err
}

func (s *Store) RevokeEmployeeSkill(ctx context.Context, userID, skillID string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM employee_skills WHERE user_id = $1 AND skill_id = $2`, userID, skillID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) ListSkilledUsers(ctx context.Context, skillID string, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT user_id FROM employee_skills
		WHERE skill_id = $1 AND user_id = ANY($2)
		ORDER BY user_id ASC
	`, skillID, candidates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const profileColumns = `id, full_name, company_name, role, employee_approved, customer_approved, updated_at`

func scanProfile(row pgx.Row) (models.Profile, error) {
	var (
		p    models.Profile
		role string
	)
	if err := row.Scan(&p.ID, &p.FullName, &p.CompanyName, &role, &p.EmployeeApproved, &p.CustomerApproved, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, models.ErrNotFound
		}
		return models.Profile{}, err
	}
	p.Role = models.ParseRole(role)
	return p, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

func (s *Store) UpsertProfile(ctx context.Context, p models.Profile) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO profiles (id, full_name, company_name, role, employee_approved, customer_approved, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			company_name = EXCLUDED.company_name,
			role = EXCLUDED.role,
			employee_approved = EXCLUDED.employee_approved,
			customer_approved = EXCLUDED.customer_approved,
			updated_at = EXCLUDED.updated_at
	`, p.ID, p.FullName, p.CompanyName, p.Role.String(), p.EmployeeApproved, p.CustomerApproved, time.Now().UTC())
	return err
}

// ListPendingProfiles returns employees and customers awaiting approval.
func (s *Store) ListPendingProfiles(ctx context.Context) ([]models.Profile, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+profileColumns+` FROM profiles
		WHERE (role = 'employee' AND employee_approved = FALSE)
		   OR (role = 'customer' AND customer_approved = FALSE)
		ORDER BY updated_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) SetProfileApproval(ctx context.Context, id string, role models.Role, approved bool) error {
	var column string
	switch role {
	case models.RoleEmployee:
		column = "employee_approved"
	case models.RoleCustomer:
		column = "customer_approved"
	default:
		return models.ErrNotFound
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE profiles SET `+column+` = $1, updated_at = NOW() WHERE id = $2`, approved, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListAgents returns approved employees and administrators, the population
// eligible for ticket assignment.
func (s *Store) ListAgents(ctx context.Context) ([]models.Profile, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+profileColumns+` FROM profiles
		WHERE role = 'administrator' OR (role = 'employee' AND employee_approved = TRUE)
		ORDER BY full_name ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CompanyUserIDs returns ids of profiles sharing the company, the visibility
// scope for non-customer ticket listings.
func (s *Store) CompanyUserIDs(ctx context.Context, companyName string) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id FROM profiles WHERE company_name = $1`, companyName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) InsertTeams(ctx context.Context, teams []models.Team) (int64, error) {
	rows := make([][]any, 0, len(teams))
	now := time.Now().UTC()
	for _, t := range teams {
		rows = append(rows, []any{t.ID, t.Name, t.FocusArea, t.CoverageStartUTC, t.CoverageEndUTC, now})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"teams"},
		[]string{"id", "name", "focus_area", "coverage_start_time_utc", "coverage_end_time_utc", "created_at"},
		pgx.CopyFromRows(rows))
}

func (s *Store) InsertSkills(ctx context.Context, skills []models.Skill) (int64, error) {
	rows := make([][]any, 0, len(skills))
	for _, sk := range skills {
		rows = append(rows, []any{sk.ID, sk.Name})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"skills"}, []string{"id", "skill_name"}, pgx.CopyFromRows(rows))
}

func (s *Store) InsertProfiles(ctx context.Context, profiles []models.Profile) (int64, error) {
	rows := make([][]any, 0, len(profiles))
	now := time.Now().UTC()
	for _, p := range profiles {
		rows = append(rows, []any{p.ID, p.FullName, p.CompanyName, p.Role.String(), p.EmployeeApproved, p.CustomerApproved, now})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"profiles"},
		[]string{"id", "full_name", "company_name", "role", "employee_approved", "customer_approved", "updated_at"},
		pgx.CopyFromRows(rows))
}
