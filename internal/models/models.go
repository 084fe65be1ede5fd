package models

import "time"

type Ticket struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TicketStatus `json:"status"`
	Priority    Priority     `json:"priority"`
	Tags        []string     `json:"tags"`
	AssignedTo  *string      `json:"assigned_to"`
	CreatedAt   time.Time    `json:"created_at"`
}

type TicketReply struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	UserID     string    `json:"user_id"`
	ReplyText  string    `json:"reply_text"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

type TicketFeedback struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Profile struct {
	ID               string    `json:"id"`
	FullName         string    `json:"full_name"`
	CompanyName      string    `json:"company_name"`
	Role             Role      `json:"role"`
	EmployeeApproved bool      `json:"employee_approved"`
	CustomerApproved bool      `json:"customer_approved"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Agent reports whether this profile may work tickets: administrators
// always, employees only once approved.
func (p Profile) Agent() bool {
	return p.Role == RoleAdministrator || (p.Role == RoleEmployee && p.EmployeeApproved)
}

type Team struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FocusArea string `json:"focus_area"`
	// Coverage window in UTC hours, end exclusive. Defaults 0/23 when unset.
	CoverageStartUTC int       `json:"coverage_start_utc"`
	CoverageEndUTC   int       `json:"coverage_end_utc"`
	CreatedAt        time.Time `json:"created_at"`
}

type TeamMember struct {
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
}

type Skill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type EmployeeSkill struct {
	UserID  string `json:"user_id"`
	SkillID string `json:"skill_id"`
}

type LiveChat struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	AgentID            *string    `json:"agent_id"`
	IsConnectedToAgent bool       `json:"is_connected_to_agent"`
	CreatedAt          time.Time  `json:"created_at"`
	ClosedAt           *time.Time `json:"closed_at"`
}

type LiveChatMessage struct {
	ID          string    `json:"id"`
	LiveChatID  string    `json:"live_chat_id"`
	UserID      string    `json:"user_id"`
	Role        ChatRole  `json:"role"`
	MessageText string    `json:"message_text"`
	CreatedAt   time.Time `json:"created_at"`
}

type ResponseDraft struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Content   string    `json:"content"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// ResponseGrade is the grader verdict on a drafted reply.
type ResponseGrade struct {
	QualityScore  int      `json:"quality_score"`
	AccuracyScore int      `json:"accuracy_score"`
	Summary       string   `json:"summary"`
	Concerns      []string `json:"concerns"`
}
