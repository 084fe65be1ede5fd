package models

import "strings"

// Priority is the closed set of ticket priorities. The store keeps the
// lowercase string form; conversion happens once at the boundary so the
// rest of the code never compares raw strings.
type Priority int

const (
	PriorityUnset Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

func ParsePriority(value string) Priority {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low":
		return PriorityLow
	case "normal", "medium":
		return PriorityNormal
	case "high":
		return PriorityHigh
	case "urgent":
		return PriorityUrgent
	default:
		return PriorityUnset
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return ""
	}
}

type TicketStatus int

const (
	StatusUnknown TicketStatus = iota
	StatusOpen
	StatusInProgress
	StatusClosed
)

func ParseTicketStatus(value string) TicketStatus {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "open":
		return StatusOpen
	case "in_progress":
		return StatusInProgress
	case "closed":
		return StatusClosed
	default:
		return StatusUnknown
	}
}

func (s TicketStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusInProgress:
		return "in_progress"
	case StatusClosed:
		return "closed"
	default:
		return ""
	}
}

// Active reports whether a ticket in this status counts toward an agent's
// workload.
func (s TicketStatus) Active() bool {
	return s == StatusOpen || s == StatusInProgress
}

type Role int

const (
	RoleUnknown Role = iota
	RoleCustomer
	RoleEmployee
	RoleAdministrator
)

func ParseRole(value string) Role {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "customer":
		return RoleCustomer
	case "employee":
		return RoleEmployee
	case "administrator", "admin":
		return RoleAdministrator
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return "customer"
	case RoleEmployee:
		return "employee"
	case RoleAdministrator:
		return "administrator"
	default:
		return ""
	}
}

// Agent reports whether the role may be assigned tickets.
func (r Role) Agent() bool {
	return r == RoleEmployee || r == RoleAdministrator
}

// ChatRole labels who authored a live chat message.
type ChatRole string

const (
	ChatRoleCustomer  ChatRole = "customer"
	ChatRoleAgent     ChatRole = "agent"
	ChatRoleAssistant ChatRole = "assistant"
)
