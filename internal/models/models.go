package models

import (
	"time"
)

// Role decides how much retrieved context a caller is shown.
type Role string

const (
	RoleGeneral       Role = "general"
	RoleAuthenticated Role = "authenticated"
)

// ParseRole maps a free-form role string to a Role. Anything unknown is general.
func ParseRole(s string) Role {
	switch s {
	case string(RoleAuthenticated), "logged_in":
		return RoleAuthenticated
	default:
		return RoleGeneral
	}
}

// User represents an account allowed to use the authenticated role.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// SourceDocument is an uploaded or on-disk file before normalization.
type SourceDocument struct {
	FileName string // original file name, used for type detection
	Path     string // location inside the data directory
	Data     []byte
}

// NormalizedDocument is the UTF-8 text extracted from a SourceDocument.
type NormalizedDocument struct {
	Text      string `json:"text"`
	SourceRef string `json:"source_ref"`
}

// Chunk is one bounded slice of a NormalizedDocument.
type Chunk struct {
	Text      string `json:"text"`
	SourceRef string `json:"source_ref"`
	Ordinal   int    `json:"ordinal"`
}

// SearchResult is a ranked hit returned by the index gateway.
type SearchResult struct {
	Text      string  `json:"text"`
	SourceRef string  `json:"source_ref"`
	Score     float64 `json:"score"`
}

// Turn is one (question, answer) pair in a chat session.
type Turn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// LeadRecord is a prospective-student record owned by the CRM.
type LeadRecord struct {
	ID                string `db:"id" json:"id"`
	Name              string `db:"name" json:"name"`
	Status            string `db:"status" json:"status"`
	Email             string `db:"email" json:"email,omitempty"`
	Phone             string `db:"phone" json:"phone,omitempty"`
	CourseInterest    string `db:"course_interest" json:"course_interest,omitempty"`
	LastContact       string `db:"last_contact" json:"last_contact,omitempty"`
	AssignedCounselor string `db:"assigned_counselor" json:"assigned_counselor,omitempty"`
	CreatedAt         string `db:"created_at" json:"created_at,omitempty"`
	Notes             string `db:"notes" json:"notes,omitempty"`
}

// IngestReport summarizes one knowledge-base rebuild.
type IngestReport struct {
	DocumentsSeen    int           `json:"documents_seen"`
	DocumentsSkipped int           `json:"documents_skipped"`
	DocumentsIndexed int           `json:"documents_indexed"`
	Chunks           int           `json:"chunks"`
	Duration         time.Duration `json:"duration"`
}
