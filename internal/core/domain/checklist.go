package domain

import (
	"math"
	"time"
)

type ChecklistType string

const (
	ChecklistOpening ChecklistType = "opening"
	ChecklistDaily   ChecklistType = "daily"
)

type ApprovalStatus string

const (
	ApprovalNotRequired ApprovalStatus = "not_required"
	ApprovalPending     ApprovalStatus = "pending"
	ApprovalApproved    ApprovalStatus = "approved"
	ApprovalRejected    ApprovalStatus = "rejected"
)

// Terminal reports whether the completion can no longer change state.
// Rejected completions stay rejected; correction happens through a fresh
// submission, never by reopening the old record.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected || s == ApprovalNotRequired
}

type ChecklistItem struct {
	ID         string `json:"id" yaml:"id"`
	Text       string `json:"text" yaml:"text"`
	Category   string `json:"category,omitempty" yaml:"category,omitempty"`
	IsRequired bool   `json:"is_required" yaml:"is_required"`
	Order      int    `json:"order" yaml:"order"`
}

// ChecklistTemplate is immutable once a completion references it.
type ChecklistTemplate struct {
	ID                     string          `json:"id" yaml:"id"`
	Type                   ChecklistType   `json:"type" yaml:"type"`
	Name                   string          `json:"name" yaml:"name"`
	Description            string          `json:"description,omitempty" yaml:"description,omitempty"`
	RequiresApproval       bool            `json:"requires_approval" yaml:"requires_approval"`
	RequiresInitialization bool            `json:"requires_initialization" yaml:"requires_initialization"`
	Items                  []ChecklistItem `json:"items" yaml:"items"`
}

type ChecklistCompletion struct {
	ID         string `json:"id"`
	TemplateID string `json:"template_id"`
	// TemplateType is copied from the template on submit; it is not a
	// stored column.
	TemplateType     ChecklistType     `json:"template_type,omitempty"`
	ProjectID        string            `json:"project_id"`
	CompletedByID    string            `json:"completed_by_id"`
	CompletionDate   time.Time         `json:"completion_date"`
	ItemsData        map[string]string `json:"items_data"`
	Photos           []string          `json:"photos,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	Geolocation      *Coordinates      `json:"geolocation,omitempty"`
	CompletionRate   float64           `json:"completion_rate"`
	ApprovalStatus   ApprovalStatus    `json:"approval_status"`
	ApprovedByID     string            `json:"approved_by_id,omitempty"`
	ApprovedAt       *time.Time        `json:"approved_at,omitempty"`
	RejectionReason  string            `json:"rejection_reason,omitempty"`
	AttachedDocument string            `json:"attached_document,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Answer values accepted for a checklist item.
const (
	AnswerYes           = "yes"
	AnswerNo            = "no"
	AnswerNotApplicable = "not_applicable"
)

func ValidAnswer(v string) bool {
	switch v {
	case AnswerYes, AnswerNo, AnswerNotApplicable:
		return true
	default:
		return false
	}
}

// CompletionRate is the share of "yes" answers over all template items, in
// percent, rounded for display. Informational only; it gates nothing.
func CompletionRate(tpl *ChecklistTemplate, answers map[string]string) float64 {
	if len(tpl.Items) == 0 {
		return 0
	}
	yes := 0
	for _, item := range tpl.Items {
		if answers[item.ID] == AnswerYes {
			yes++
		}
	}
	return math.Round(float64(yes) / float64(len(tpl.Items)) * 100)
}
