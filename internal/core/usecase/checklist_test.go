package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/core/ports"
)

func dailyTemplate() *domain.ChecklistTemplate {
	return &domain.ChecklistTemplate{
		ID:               "tpl-daily",
		Type:             domain.ChecklistDaily,
		Name:             "Ежедневный чек-лист",
		RequiresApproval: true,
		Items: []domain.ChecklistItem{
			{ID: "item-1", Text: "Техника безопасности соблюдена", IsRequired: true},
			{ID: "item-2", Text: "Журнал работ заполнен", IsRequired: true},
			{ID: "item-3", Text: "Субподрядчики на объекте", IsRequired: false},
		},
	}
}

func activeProject(id string) *domain.Project {
	p := pendingProject(id)
	p.Status = domain.ProjectActive
	return p
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSubmitDailySameDayUpdatesInPlace(t *testing.T) {
	projects := newProjectRepoFake(activeProject("p1"))
	checklists := newChecklistRepoFake(dailyTemplate())
	uc := NewChecklistUseCase(checklists, projects)
	uc.now = fixedClock(time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC))

	sub := ports.ChecklistSubmission{
		ProjectID:  "p1",
		TemplateID: "tpl-daily",
		Answers: map[string]string{
			"item-1": domain.AnswerYes,
			"item-2": domain.AnswerNo,
		},
	}
	first, err := uc.Submit(context.Background(), clientID, sub)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	uc.now = fixedClock(time.Date(2026, 3, 12, 17, 30, 0, 0, time.UTC))
	sub.Answers["item-2"] = domain.AnswerYes
	second, err := uc.Submit(context.Background(), clientID, sub)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("same-day resubmission must reuse the record: %s vs %s", second.ID, first.ID)
	}
	if len(checklists.completions) != 1 {
		t.Fatalf("expected exactly one stored record, got %d", len(checklists.completions))
	}
	if checklists.created != 1 || checklists.updated != 1 {
		t.Fatalf("expected one create and one update, got %d/%d", checklists.created, checklists.updated)
	}
	if second.ItemsData["item-2"] != domain.AnswerYes {
		t.Fatal("resubmission must carry the new answers")
	}
}

func TestSubmitStampsTemplateType(t *testing.T) {
	projects := newProjectRepoFake(activeProject("p1"))
	checklists := newChecklistRepoFake(dailyTemplate())
	uc := NewChecklistUseCase(checklists, projects)
	uc.now = fixedClock(time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC))

	sub := ports.ChecklistSubmission{
		ProjectID:  "p1",
		TemplateID: "tpl-daily",
		Answers:    map[string]string{"item-1": domain.AnswerYes, "item-2": domain.AnswerYes},
	}
	first, err := uc.Submit(context.Background(), clientID, sub)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if first.TemplateType != domain.ChecklistDaily {
		t.Fatalf("expected daily template type on create, got %q", first.TemplateType)
	}

	// The stored copy does not carry the type, so a same-day update must
	// stamp it again.
	first.TemplateType = ""
	uc.now = fixedClock(time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC))
	second, err := uc.Submit(context.Background(), clientID, sub)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if second.TemplateType != domain.ChecklistDaily {
		t.Fatalf("expected daily template type on update, got %q", second.TemplateType)
	}
}

func TestSubmitDailyNextDayCreatesNewRecord(t *testing.T) {
	projects := newProjectRepoFake(activeProject("p1"))
	checklists := newChecklistRepoFake(dailyTemplate())
	uc := NewChecklistUseCase(checklists, projects)
	uc.now = fixedClock(time.Date(2026, 3, 12, 23, 50, 0, 0, time.UTC))

	sub := ports.ChecklistSubmission{
		ProjectID:  "p1",
		TemplateID: "tpl-daily",
		Answers:    map[string]string{"item-1": domain.AnswerYes, "item-2": domain.AnswerYes},
	}
	if _, err := uc.Submit(context.Background(), clientID, sub); err != nil {
		t.Fatalf("day one submit: %v", err)
	}

	uc.now = fixedClock(time.Date(2026, 3, 13, 0, 10, 0, 0, time.UTC))
	if _, err := uc.Submit(context.Background(), clientID, sub); err != nil {
		t.Fatalf("day two submit: %v", err)
	}
	if len(checklists.completions) != 2 {
		t.Fatalf("expected two records across two calendar days, got %d", len(checklists.completions))
	}
}

func TestSubmitResetsApprovalOnSameDayEdit(t *testing.T) {
	projects := newProjectRepoFake(activeProject("p1"))
	checklists := newChecklistRepoFake(dailyTemplate())
	uc := NewChecklistUseCase(checklists, projects)
	uc.now = fixedClock(time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC))

	sub := ports.ChecklistSubmission{
		ProjectID:  "p1",
		TemplateID: "tpl-daily",
		Answers:    map[string]string{"item-1": domain.AnswerYes, "item-2": domain.AnswerYes},
	}
	first, err := uc.Submit(context.Background(), clientID, sub)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	now := time.Now().UTC()
	checklists.completions[first.ID].ApprovalStatus = domain.ApprovalApproved
	checklists.completions[first.ID].ApprovedByID = inspectorID.UserID
	checklists.completions[first.ID].ApprovedAt = &now

	second, err := uc.Submit(context.Background(), clientID, sub)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if second.ApprovalStatus != domain.ApprovalPending {
		t.Fatalf("edit must reset approval to pending, got %s", second.ApprovalStatus)
	}
	if second.ApprovedByID != "" || second.ApprovedAt != nil {
		t.Fatal("edit must clear the previous reviewer")
	}
}

func TestSubmitOpeningConflictsWhilePending(t *testing.T) {
	projects := newProjectRepoFake(pendingProject("p1"))
	checklists := newChecklistRepoFake(openingTemplate())
	uc := NewChecklistUseCase(checklists, projects)

	sub := ports.ChecklistSubmission{
		ProjectID:   "p1",
		TemplateID:  "tpl-opening",
		Answers:     map[string]string{"item-1": domain.AnswerYes, "item-2": domain.AnswerYes},
		Geolocation: &domain.Coordinates{Latitude: 55.75, Longitude: 37.61},
	}
	if _, err := uc.Submit(context.Background(), clientID, sub); err != nil {
		t.Fatalf("first opening submit: %v", err)
	}

	_, err := uc.Submit(context.Background(), clientID, sub)
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected conflict while opening is pending, got %v", err)
	}
}

func TestSubmitOpeningAllowedAfterRejection(t *testing.T) {
	projects := newProjectRepoFake(pendingProject("p1"))
	checklists := newChecklistRepoFake(openingTemplate())
	uc := NewChecklistUseCase(checklists, projects)

	sub := ports.ChecklistSubmission{
		ProjectID:   "p1",
		TemplateID:  "tpl-opening",
		Answers:     map[string]string{"item-1": domain.AnswerYes, "item-2": domain.AnswerYes},
		Geolocation: &domain.Coordinates{Latitude: 55.75, Longitude: 37.61},
	}
	first, err := uc.Submit(context.Background(), clientID, sub)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	checklists.completions[first.ID].ApprovalStatus = domain.ApprovalRejected

	second, err := uc.Submit(context.Background(), clientID, sub)
	if err != nil {
		t.Fatalf("resubmit after rejection: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("rejection is terminal; resubmission must be a fresh record")
	}
	if second.ApprovalStatus != domain.ApprovalPending {
		t.Fatalf("fresh submission must start pending, got %s", second.ApprovalStatus)
	}
}

func TestSubmitOpeningRequiresGeolocation(t *testing.T) {
	projects := newProjectRepoFake(pendingProject("p1"))
	uc := NewChecklistUseCase(newChecklistRepoFake(openingTemplate()), projects)

	_, err := uc.Submit(context.Background(), clientID, ports.ChecklistSubmission{
		ProjectID:  "p1",
		TemplateID: "tpl-opening",
		Answers:    map[string]string{"item-1": domain.AnswerYes, "item-2": domain.AnswerYes},
	})
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation error without geolocation, got %v", err)
	}
}

func TestSubmitValidatesAnswers(t *testing.T) {
	projects := newProjectRepoFake(activeProject("p1"))
	uc := NewChecklistUseCase(newChecklistRepoFake(dailyTemplate()), projects)

	_, err := uc.Submit(context.Background(), clientID, ports.ChecklistSubmission{
		ProjectID:  "p1",
		TemplateID: "tpl-daily",
		Answers:    map[string]string{"item-1": "maybe", "item-2": domain.AnswerYes},
	})
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown answer, got %v", err)
	}

	_, err = uc.Submit(context.Background(), clientID, ports.ChecklistSubmission{
		ProjectID:  "p1",
		TemplateID: "tpl-daily",
		Answers:    map[string]string{"item-1": domain.AnswerYes},
	})
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for missing required item, got %v", err)
	}
}

func TestSubmitDailyRequiresActiveProject(t *testing.T) {
	projects := newProjectRepoFake(pendingProject("p1"))
	uc := NewChecklistUseCase(newChecklistRepoFake(dailyTemplate()), projects)

	_, err := uc.Submit(context.Background(), clientID, ports.ChecklistSubmission{
		ProjectID:  "p1",
		TemplateID: "tpl-daily",
		Answers:    map[string]string{"item-1": domain.AnswerYes, "item-2": domain.AnswerYes},
	})
	if !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden on pending project, got %v", err)
	}
}

func TestSubmitIsClientOnly(t *testing.T) {
	projects := newProjectRepoFake(activeProject("p1"))
	uc := NewChecklistUseCase(newChecklistRepoFake(dailyTemplate()), projects)

	_, err := uc.Submit(context.Background(), foremanID, ports.ChecklistSubmission{
		ProjectID:  "p1",
		TemplateID: "tpl-daily",
		Answers:    map[string]string{"item-1": domain.AnswerYes, "item-2": domain.AnswerYes},
	})
	if !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for foreman, got %v", err)
	}
}

func TestSubmitFlagsProjectPending(t *testing.T) {
	projects := newProjectRepoFake(pendingProject("p1"))
	uc := NewChecklistUseCase(newChecklistRepoFake(openingTemplate()), projects)

	_, err := uc.Submit(context.Background(), clientID, ports.ChecklistSubmission{
		ProjectID:   "p1",
		TemplateID:  "tpl-opening",
		Answers:     map[string]string{"item-1": domain.AnswerYes, "item-2": domain.AnswerYes},
		Geolocation: &domain.Coordinates{Latitude: 55.75, Longitude: 37.61},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(projects.pending) != 1 || !projects.pending[0] {
		t.Fatalf("expected pending flag set once, got %v", projects.pending)
	}
}
