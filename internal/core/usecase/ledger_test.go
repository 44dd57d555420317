package usecase

import (
	"context"
	"testing"

	"github.com/KoTeHok22/locus/internal/core/domain"
)

func workItem(id, projectID string) *domain.WorkPlanItem {
	return &domain.WorkPlanItem{
		ID:        id,
		ProjectID: projectID,
		Name:      "Кладка перегородок",
		Unit:      "м2",
		Status:    domain.WorkItemNotStarted,
	}
}

func ptr(v float64) *float64 { return &v }

func TestReportProgressRecordsConsumption(t *testing.T) {
	ledger := newLedgerRepoFake(workItem("w1", "p1"))
	ledger.deliver("w1", "m-brick", 100)
	uc := NewLedgerUseCase(ledger, newProjectRepoFake(activeProject("p1")), 0)

	item, err := uc.ReportProgress(context.Background(), foremanID, "w1", ptr(40),
		[]domain.ConsumptionLine{{MaterialID: "m-brick", QuantityUsed: 30}})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if item.Progress != 40 || item.Status != domain.WorkItemInProgress {
		t.Fatalf("expected 40%% in_progress, got %.0f %s", item.Progress, item.Status)
	}
	if got := ledger.consumed[ledgerKey("w1", "m-brick")]; got != 30 {
		t.Fatalf("expected 30 consumed, got %.1f", got)
	}
}

func TestReportProgressInsufficientMaterialIsAllOrNothing(t *testing.T) {
	ledger := newLedgerRepoFake(workItem("w1", "p1"))
	ledger.deliver("w1", "m-brick", 100)
	ledger.deliver("w1", "m-cement", 5)
	uc := NewLedgerUseCase(ledger, newProjectRepoFake(activeProject("p1")), 0)

	_, err := uc.ReportProgress(context.Background(), foremanID, "w1", nil,
		[]domain.ConsumptionLine{
			{MaterialID: "m-brick", QuantityUsed: 50},
			{MaterialID: "m-cement", QuantityUsed: 10},
		})
	insufficient, ok := domain.AsInsufficientMaterial(err)
	if !ok {
		t.Fatalf("expected insufficiency, got %v", err)
	}
	if insufficient.MaterialID != "m-cement" {
		t.Fatalf("expected m-cement to be short, got %s", insufficient.MaterialID)
	}
	if got := ledger.consumed[ledgerKey("w1", "m-brick")]; got != 0 {
		t.Fatalf("rejected batch must not consume anything, got %.1f for m-brick", got)
	}
}

func TestReportProgressDuplicateMaterialLinesCheckBatchTotal(t *testing.T) {
	ledger := newLedgerRepoFake(workItem("w1", "p1"))
	ledger.deliver("w1", "m-brick", 100)
	uc := NewLedgerUseCase(ledger, newProjectRepoFake(activeProject("p1")), 0)

	// 60+60 split over two lines of the same material exceeds the pool even
	// though each line alone would fit.
	_, err := uc.ReportProgress(context.Background(), foremanID, "w1", nil,
		[]domain.ConsumptionLine{
			{MaterialID: "m-brick", QuantityUsed: 60},
			{MaterialID: "m-brick", QuantityUsed: 60},
		})
	insufficient, ok := domain.AsInsufficientMaterial(err)
	if !ok {
		t.Fatalf("expected insufficiency for the combined batch, got %v", err)
	}
	if insufficient.Requested != 120 || insufficient.Available != 100 {
		t.Fatalf("expected requested 120 against 100 available, got %.1f/%.1f",
			insufficient.Requested, insufficient.Available)
	}
	if got := ledger.consumed[ledgerKey("w1", "m-brick")]; got != 0 {
		t.Fatalf("over-consuming batch must not commit, got %.1f consumed", got)
	}
}

func TestReportProgressMergesDuplicateLinesWithinBudget(t *testing.T) {
	ledger := newLedgerRepoFake(workItem("w1", "p1"))
	ledger.deliver("w1", "m-brick", 100)
	uc := NewLedgerUseCase(ledger, newProjectRepoFake(activeProject("p1")), 0)

	_, err := uc.ReportProgress(context.Background(), foremanID, "w1", nil,
		[]domain.ConsumptionLine{
			{MaterialID: "m-brick", QuantityUsed: 30},
			{MaterialID: "m-brick", QuantityUsed: 20},
		})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if got := ledger.consumed[ledgerKey("w1", "m-brick")]; got != 50 {
		t.Fatalf("expected merged total 50 consumed, got %.1f", got)
	}
}

func TestReportProgressExactBoundaryPasses(t *testing.T) {
	ledger := newLedgerRepoFake(workItem("w1", "p1"))
	ledger.deliver("w1", "m-brick", 0.1+0.2)
	uc := NewLedgerUseCase(ledger, newProjectRepoFake(activeProject("p1")), 0)

	// 0.3 is not representable exactly; the epsilon keeps the exact-boundary
	// report from failing on float noise.
	_, err := uc.ReportProgress(context.Background(), foremanID, "w1", nil,
		[]domain.ConsumptionLine{{MaterialID: "m-brick", QuantityUsed: 0.3}})
	if err != nil {
		t.Fatalf("boundary report: %v", err)
	}
}

func TestReportProgressSkipsZeroLines(t *testing.T) {
	ledger := newLedgerRepoFake(workItem("w1", "p1"))
	uc := NewLedgerUseCase(ledger, newProjectRepoFake(activeProject("p1")), 0)

	if _, err := uc.ReportProgress(context.Background(), foremanID, "w1", ptr(10),
		[]domain.ConsumptionLine{{MaterialID: "m-brick", QuantityUsed: 0}}); err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(ledger.consumed) != 0 {
		t.Fatal("zero lines must not reach the ledger")
	}
}

func TestReportProgressValidation(t *testing.T) {
	ledger := newLedgerRepoFake(workItem("w1", "p1"))
	uc := NewLedgerUseCase(ledger, newProjectRepoFake(activeProject("p1")), 0)

	_, err := uc.ReportProgress(context.Background(), foremanID, "w1", ptr(120), nil)
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for progress 120, got %v", err)
	}

	_, err = uc.ReportProgress(context.Background(), foremanID, "w1", nil,
		[]domain.ConsumptionLine{{MaterialID: "m-brick", QuantityUsed: -1}})
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for negative quantity, got %v", err)
	}

	_, err = uc.ReportProgress(context.Background(), foremanID, "w1", nil,
		[]domain.ConsumptionLine{{QuantityUsed: 1}})
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for missing material_id, got %v", err)
	}
}

func TestReportProgressStatusDerivation(t *testing.T) {
	cases := []struct {
		progress float64
		want     domain.WorkItemStatus
	}{
		{0, domain.WorkItemNotStarted},
		{1, domain.WorkItemInProgress},
		{99.9, domain.WorkItemInProgress},
		{100, domain.WorkItemCompleted},
	}
	for _, tc := range cases {
		ledger := newLedgerRepoFake(workItem("w1", "p1"))
		uc := NewLedgerUseCase(ledger, newProjectRepoFake(activeProject("p1")), 0)
		item, err := uc.ReportProgress(context.Background(), foremanID, "w1", ptr(tc.progress), nil)
		if err != nil {
			t.Fatalf("progress %.1f: %v", tc.progress, err)
		}
		if item.Status != tc.want {
			t.Fatalf("progress %.1f: expected %s, got %s", tc.progress, tc.want, item.Status)
		}
	}
}

func TestReportProgressNeedsActiveProjectMembership(t *testing.T) {
	ledger := newLedgerRepoFake(workItem("w1", "p1"))

	uc := NewLedgerUseCase(ledger, newProjectRepoFake(pendingProject("p1")), 0)
	_, err := uc.ReportProgress(context.Background(), foremanID, "w1", ptr(10), nil)
	if !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden on a pending project, got %v", err)
	}

	outsider := domain.Identity{UserID: "u-other", Role: domain.RoleForeman}
	uc = NewLedgerUseCase(ledger, newProjectRepoFake(activeProject("p1")), 0)
	_, err = uc.ReportProgress(context.Background(), outsider, "w1", ptr(10), nil)
	if !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for a non-member, got %v", err)
	}
}

func TestAvailableMaterialsVisibleToInspector(t *testing.T) {
	ledger := newLedgerRepoFake(workItem("w1", "p1"))
	ledger.deliver("w1", "m-brick", 100)
	uc := NewLedgerUseCase(ledger, newProjectRepoFake(activeProject("p1")), 0)

	available, err := uc.AvailableMaterials(context.Background(), inspectorID, "w1")
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(available) != 1 {
		t.Fatalf("expected one material, got %d", len(available))
	}
}
