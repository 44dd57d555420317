package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/core/ports"
)

func completedDocument(id, projectID string) *domain.DeliveryDocument {
	return &domain.DeliveryDocument{
		ID:        id,
		ProjectID: projectID,
		Status:    domain.RecognitionCompleted,
		Recognized: &domain.RecognizedData{
			DocumentNumber:  "ТТН-1042",
			Supplier:        "ООО СтройПоставка",
			DeliveryAddress: "Москва, ул. Строителей 1",
			Items: []domain.RecognizedItem{
				{Name: "Кирпич керамический", Unit: "шт", Quantity: 5000},
				{Name: "Цемент М500", Unit: "мешок", Quantity: 40},
			},
		},
	}
}

func newRecognitionUC(docs ports.DocumentRepository, projects ports.ProjectRepository, geo ports.Geocoder) *RecognitionUseCase {
	return NewRecognitionUseCase(docs, projects, &storageFake{}, &queueFake{}, geo)
}

func TestUploadStoresAndEnqueues(t *testing.T) {
	projects := newProjectRepoFake(activeProject("p1"))
	docs := newDocumentRepoFake()
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewRecognitionUseCase(docs, projects, storage, queue, nil)

	doc, err := uc.Upload(context.Background(), foremanID, "p1", "ттн 1042.pdf", "application/pdf",
		strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.Status != domain.RecognitionPending {
		t.Fatalf("new document must be pending, got %s", doc.Status)
	}
	if len(storage.saved) != 1 {
		t.Fatalf("expected one stored object, got %d", len(storage.saved))
	}
	if strings.ContainsAny(storage.saved[0], " /") {
		t.Fatalf("storage key must be sanitized, got %q", storage.saved[0])
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("expected one job for %s, got %v", doc.ID, queue.published)
	}
}

func TestUploadRequiresActiveProject(t *testing.T) {
	uc := newRecognitionUC(newDocumentRepoFake(), newProjectRepoFake(pendingProject("p1")), nil)

	_, err := uc.Upload(context.Background(), foremanID, "p1", "ttn.pdf", "application/pdf",
		strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden on a pending project, got %v", err)
	}
}

func TestSuggestProjectPicksNearest(t *testing.T) {
	moscow := activeProject("p-moscow")
	lat, lon := 55.7558, 37.6173
	moscow.Latitude, moscow.Longitude = &lat, &lon

	spb := activeProject("p-spb")
	spb.ID, spb.Name = "p-spb", "ЖК Балтийский"
	slat, slon := 59.9343, 30.3351
	spb.Latitude, spb.Longitude = &slat, &slon

	docs := newDocumentRepoFake(completedDocument("d1", "p-moscow"))
	geo := &geocoderFake{location: domain.Coordinates{Latitude: 55.79, Longitude: 37.70}}
	uc := newRecognitionUC(docs, newProjectRepoFake(moscow, spb), geo)

	suggestion, err := uc.SuggestProject(context.Background(), foremanID, "d1")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if suggestion.Project.ID != "p-moscow" {
		t.Fatalf("expected the Moscow project, got %s", suggestion.Project.ID)
	}
	if suggestion.DistanceKm <= 0 || suggestion.DistanceKm > 20 {
		t.Fatalf("implausible distance %.1f km", suggestion.DistanceKm)
	}
}

func TestSuggestProjectRequiresCompletedRecognition(t *testing.T) {
	doc := completedDocument("d1", "p1")
	doc.Status = domain.RecognitionProcessing
	uc := newRecognitionUC(newDocumentRepoFake(doc), newProjectRepoFake(activeProject("p1")), &geocoderFake{})

	_, err := uc.SuggestProject(context.Background(), foremanID, "d1")
	if !domain.IsKind(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure while processing, got %v", err)
	}
}

func TestSuggestProjectWithoutAddress(t *testing.T) {
	doc := completedDocument("d1", "p1")
	doc.Recognized.DeliveryAddress = "  "
	uc := newRecognitionUC(newDocumentRepoFake(doc), newProjectRepoFake(activeProject("p1")), &geocoderFake{})

	_, err := uc.SuggestProject(context.Background(), foremanID, "d1")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found without a delivery address, got %v", err)
	}
}

func TestVerifyRecordsDeliveriesOnce(t *testing.T) {
	docs := newDocumentRepoFake(completedDocument("d1", "p1"))
	uc := newRecognitionUC(docs, newProjectRepoFake(activeProject("p1")), nil)

	if err := uc.Verify(context.Background(), foremanID, "d1", "p1", nil); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if docs.deliveries != 2 {
		t.Fatalf("expected two delivery rows, got %d", docs.deliveries)
	}

	err := uc.Verify(context.Background(), foremanID, "d1", "p1", nil)
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on second verify, got %v", err)
	}
	if docs.deliveries != 2 {
		t.Fatalf("second verify must not add deliveries, got %d", docs.deliveries)
	}
}

func TestVerifyAcceptsOperatorEdits(t *testing.T) {
	docs := newDocumentRepoFake(completedDocument("d1", "p1"))
	uc := newRecognitionUC(docs, newProjectRepoFake(activeProject("p1")), nil)

	err := uc.Verify(context.Background(), foremanID, "d1", "p1", []domain.RecognizedItem{
		{Name: "Кирпич керамический", Unit: "шт", Quantity: 4800},
		{Name: "   ", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("verify with edits: %v", err)
	}
	if docs.deliveries != 1 {
		t.Fatalf("blank-name lines must be skipped, got %d rows", docs.deliveries)
	}
}

func TestVerifyRejectsNonPositiveQuantity(t *testing.T) {
	docs := newDocumentRepoFake(completedDocument("d1", "p1"))
	uc := newRecognitionUC(docs, newProjectRepoFake(activeProject("p1")), nil)

	err := uc.Verify(context.Background(), foremanID, "d1", "p1", []domain.RecognizedItem{
		{Name: "Цемент М500", Quantity: 0},
	})
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}
	if docs.deliveries != 0 {
		t.Fatal("failed verify must not record deliveries")
	}
}

func TestVerifyRequiresCompletedRecognition(t *testing.T) {
	doc := completedDocument("d1", "p1")
	doc.Status = domain.RecognitionFailed
	uc := newRecognitionUC(newDocumentRepoFake(doc), newProjectRepoFake(activeProject("p1")), nil)

	err := uc.Verify(context.Background(), foremanID, "d1", "p1", nil)
	if !domain.IsKind(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure for failed document, got %v", err)
	}
}
