package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KoTeHok22/locus/internal/core/domain"
)

func TestLoadParsesCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	const body = `
templates:
  - id: opening-site
    type: opening
    name: Открытие объекта
    requires_approval: true
    requires_initialization: true
    items:
      - id: fence
        text: Ограждение установлено
        is_required: true
        order: 1
  - id: daily-site
    type: daily
    name: Ежедневный осмотр
    items:
      - id: safety
        text: Техника безопасности
        is_required: true
        order: 1
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	templates, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(templates))
	}
	if templates[0].Type != domain.ChecklistOpening || !templates[0].RequiresApproval {
		t.Fatalf("unexpected opening template %+v", templates[0])
	}
	if templates[1].Items[0].ID != "safety" {
		t.Fatalf("unexpected daily items %+v", templates[1].Items)
	}
}

func TestLoadRejectsUnknownType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	const body = `
templates:
  - id: weekly-site
    type: weekly
    name: Еженедельный
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown checklist type")
	}
}

func TestLoadRejectsDuplicateItemIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	const body = `
templates:
  - id: opening-site
    type: opening
    name: Открытие
    items:
      - id: fence
        text: Ограждение
      - id: fence
        text: Ограждение повторно
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for duplicate item ids")
	}
}

func TestBuiltinCatalogIsValid(t *testing.T) {
	for _, tpl := range Builtin() {
		tpl := tpl
		if err := validate(&tpl); err != nil {
			t.Fatalf("builtin template %s: %v", tpl.ID, err)
		}
	}
}
