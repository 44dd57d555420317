package templates

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/core/ports"
)

// catalog is the YAML shape of the checklist template file.
type catalog struct {
	Templates []domain.ChecklistTemplate `yaml:"templates"`
}

// Load reads a template catalog from a YAML file. An empty path returns the
// built-in catalog.
func Load(path string) ([]domain.ChecklistTemplate, error) {
	if path == "" {
		return Builtin(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template catalog: %w", err)
	}

	var c catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse template catalog: %w", err)
	}

	for i := range c.Templates {
		if err := validate(&c.Templates[i]); err != nil {
			return nil, err
		}
	}
	return c.Templates, nil
}

// Seed upserts the catalog into the repository on startup; existing
// completions keep referencing templates by id, so ids must be stable
// across restarts.
func Seed(ctx context.Context, repo ports.ChecklistRepository, templates []domain.ChecklistTemplate) error {
	for i := range templates {
		if err := repo.UpsertTemplate(ctx, &templates[i]); err != nil {
			return fmt.Errorf("seed template %s: %w", templates[i].ID, err)
		}
	}
	return nil
}

func validate(tpl *domain.ChecklistTemplate) error {
	if tpl.ID == "" || tpl.Name == "" {
		return fmt.Errorf("template catalog: id and name are required")
	}
	switch tpl.Type {
	case domain.ChecklistOpening, domain.ChecklistDaily:
	default:
		return fmt.Errorf("template catalog: unknown type %q for %s", tpl.Type, tpl.ID)
	}
	seen := make(map[string]bool, len(tpl.Items))
	for _, item := range tpl.Items {
		if item.ID == "" || item.Text == "" {
			return fmt.Errorf("template catalog: item id and text are required in %s", tpl.ID)
		}
		if seen[item.ID] {
			return fmt.Errorf("template catalog: duplicate item id %s in %s", item.ID, tpl.ID)
		}
		seen[item.ID] = true
	}
	return nil
}

// Builtin is the default catalog: one opening checklist gated by inspector
// approval and one self-serve daily checklist.
func Builtin() []domain.ChecklistTemplate {
	return []domain.ChecklistTemplate{
		{
			ID:                     "opening-default",
			Type:                   domain.ChecklistOpening,
			Name:                   "Чек-лист открытия объекта",
			Description:            "Готовность площадки к началу работ",
			RequiresApproval:       true,
			RequiresInitialization: true,
			Items: []domain.ChecklistItem{
				{ID: "fence", Text: "Ограждение строительной площадки установлено", IsRequired: true, Order: 1},
				{ID: "camp", Text: "Бытовой городок размещен", IsRequired: true, Order: 2},
				{ID: "signage", Text: "Информационный щит установлен", IsRequired: true, Order: 3},
				{ID: "utilities", Text: "Временные сети подключены", IsRequired: false, Order: 4},
			},
		},
		{
			ID:          "daily-default",
			Type:        domain.ChecklistDaily,
			Name:        "Ежедневный чек-лист",
			Description: "Ежедневный контроль состояния площадки",
			Items: []domain.ChecklistItem{
				{ID: "safety", Text: "Требования охраны труда соблюдены", IsRequired: true, Order: 1},
				{ID: "worklog", Text: "Общий журнал работ заполнен", IsRequired: true, Order: 2},
				{ID: "waste", Text: "Строительный мусор вывезен", IsRequired: false, Order: 3},
			},
		},
	}
}
