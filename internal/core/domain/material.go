package domain

import "time"

type Material struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Unit string `json:"unit"`
}

type WorkItemStatus string

const (
	WorkItemNotStarted WorkItemStatus = "not_started"
	WorkItemInProgress WorkItemStatus = "in_progress"
	WorkItemCompleted  WorkItemStatus = "completed"
)

// StatusForProgress derives the work item status from its progress
// percentage. Progress is clamped by validation before this is called.
func StatusForProgress(progress float64) WorkItemStatus {
	switch {
	case progress <= 0:
		return WorkItemNotStarted
	case progress >= 100:
		return WorkItemCompleted
	default:
		return WorkItemInProgress
	}
}

type RequiredMaterial struct {
	MaterialID      string  `json:"material_id"`
	MaterialName    string  `json:"material_name,omitempty"`
	Unit            string  `json:"unit,omitempty"`
	PlannedQuantity float64 `json:"planned_quantity"`
}

type WorkPlanItem struct {
	ID                string             `json:"id"`
	ProjectID         string             `json:"project_id"`
	Name              string             `json:"name"`
	PlannedQuantity   float64            `json:"planned_quantity"`
	Unit              string             `json:"unit"`
	StartDate         *time.Time         `json:"start_date,omitempty"`
	EndDate           *time.Time         `json:"end_date,omitempty"`
	Progress          float64            `json:"progress"`
	Status            WorkItemStatus     `json:"status"`
	RequiredMaterials []RequiredMaterial `json:"required_materials,omitempty"`
}

// MaterialDelivery rows are created only by verifying a recognized delivery
// document; that is the single path by which delivered totals grow.
type MaterialDelivery struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	DocumentID   string    `json:"document_id"`
	MaterialID   string    `json:"material_id"`
	Quantity     float64   `json:"quantity"`
	DeliveredAt  time.Time `json:"delivered_at"`
	RecordedByID string    `json:"recorded_by_id"`
}

type MaterialConsumption struct {
	ID           string    `json:"id"`
	WorkItemID   string    `json:"work_item_id"`
	MaterialID   string    `json:"material_id"`
	QuantityUsed float64   `json:"quantity_used"`
	ForemanID    string    `json:"foreman_id"`
	ConsumedAt   time.Time `json:"consumed_at"`
}

type ConsumptionLine struct {
	MaterialID   string  `json:"material_id"`
	QuantityUsed float64 `json:"quantity_used"`
}

type AvailableMaterial struct {
	MaterialID        string  `json:"material_id"`
	MaterialName      string  `json:"material_name"`
	Unit              string  `json:"unit"`
	AvailableQuantity float64 `json:"available_quantity"`
}

// MaterialBalance aggregates the ledger for reporting.
type MaterialBalance struct {
	MaterialID   string  `json:"material_id"`
	MaterialName string  `json:"material_name"`
	Unit         string  `json:"unit"`
	Delivered    float64 `json:"delivered"`
	Consumed     float64 `json:"consumed"`
	Available    float64 `json:"available"`
}
