package domain

import "time"

type RecognitionStatus string

const (
	RecognitionPending    RecognitionStatus = "pending"
	RecognitionProcessing RecognitionStatus = "processing"
	RecognitionCompleted  RecognitionStatus = "completed"
	RecognitionFailed     RecognitionStatus = "failed"
)

func (s RecognitionStatus) Terminal() bool {
	return s == RecognitionCompleted || s == RecognitionFailed
}

// RecognizedItem is one material line extracted from a delivery note.
type RecognizedItem struct {
	Name     string  `json:"name"`
	Unit     string  `json:"unit"`
	Quantity float64 `json:"quantity"`
}

type RecognizedData struct {
	DocumentNumber  string           `json:"document_number,omitempty"`
	DocumentDate    string           `json:"document_date,omitempty"`
	Supplier        string           `json:"supplier,omitempty"`
	DeliveryAddress string           `json:"delivery_address,omitempty"`
	Items           []RecognizedItem `json:"items"`
}

// DeliveryDocument is an uploaded TTN moving through the asynchronous
// recognition pipeline. Status transitions are driven by the worker;
// Verified flips exactly once, when a human confirms the recognized data.
type DeliveryDocument struct {
	ID           string            `json:"id"`
	ProjectID    string            `json:"project_id"`
	UploaderID   string            `json:"uploader_id"`
	Filename     string            `json:"filename"`
	MimeType     string            `json:"mime_type"`
	StoragePath  string            `json:"storage_path"`
	Status       RecognitionStatus `json:"recognition_status"`
	Recognized   *RecognizedData   `json:"recognized_data,omitempty"`
	Error        string            `json:"error,omitempty"`
	Verified     bool              `json:"verified"`
	VerifiedByID string            `json:"verified_by_id,omitempty"`
	VerifiedAt   *time.Time        `json:"verified_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ProjectSuggestion proposes the nearest project for a recognized delivery
// address. Advisory only; it never assigns the document by itself.
type ProjectSuggestion struct {
	Project    Project     `json:"project"`
	DistanceKm float64     `json:"distance_km"`
	Address    string      `json:"delivery_address"`
	Location   Coordinates `json:"delivery_coordinates"`
}
