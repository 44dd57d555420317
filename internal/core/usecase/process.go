package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/core/ports"
)

// ProcessDocumentUseCase runs on the worker: it drives an uploaded delivery
// note through processing → completed|failed, extracting content and calling
// the recognition backend in between.
type ProcessDocumentUseCase struct {
	docs       ports.DocumentRepository
	extractor  ports.TextExtractor
	recognizer ports.DocumentRecognizer
}

func NewProcessDocumentUseCase(
	docs ports.DocumentRepository,
	extractor ports.TextExtractor,
	recognizer ports.DocumentRecognizer,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		docs:       docs,
		extractor:  extractor,
		recognizer: recognizer,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.docs.UpdateStatus(ctx, documentID, domain.RecognitionProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	data, err := uc.recognitionPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.docs.UpdateStatus(ctx, documentID, domain.RecognitionFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.docs.SaveRecognized(ctx, documentID, data); err != nil {
		if failErr := uc.docs.UpdateStatus(ctx, documentID, domain.RecognitionFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("save recognized data: %w", err)
	}

	if err := uc.docs.UpdateStatus(ctx, documentID, domain.RecognitionCompleted, ""); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) recognitionPipeline(ctx context.Context, documentID string) (*domain.RecognizedData, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}

	input, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract document content: %w", err)
	}
	if input.Text == "" && input.ImageBase64 == "" {
		return nil, domain.WrapError(domain.ErrValidation, "extract document content",
			errors.New("document yielded no recognizable content"))
	}

	data, err := uc.recognizer.Recognize(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("recognize document: %w", err)
	}
	if len(data.Items) == 0 {
		return nil, domain.WrapError(domain.ErrValidation, "recognize document",
			errors.New("no material lines recognized"))
	}
	return data, nil
}
