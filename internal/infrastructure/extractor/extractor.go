package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/core/ports"
)

// Extractor turns a stored delivery note into recognizer input: plain text
// for born-digital PDFs and text files, a base64 payload for scans. A PDF
// that yields no text is treated as a scan and re-encoded as an image
// payload for the vision model.
type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.DeliveryDocument) (ports.RecognitionInput, error) {
	f, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return ports.RecognitionInput{}, fmt.Errorf("open stored document: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return ports.RecognitionInput{}, fmt.Errorf("read stored document: %w", err)
	}

	switch {
	case doc.MimeType == "application/pdf":
		text, err := pdfText(content)
		if err != nil {
			return ports.RecognitionInput{}, err
		}
		if strings.TrimSpace(text) != "" {
			return ports.RecognitionInput{Text: text, MimeType: doc.MimeType}, nil
		}
		// Scanned PDF: no text layer, hand the raw bytes to the vision model.
		return ports.RecognitionInput{
			ImageBase64: base64.StdEncoding.EncodeToString(content),
			MimeType:    doc.MimeType,
		}, nil

	case strings.HasPrefix(doc.MimeType, "image/"):
		return ports.RecognitionInput{
			ImageBase64: base64.StdEncoding.EncodeToString(content),
			MimeType:    doc.MimeType,
		}, nil

	case strings.HasPrefix(doc.MimeType, "text/"):
		return ports.RecognitionInput{Text: string(content), MimeType: doc.MimeType}, nil

	default:
		return ports.RecognitionInput{}, domain.WrapError(domain.ErrValidation, "extract document",
			fmt.Errorf("unsupported mime type %s", doc.MimeType))
	}
}

func pdfText(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A broken page does not void the rest of the document.
			continue
		}
		if text != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(text)
		}
	}
	return b.String(), nil
}
