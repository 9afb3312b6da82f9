package gateway

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"receipt-qa/internal/domain"
)

// RawDelimiter separates columns in the raw receipts file. Only the first
// column is receipt text.
const RawDelimiter = '|'

// TextReceiptRepository implements the ReceiptRepository interface for
// pipe-delimited text files.
type TextReceiptRepository struct {
	newID func() string
}

// NewTextReceiptRepository creates a new repository instance.
func NewTextReceiptRepository() *TextReceiptRepository {
	return &TextReceiptRepository{newID: uuid.NewString}
}

// GetRawRecords reads the raw receipts file, skipping its header line.
func (r *TextReceiptRepository) GetRawRecords(ctx context.Context, path string) ([]domain.RawRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw receipts file %s: %w", path, err)
	}
	defer file.Close()

	records, err := r.ReadRawRecords(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ReadRawRecords reads raw records from in. Blank lines are skipped, and
// Line counts source lines after the header.
func (r *TextReceiptRepository) ReadRawRecords(ctx context.Context, in io.Reader) ([]domain.RawRecord, error) {
	reader := csv.NewReader(in)
	reader.Comma = RawDelimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	// Skip header
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read header: empty file")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	headerLine, _ := reader.FieldPos(0)

	var records []domain.RawRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading record: %w", err)
		}
		text := strings.TrimSpace(fields[0])
		if text == "" {
			continue
		}
		line, _ := reader.FieldPos(0)
		records = append(records, domain.RawRecord{
			ID:   r.newID(),
			Line: line - headerLine,
			Text: text,
		})
	}
	return records, nil
}
