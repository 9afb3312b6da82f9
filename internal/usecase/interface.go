package usecase

import (
	"context"

	"receipt-qa/internal/domain"
)

// ReceiptRepository defines the interface for fetching raw receipt records.
// The usecase layer depends on this interface, not on a concrete implementation.
//
//go:generate mockgen -destination=mocks/mock_repository.go -source=interface.go ReceiptRepository
type ReceiptRepository interface {
	GetRawRecords(ctx context.Context, path string) ([]domain.RawRecord, error)
}
