package usecase

import (
	"context"
	"fmt"

	"receipt-qa/internal/anomaly"
	"receipt-qa/internal/domain"
	"receipt-qa/internal/logger"
	"receipt-qa/internal/receipt"
)

// PipelineUseCase orchestrates extraction, normalization, QA and anomaly detection.
type PipelineUseCase struct {
	repo       ReceiptRepository
	parser     *receipt.Parser
	normalizer *receipt.Normalizer
	validator  *receipt.Validator
	detector   *anomaly.Detector
}

// NewPipelineUseCase creates a new instance of the usecase.
func NewPipelineUseCase(
	repo ReceiptRepository,
	parser *receipt.Parser,
	normalizer *receipt.Normalizer,
	validator *receipt.Validator,
	detector *anomaly.Detector,
) *PipelineUseCase {
	return &PipelineUseCase{
		repo:       repo,
		parser:     parser,
		normalizer: normalizer,
		validator:  validator,
		detector:   detector,
	}
}

// Run processes every record of the input file once.
func (uc *PipelineUseCase) Run(ctx context.Context, inputPath string) (*domain.PipelineReport, error) {
	log := logger.FromContext(ctx)

	// Step 1: Data Ingestion
	raws, err := uc.repo.GetRawRecords(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("could not get raw records: %w", err)
	}
	log.Info().Str("input", inputPath).Int("records", len(raws)).Msg("raw records loaded")

	report := domain.PipelineReport{
		Summary: domain.Summary{
			InputFile:    inputPath,
			TotalRecords: len(raws),
			ReasonCounts: make(map[domain.QAReason]int, len(domain.QAReasons)),
		},
		Receipts:  make([]domain.CleanedReceipt, 0, len(raws)),
		Rejected:  make([]domain.CleanedReceipt, 0),
		Anomalies: make([]domain.AnomalySignal, 0),
	}
	for _, reason := range domain.QAReasons {
		report.Summary.ReasonCounts[reason] = 0
	}

	// Step 2: Parse, normalize and validate each record independently
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recLog := logger.WithFields(log, map[string]interface{}{
			"record_id": raw.ID,
			"line":      raw.Line,
		})

		parsed := uc.parser.Parse(raw)
		if parsed.IsUnknown() {
			recLog.Debug().Msg("unknown merchant")
		}
		cleaned := uc.finish(parsed)
		report.Receipts = append(report.Receipts, cleaned)
		report.Summary.ReasonCounts[cleaned.Reason]++

		if cleaned.Valid {
			report.Summary.ValidRecords++
			continue
		}
		report.Summary.InvalidRecords++
		report.Rejected = append(report.Rejected, cleaned)
		recLog.Debug().
			Str("merchant", cleaned.Merchant).
			Str("qa_reason", string(cleaned.Reason)).
			Msg("record failed QA")
	}

	// Step 3: Volume anomalies over the full valid set
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report.Anomalies = uc.detector.Detect(report.Receipts)
	report.Summary.AnomaliesDetected = len(report.Anomalies)

	log.Info().
		Int("valid", report.Summary.ValidRecords).
		Int("invalid", report.Summary.InvalidRecords).
		Int("anomalies", report.Summary.AnomaliesDetected).
		Int("threshold", uc.detector.Threshold()).
		Msg("pipeline finished")

	return &report, nil
}

// Clean runs one raw record through parser, normalizer and validator.
func (uc *PipelineUseCase) Clean(raw domain.RawRecord) domain.CleanedReceipt {
	return uc.finish(uc.parser.Parse(raw))
}

func (uc *PipelineUseCase) finish(parsed domain.ParsedRecord) domain.CleanedReceipt {
	normalized := uc.normalizer.Normalize(parsed)
	return domain.CleanedReceipt{
		NormalizedRecord: normalized,
		QAResult:         uc.validator.Validate(normalized),
	}
}
