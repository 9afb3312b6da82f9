package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipt-qa/internal/anomaly"
	"receipt-qa/internal/domain"
	"receipt-qa/internal/logger"
	"receipt-qa/internal/receipt"
	"receipt-qa/internal/usecase"
	mock_usecase "receipt-qa/internal/usecase/mocks"
)

func newPipeline(repo usecase.ReceiptRepository, opts receipt.ParserOptions) *usecase.PipelineUseCase {
	return usecase.NewPipelineUseCase(
		repo,
		receipt.NewParser(receipt.DefaultRegistry(), opts),
		receipt.NewNormalizer(receipt.DefaultAliases()),
		receipt.NewValidator(),
		anomaly.NewDetector(anomaly.DefaultThreshold),
	)
}

func raw(id, text string) domain.RawRecord {
	return domain.RawRecord{ID: id, Text: text}
}

// reasonCounts returns a count for every QA reason, zero unless set in counts.
func reasonCounts(counts map[domain.QAReason]int) map[domain.QAReason]int {
	out := make(map[domain.QAReason]int, len(domain.QAReasons))
	for _, reason := range domain.QAReasons {
		out[reason] = counts[reason]
	}
	return out
}

func TestPipelineUseCase_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	inputPath := "/examples/raw_data.csv"

	tests := []struct {
		name         string
		records      []domain.RawRecord
		repoError    error
		wantSummary  domain.Summary
		wantReasons  []domain.QAReason
		wantRejected []string
		wantSignals  []domain.AnomalySignal
		wantErr      bool
	}{
		{
			name: "mixed batch with a volume spike",
			records: []domain.RawRecord{
				raw("r1", "Amazon.in: Order #12-345 confirmed. Paid Rs. 1,200 on 05/01-2025"),
				raw("r2", "Swiggy order 884422 amount -150 completed 2025-01-07"),
				raw("r3", "Hello world"),
				raw("r4", "Flipkart payment id FK-1 sent 20000 Date: 12/02/2025"),
				raw("r5", "Uber Trip on 10 Jan cost 250"),
				raw("r6", "Uber Trip on 11 Jan cost 120"),
				raw("r7", "Uber Trip on 11 Jan cost 90"),
				raw("r8", "Uber Trip on 11 Jan cost 300"),
				raw("r9", "Uber Trip on 11 Jan cost 75"),
			},
			wantSummary: domain.Summary{
				InputFile:      inputPath,
				TotalRecords:   9,
				ValidRecords:   6,
				InvalidRecords: 3,
				ReasonCounts: reasonCounts(map[domain.QAReason]int{
					domain.ReasonOK:             6,
					domain.ReasonNegativeAmount: 1,
					domain.ReasonInvalidDate:    1,
					domain.ReasonAmountTooHigh:  1,
				}),
				AnomaliesDetected: 1,
			},
			wantReasons: []domain.QAReason{
				domain.ReasonOK,
				domain.ReasonNegativeAmount,
				domain.ReasonInvalidDate,
				domain.ReasonAmountTooHigh,
				domain.ReasonOK,
				domain.ReasonOK,
				domain.ReasonOK,
				domain.ReasonOK,
				domain.ReasonOK,
			},
			wantRejected: []string{"r2", "r3", "r4"},
			wantSignals: []domain.AnomalySignal{
				{Merchant: "Uber", Date: civil.Date{Year: 2025, Month: 1, Day: 11}, Count: 4, PrevCount: 1, Delta: 3},
			},
		},
		{
			name:    "empty batch",
			records: []domain.RawRecord{},
			wantSummary: domain.Summary{
				InputFile:    inputPath,
				ReasonCounts: reasonCounts(nil),
			},
			wantReasons:  []domain.QAReason{},
			wantRejected: []string{},
			wantSignals:  []domain.AnomalySignal{},
		},
		{
			name:      "repository error",
			repoError: errors.New("failed to read raw records"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := mock_usecase.NewMockReceiptRepository(ctrl)
			if tt.repoError != nil {
				mRepo.EXPECT().
					GetRawRecords(gomock.Any(), inputPath).
					Return(nil, tt.repoError)
			} else {
				mRepo.EXPECT().
					GetRawRecords(gomock.Any(), inputPath).
					Return(tt.records, nil)
			}

			uc := newPipeline(mRepo, receipt.ParserOptions{})
			got, gotErr := uc.Run(context.Background(), inputPath)

			if tt.wantErr {
				assert.ErrorIs(t, gotErr, tt.repoError)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, gotErr)
			require.NotNil(t, got)

			assert.Equal(t, tt.wantSummary, got.Summary)

			reasons := make([]domain.QAReason, 0, len(got.Receipts))
			for i, r := range got.Receipts {
				reasons = append(reasons, r.Reason)
				assert.Equal(t, tt.records[i].ID, r.RecordID, "receipt %d must trace to its raw record", i)
			}
			assert.Equal(t, tt.wantReasons, reasons)

			rejected := make([]string, 0, len(got.Rejected))
			for _, r := range got.Rejected {
				assert.False(t, r.Valid)
				rejected = append(rejected, r.RecordID)
			}
			assert.Equal(t, tt.wantRejected, rejected)

			assert.Equal(t, tt.wantSignals, got.Anomalies)
		})
	}
}

func TestPipelineUseCase_Run_MatchMode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	records := []domain.RawRecord{
		raw("r1", "Paid via amazon pay: Swiggy order 5 amount 200 completed 01-02-2025"),
	}

	tests := []struct {
		name         string
		mode         receipt.MatchMode
		wantMerchant string
		wantReason   domain.QAReason
	}{
		{name: "first key", mode: receipt.MatchFirstKey, wantMerchant: domain.UnknownMerchant, wantReason: domain.ReasonInvalidDate},
		{name: "fallthrough", mode: receipt.MatchFallthrough, wantMerchant: "Swiggy", wantReason: domain.ReasonOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := mock_usecase.NewMockReceiptRepository(ctrl)
			mRepo.EXPECT().GetRawRecords(gomock.Any(), "in.csv").Return(records, nil)

			got, err := newPipeline(mRepo, receipt.ParserOptions{Mode: tt.mode}).Run(context.Background(), "in.csv")
			require.NoError(t, err)
			require.Len(t, got.Receipts, 1)

			assert.Equal(t, tt.wantMerchant, got.Receipts[0].Merchant)
			assert.Equal(t, tt.wantReason, got.Receipts[0].Reason)
		})
	}
}

func TestPipelineUseCase_Run_Cancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	mRepo := mock_usecase.NewMockReceiptRepository(ctrl)
	mRepo.EXPECT().
		GetRawRecords(gomock.Any(), "in.csv").
		DoAndReturn(func(context.Context, string) ([]domain.RawRecord, error) {
			cancel()
			return []domain.RawRecord{raw("r1", "Uber Trip on 10 Jan cost 250")}, nil
		})

	got, err := newPipeline(mRepo, receipt.ParserOptions{}).Run(ctx, "in.csv")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}

func TestPipelineUseCase_Run_DebugLogs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	records := []domain.RawRecord{
		{ID: "r1", Line: 1, Text: "Uber Trip on 10 Jan cost 250"},
		{ID: "r2", Line: 3, Text: "Hello world"},
		{ID: "r3", Line: 4, Text: "Swiggy order 9 amount -5 completed 01-01-2025"},
	}
	mRepo := mock_usecase.NewMockReceiptRepository(ctrl)
	mRepo.EXPECT().GetRawRecords(gomock.Any(), "in.csv").Return(records, nil)

	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf, "debug"))

	_, err := newPipeline(mRepo, receipt.ParserOptions{}).Run(ctx, "in.csv")
	require.NoError(t, err)

	var unknown, failed []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		switch {
		case strings.Contains(line, `"message":"unknown merchant"`):
			unknown = append(unknown, line)
		case strings.Contains(line, `"message":"record failed QA"`):
			failed = append(failed, line)
		}
	}

	require.Len(t, unknown, 1)
	assert.Contains(t, unknown[0], `"record_id":"r2"`)
	assert.Contains(t, unknown[0], `"line":3`)

	require.Len(t, failed, 2)
	assert.Contains(t, failed[0], `"record_id":"r2"`)
	assert.Contains(t, failed[0], `"qa_reason":"Invalid Date"`)
	assert.Contains(t, failed[1], `"record_id":"r3"`)
	assert.Contains(t, failed[1], `"line":4`)
	assert.Contains(t, failed[1], `"qa_reason":"Negative Amount"`)
}

func TestPipelineUseCase_Clean(t *testing.T) {
	uc := newPipeline(nil, receipt.ParserOptions{})

	got := uc.Clean(raw("r1", "Swiggy order 42 amount 350 completed 07-01-2025"))

	assert.Equal(t, "r1", got.RecordID)
	assert.Equal(t, "Swiggy", got.Merchant)
	assert.Equal(t, "42", got.OrderID.String())
	assert.Equal(t, "350", got.Amount.Decimal.String())
	assert.Equal(t, "2025-01-07", got.Date.String())
	assert.Equal(t, domain.QAResult{Valid: true, Reason: domain.ReasonOK}, got.QAResult)
}
