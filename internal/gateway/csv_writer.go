package gateway

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"receipt-qa/internal/domain"
)

var (
	receiptHeader = []string{"merchant", "order_id", "amount", "transaction_date", "qa_reason", "valid"}
	anomalyHeader = []string{"merchant", "transaction_date", "daily_txn_count", "prev_day_count", "volume_change"}
)

// CSVReportWriter writes pipeline results as CSV.
type CSVReportWriter struct{}

// NewCSVReportWriter creates a new writer instance.
func NewCSVReportWriter() *CSVReportWriter {
	return &CSVReportWriter{}
}

// WriteReceiptsToFile writes receipts to a CSV file at path.
func (w *CSVReportWriter) WriteReceiptsToFile(path string, receipts []domain.CleanedReceipt) error {
	return writeFile(path, func(out io.Writer) error { return w.WriteReceipts(out, receipts) })
}

// WriteAnomaliesToFile writes anomaly signals to a CSV file at path.
func (w *CSVReportWriter) WriteAnomaliesToFile(path string, signals []domain.AnomalySignal) error {
	return writeFile(path, func(out io.Writer) error { return w.WriteAnomalies(out, signals) })
}

// WriteReceipts writes the cleaned receipts table. Absent values are empty cells.
func (w *CSVReportWriter) WriteReceipts(out io.Writer, receipts []domain.CleanedReceipt) error {
	rows := make([][]string, 0, len(receipts))
	for _, r := range receipts {
		amount := ""
		if r.Amount.Valid {
			amount = r.Amount.Decimal.String()
		}
		rows = append(rows, []string{
			r.Merchant,
			r.OrderID.String(),
			amount,
			r.Date.String(),
			string(r.Reason),
			yesNo(r.Valid),
		})
	}
	return writeCSV(out, receiptHeader, rows)
}

// WriteAnomalies writes the volume anomaly report.
func (w *CSVReportWriter) WriteAnomalies(out io.Writer, signals []domain.AnomalySignal) error {
	rows := make([][]string, 0, len(signals))
	for _, s := range signals {
		rows = append(rows, []string{
			s.Merchant,
			s.Date.String(),
			strconv.Itoa(s.Count),
			strconv.Itoa(s.PrevCount),
			strconv.Itoa(s.Delta),
		})
	}
	return writeCSV(out, anomalyHeader, rows)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return f.Close()
}

func writeCSV(out io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(out)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
