package domain

import "cloud.google.com/go/civil"

// DailyAggregate counts valid transactions for one merchant on one date.
type DailyAggregate struct {
	Merchant string     `json:"merchant"`
	Date     civil.Date `json:"transaction_date"`
	Count    int        `json:"daily_txn_count"`
}

// AnomalySignal flags a day whose volume moved sharply against the previous data-bearing day.
type AnomalySignal struct {
	Merchant  string     `json:"merchant"`
	Date      civil.Date `json:"transaction_date"`
	Count     int        `json:"daily_txn_count"`
	PrevCount int        `json:"prev_day_count"`
	Delta     int        `json:"volume_change"`
}

// Summary provides high-level statistics of a pipeline run.
type Summary struct {
	InputFile         string           `json:"input_file"`
	TotalRecords      int              `json:"total_records"`
	ValidRecords      int              `json:"valid_records"`
	InvalidRecords    int              `json:"invalid_records"`
	ReasonCounts      map[QAReason]int `json:"reason_counts"`
	AnomaliesDetected int              `json:"anomalies_detected"`
}

// PipelineReport is the top-level result of processing one batch.
type PipelineReport struct {
	Summary   Summary          `json:"summary"`
	Receipts  []CleanedReceipt `json:"-"`
	Rejected  []CleanedReceipt `json:"-"`
	Anomalies []AnomalySignal  `json:"anomalies"`
}
