package models

import "time"

// PartitionStatus is the outcome of one partition within a run.
type PartitionStatus string

// Partition outcomes.
const (
	StatusOK            PartitionStatus = "ok"
	StatusFetchFailed   PartitionStatus = "fetch_failed"
	StatusPublishFailed PartitionStatus = "publish_failed"
	StatusFailed        PartitionStatus = "failed"
	StatusSkipped       PartitionStatus = "skipped"
)

// PartitionReport describes what happened to a single partition key.
type PartitionReport struct {
	Key          string          `json:"key"`
	Status       PartitionStatus `json:"status"`
	ArtifactPath string          `json:"artifactPath,omitempty"`
	Error        string          `json:"error,omitempty"`
	Items        int             `json:"items"`
	Duration     time.Duration   `json:"durationNs"`
}

// RunReport summarises one orchestration pass.
type RunReport struct {
	StartedAt   time.Time         `json:"startedAt"`
	FinishedAt  time.Time         `json:"finishedAt"`
	RunID       string            `json:"runId"`
	CaptureDate string            `json:"captureDate"`
	Partitions  []PartitionReport `json:"partitions"`
}

// Failed returns the number of partitions that did not finish with StatusOK.
func (r *RunReport) Failed() int {
	n := 0

	for _, p := range r.Partitions {
		if p.Status != StatusOK {
			n++
		}
	}

	return n
}

// TotalItems returns the number of rows produced across all partitions.
func (r *RunReport) TotalItems() int {
	total := 0
	for _, p := range r.Partitions {
		total += p.Items
	}

	return total
}
