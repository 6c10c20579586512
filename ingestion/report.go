package ingestion

import "fmt"

// maxSampleFailures bounds FailedIDs in a BatchReport.
const maxSampleFailures = 10

// BatchReport summarizes one ingestion or drain batch.
type BatchReport struct {
	Total     int
	Inserted  int
	Updated   int
	Skipped   int // malformed items
	Queued    int // upserted without a vector, waiting on the retry queue
	Embedded  int
	FailedIDs []string // sample of skipped or queued item ids
}

// Merge adds other's counts into r.
func (r *BatchReport) Merge(other *BatchReport) {
	if other == nil {
		return
	}
	r.Total += other.Total
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Queued += other.Queued
	r.Embedded += other.Embedded
	for _, id := range other.FailedIDs {
		r.addFailure(id)
	}
}

func (r *BatchReport) addFailure(id string) {
	if len(r.FailedIDs) < maxSampleFailures {
		r.FailedIDs = append(r.FailedIDs, id)
	}
}

func (r *BatchReport) String() string {
	return fmt.Sprintf("total=%d inserted=%d updated=%d skipped=%d queued=%d embedded=%d",
		r.Total, r.Inserted, r.Updated, r.Skipped, r.Queued, r.Embedded)
}
