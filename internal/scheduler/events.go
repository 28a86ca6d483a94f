package scheduler

import (
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/eventbus"
)

// eventbusUpdate builds the {type: "job_update", job_id, status, ...}
// broadcast shape of spec §4.9/§6.
func eventbusUpdate(jobID, status string) eventbus.JobUpdate {
	return eventbus.JobUpdate{
		Type:      "job_update",
		JobID:     jobID,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
