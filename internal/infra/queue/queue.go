package queue

import (
	"encoding/json"
	"fmt"

	"video-recs/internal/domain"
)

// decodeJob разбирает полезную нагрузку задания аудита.
func decodeJob(payload []byte) (domain.AuditJob, error) {
	var job domain.AuditJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return domain.AuditJob{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}
