package audit

import (
	"context"
	"sort"

	"github.com/wonny/tradebot/internal/contracts"
)

// Recent returns the latest execution records, newest first.
// pipelineName filters by pipeline when not empty; limit <= 0 means all.
func Recent(ctx context.Context, repo contracts.Repository[contracts.PipelineExecutionRecord], pipelineName string, limit int) ([]contracts.PipelineExecutionRecord, error) {
	var pred contracts.Predicate[contracts.PipelineExecutionRecord]
	if pipelineName != "" {
		pred = func(r contracts.PipelineExecutionRecord) bool { return r.Pipeline == pipelineName }
	}

	records, err := repo.GetAll(ctx, pred)
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
