package calendar

import (
	"svitlo/internal/entity"
	"svitlo/internal/integration"
)

var _ entity.Entity = (*Calendar)(nil)

func init() {
	integration.Register(integration.PlatformInfo{
		Name:        "calendar",
		Description: "Outage calendar built from the half-hour schedule",
		Priority:    integration.PriorityDefault,
		Order:       10,
		Factory:     createPlatform,
	})
}

func createPlatform(pctx *integration.PlatformContext) ([]entity.Entity, error) {
	cal, err := New(pctx.Coordinator, Options{
		Location:            pctx.Location,
		MergeAcrossMidnight: pctx.MergeAcrossMidnight,
		Labeler:             pctx.Labeler,
	}, pctx.Logger)
	if err != nil {
		return nil, err
	}
	return []entity.Entity{cal}, nil
}
