package sensor

import (
	"svitlo/internal/entity"
	"svitlo/internal/integration"
)

var _ entity.Entity = (*Status)(nil)

func init() {
	integration.Register(integration.PlatformInfo{
		Name:        "sensor",
		Description: "Power status and time until the next outage",
		Priority:    integration.PriorityDefault,
		Order:       20,
		Factory:     createPlatform,
	})
}

func createPlatform(pctx *integration.PlatformContext) ([]entity.Entity, error) {
	status, err := New(pctx.Coordinator, Options{
		Location:            pctx.Location,
		MergeAcrossMidnight: pctx.MergeAcrossMidnight,
		Labeler:             pctx.Labeler,
	}, pctx.Logger)
	if err != nil {
		return nil, err
	}
	return []entity.Entity{status}, nil
}
