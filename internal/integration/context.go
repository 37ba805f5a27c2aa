package integration

import (
	"time"

	"svitlo/internal/coordinator"
	"svitlo/internal/entity"

	"go.uber.org/zap"
)

// PlatformContext is what a platform factory gets to build its entities.
type PlatformContext struct {
	Coordinator *coordinator.Coordinator

	// Location anchors the wall-clock times of the schedule.
	Location *time.Location

	MergeAcrossMidnight bool

	// Labeler names the entry's device. May be nil.
	Labeler entity.Labeler

	// Logger is already named after the entry.
	Logger *zap.Logger
}

// Factory creates the entities of one platform for one entry.
type Factory func(pctx *PlatformContext) ([]entity.Entity, error)
