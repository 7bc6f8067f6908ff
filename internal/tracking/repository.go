package tracking

import (
	"context"

	"github.com/jengzang/drk-backend-go/internal/models"
)

// Repository is the durable storage the tracker depends on.
// A call that returns nil is considered durable.
type Repository interface {
	CreateSession(ctx context.Context, startAtMs int64) (int64, error)
	FinalizeSession(ctx context.Context, final models.SessionFinal) error
	AppendTrackPoint(ctx context.Context, point models.TrackPoint) error
	GetDailyStat(ctx context.Context, date string) (*models.DailyStat, error)
	UpsertDailyStat(ctx context.Context, stat models.DailyStat) error
	GetPlayerState(ctx context.Context) (*models.PlayerState, error)
	UpsertPlayerState(ctx context.Context, state models.PlayerState) error
	GetAllTitleDefs(ctx context.Context) ([]models.TitleDef, error)
	GetTotalDistance(ctx context.Context) (float64, error)
}

// Transactor is implemented by repositories that can run several calls atomically
type Transactor interface {
	InTx(ctx context.Context, fn func(repo Repository) error) error
}
