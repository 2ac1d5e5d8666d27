package repository

import (
	"context"

	"github.com/nijaru/yt-digest/models"
)

// RunRepository stores the log of analysis attempts.
type RunRepository interface {
	Start(ctx context.Context, run *models.Run) error
	Finish(ctx context.Context, id string, status models.RunStatus, errMsg string) error
	Recent(ctx context.Context, limit int) ([]*models.Run, error)
	Latest(ctx context.Context, videoID string) (*models.Run, error)
}
