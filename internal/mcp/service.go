package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/fitnesstracker/internal/workouts"
)

const dateLayout = "2006-01-02"

var ErrInvalidRange = errors.New("from_date is after to_date")

type prsRepo interface {
	ListPRs(ctx context.Context, userID string) ([]map[string]any, error)
}

type workoutsRepo interface {
	ListWorkouts(ctx context.Context, userID string, params workouts.ListParams) ([]map[string]any, error)
}

// contextService provides the training data exposed as MCP tools.
type contextService interface {
	PersonalRecords(ctx context.Context, userID string) ([]map[string]any, error)
	WorkoutsForRange(ctx context.Context, userID string, from, to time.Time) ([]map[string]any, error)
}

// ContextService reads PRs and workouts of a single user.
type ContextService struct {
	prs      prsRepo
	workouts workoutsRepo
}

func NewContextService(prs prsRepo, workouts workoutsRepo) *ContextService {
	return &ContextService{
		prs:      prs,
		workouts: workouts,
	}
}

// PersonalRecords returns every PR of the user, keyed by exercise id under "id".
func (s *ContextService) PersonalRecords(ctx context.Context, userID string) ([]map[string]any, error) {
	prs, err := s.prs.ListPRs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list prs: %w", err)
	}
	return prs, nil
}

// WorkoutsForRange returns the workouts dated within [from, to], newest first.
func (s *ContextService) WorkoutsForRange(ctx context.Context, userID string, from, to time.Time) ([]map[string]any, error) {
	if from.After(to) {
		return nil, ErrInvalidRange
	}
	list, err := s.workouts.ListWorkouts(ctx, userID, workouts.ListParams{
		StartDate: from.Format(dateLayout),
		EndDate:   to.Format(dateLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	return list, nil
}
