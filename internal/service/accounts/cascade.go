package accounts

import (
	"context"
	"fmt"

	"github.com/vovakirdan/shopdesk-server/internal/core"
	"github.com/vovakirdan/shopdesk-server/internal/metrics"
)

// Cascade step names, in execution order.
const (
	StepCart          = "cart"
	StepMessages      = "messages"
	StepNotifications = "notifications"
	StepProfile       = "profile"
	StepUser          = "user"
)

// StepResult records one cascade step. A step after a failure is Skipped.
type StepResult struct {
	Step    string `json:"step"`
	Deleted int64  `json:"deleted"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CascadeReport describes a user removal.
type CascadeReport struct {
	UserID    string       `json:"userId"`
	UserFound bool         `json:"userFound"`
	Steps     []StepResult `json:"steps"`
}

// Failed returns the failed step, if any.
func (r *CascadeReport) Failed() (StepResult, bool) {
	for _, st := range r.Steps {
		if st.Error != "" {
			return st, true
		}
	}
	return StepResult{}, false
}

type cascadeStep struct {
	name string
	run  func(ctx context.Context, userID string) (int64, error)
}

func boolCount(ok bool, err error) (int64, error) {
	if ok {
		return 1, err
	}
	return 0, err
}

func (s *Service) cascadeSteps() []cascadeStep {
	return []cascadeStep{
		{StepCart, func(ctx context.Context, id string) (int64, error) {
			return boolCount(s.store.DeleteCartByUser(ctx, id))
		}},
		{StepMessages, func(ctx context.Context, id string) (int64, error) {
			return s.store.DeleteRoomMessages(ctx, id)
		}},
		{StepNotifications, func(ctx context.Context, id string) (int64, error) {
			return s.store.DeleteNotificationsByTarget(ctx, id)
		}},
		{StepProfile, func(ctx context.Context, id string) (int64, error) {
			return boolCount(s.store.DeleteProfileByUser(ctx, id))
		}},
		{StepUser, func(ctx context.Context, id string) (int64, error) {
			return boolCount(s.store.DeleteUser(ctx, id))
		}},
	}
}

// DeleteUser removes everything owned by userID, one step at a time. Each step
// is idempotent, so a failed run can simply be repeated. The first failure
// stops the sequence and is returned along with the report. A run without
// failures tells every live session the user is gone.
func (s *Service) DeleteUser(ctx context.Context, userID string) (*CascadeReport, error) {
	report := &CascadeReport{UserID: userID}

	var failure error
	for _, step := range s.cascadeSteps() {
		if failure != nil {
			report.Steps = append(report.Steps, StepResult{Step: step.name, Skipped: true})
			continue
		}
		n, err := step.run(ctx, userID)
		res := StepResult{Step: step.name, Deleted: n}
		if err != nil {
			res.Error = err.Error()
			failure = fmt.Errorf("delete user %s: step %s: %w", userID, step.name, err)
			metrics.CascadeFailures.WithLabelValues(step.name).Inc()
		}
		if step.name == StepUser && err == nil {
			report.UserFound = n > 0
		}
		report.Steps = append(report.Steps, res)
	}

	if failure != nil {
		s.log.Error().Err(failure).Str("user_id", userID).Msg("user removal stopped")
		return report, failure
	}

	s.fanout.Broadcast(core.EventUserDeleted, core.UserDeleted{UserID: userID})
	s.log.Info().Str("user_id", userID).Bool("user_found", report.UserFound).Msg("user removed")
	return report, nil
}
