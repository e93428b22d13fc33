package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/botforge/botforge/internal/access/domain"
	"github.com/botforge/botforge/internal/access/store"
	"github.com/botforge/botforge/pkg/cryptox"
	"github.com/botforge/botforge/pkg/idx"
	"github.com/botforge/botforge/pkg/passwordx"
	"github.com/botforge/botforge/pkg/slogx"
)

// ErrPasswordReused rejects a password change that repeats a recent password.
var ErrPasswordReused = errors.New("password_reused")

// PolicyViolationError carries the full scoring report so HTTP handlers can
// return actionable suggestions alongside the rejection.
type PolicyViolationError struct {
	Report passwordx.Report
}

func (e *PolicyViolationError) Error() string {
	return "password does not satisfy the strength policy"
}

type PasswordService struct {
	Store  store.Store
	Scorer *passwordx.Scorer
}

// Score evaluates a candidate password without any side effects. userInputs
// carry contextual strings such as the user's name and email fragments.
func (s *PasswordService) Score(password string, userInputs []string) passwordx.Report {
	return s.Scorer.Score(password, userInputs)
}

// Generate produces a random password satisfying the policy.
func (s *PasswordService) Generate(length int) (string, error) {
	return passwordx.Generate(length, s.Scorer.Policy())
}

// ChangeInput is the request context of a password change.
type ChangeInput struct {
	IdentityID    string
	Password      string
	UserInputs    []string
	ChangedByUser bool
	SourceAddress string
	ClientAgent   string
}

// Change validates a new password against the strength policy and the reuse
// window, then records its hash in the history. The history append and the
// prune beyond the reuse window run in one transaction.
func (s *PasswordService) Change(ctx context.Context, input ChangeInput) error {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)
	policy := s.Scorer.Policy()

	report := s.Scorer.Score(input.Password, input.UserInputs)
	if !report.Valid {
		return &PolicyViolationError{Report: report}
	}

	recent, err := s.Store.PasswordHistory().ListRecentPasswordHistory(ctx,
		input.IdentityID, policy.PreventReuseCount)
	if err != nil {
		return err
	}

	hashes := make([]string, 0, len(recent))
	for _, h := range recent {
		hashes = append(hashes, h.PasswordHash)
	}
	if !passwordx.NotReused(input.Password, hashes, cryptox.VerifyPassword) {
		return ErrPasswordReused
	}

	hash, err := cryptox.HashPassword(input.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		err := tx.PasswordHistory().AppendPasswordHistory(ctx, domain.PasswordHistory{
			ID:            idx.New().String(),
			IdentityID:    input.IdentityID,
			PasswordHash:  hash,
			ChangedByUser: input.ChangedByUser,
			SourceAddress: input.SourceAddress,
			ClientAgent:   input.ClientAgent,
			CreatedAt:     now,
		})
		if err != nil {
			return err
		}

		if err := tx.PasswordHistory().PrunePasswordHistory(ctx,
			input.IdentityID, policy.PreventReuseCount); err != nil {
			return err
		}

		return tx.Activities().AppendActivity(ctx, domain.SessionActivity{
			ID:            idx.New().String(),
			IdentityID:    input.IdentityID,
			ActivityType:  domain.ActivityPasswordChange,
			Endpoint:      "/v1/password/change",
			Method:        "POST",
			SourceAddress: input.SourceAddress,
			ClientAgent:   input.ClientAgent,
			Success:       true,
			StatusCode:    204,
			Timestamp:     now,
		})
	})
	if err != nil {
		return err
	}

	l.Info("password changed",
		slog.String("identity_id", input.IdentityID),
		slog.Bool("changed_by_user", input.ChangedByUser),
	)
	return nil
}
