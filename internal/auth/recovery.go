package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/store"
	"lafavorita/backend/internal/xid"
)

var (
	ErrUnknownUser          = errors.New("user not found")
	ErrNotAdmin             = errors.New("password recovery is only available for administrators")
	ErrNoSecurityQuestions  = errors.New("this account has no security questions configured")
	ErrWrongAnswers         = errors.New("one or more answers are incorrect")
	ErrRecoverySessionGone  = errors.New("recovery session not found or expired")
	ErrRecoveryStepMismatch = errors.New("recovery session is not at this step")
)

// StartRecovery opens a recovery session for an administrator that has all
// three security questions configured.
func (a *Manager) StartRecovery(ctx context.Context, username string) (domain.RecoverySession, error) {
	username = strings.TrimSpace(username)
	user, err := a.users.GetUser(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return domain.RecoverySession{}, ErrUnknownUser
	}
	if err != nil {
		return domain.RecoverySession{}, err
	}
	if user.Role != domain.RoleAdmin {
		return domain.RecoverySession{}, ErrNotAdmin
	}
	q := user.SecurityQuestions
	if q == nil || !q.Complete() {
		return domain.RecoverySession{}, ErrNoSecurityQuestions
	}

	session := domain.RecoverySession{
		ID:        xid.Token(),
		Step:      domain.RecoveryStepQuestions,
		Username:  user.Username,
		Questions: []string{q.Question1, q.Question2, q.Question3},
	}
	if err := a.sessions.Set(ctx, session.ID, &session, a.recoveryTTL); err != nil {
		return domain.RecoverySession{}, err
	}
	return session, nil
}

// AnswerRecovery checks all three answers at once. On any mismatch the
// session stays at the questions step with every answer cleared.
func (a *Manager) AnswerRecovery(ctx context.Context, id string, req domain.RecoveryAnswersRequest) (domain.RecoverySession, error) {
	session, err := a.session(ctx, id, domain.RecoveryStepQuestions)
	if err != nil {
		return domain.RecoverySession{}, err
	}
	user, err := a.users.GetUser(ctx, session.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = a.sessions.Delete(ctx, id)
			return domain.RecoverySession{}, ErrUnknownUser
		}
		return domain.RecoverySession{}, err
	}
	q := user.SecurityQuestions
	if q == nil || !q.Complete() {
		return domain.RecoverySession{}, ErrNoSecurityQuestions
	}

	ok := answerMatches(q.Answer1, req.Answer1)
	ok = answerMatches(q.Answer2, req.Answer2) && ok
	ok = answerMatches(q.Answer3, req.Answer3) && ok

	session.Answer1, session.Answer2, session.Answer3 = "", "", ""
	if !ok {
		a.log.Warn().Str("user", session.Username).Msg("recovery answers rejected")
		if err := a.sessions.Set(ctx, id, &session, a.recoveryTTL); err != nil {
			return domain.RecoverySession{}, err
		}
		return session, ErrWrongAnswers
	}

	session.Step = domain.RecoveryStepNewPassword
	if err := a.sessions.Set(ctx, id, &session, a.recoveryTTL); err != nil {
		return domain.RecoverySession{}, err
	}
	return session, nil
}

// ResetRecoveredPassword overwrites the password and closes the session.
func (a *Manager) ResetRecoveredPassword(ctx context.Context, id string, req domain.RecoveryPasswordRequest) (domain.RecoverySession, error) {
	session, err := a.session(ctx, id, domain.RecoveryStepNewPassword)
	if err != nil {
		return domain.RecoverySession{}, err
	}
	if err := ValidateNewPassword(req.NewPassword, req.ConfirmPassword); err != nil {
		return session, err
	}

	user, err := a.users.GetUser(ctx, session.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = a.sessions.Delete(ctx, id)
			return domain.RecoverySession{}, ErrUnknownUser
		}
		return domain.RecoverySession{}, err
	}
	hashed, err := HashPassword(req.NewPassword)
	if err != nil {
		return domain.RecoverySession{}, fmt.Errorf("hash password: %w", err)
	}
	updated := user.Clone()
	updated.Password = hashed
	if err := a.users.UpdateUser(ctx, user.Username, updated); err != nil {
		return domain.RecoverySession{}, err
	}
	if err := a.sessions.Delete(ctx, id); err != nil {
		a.log.Warn().Err(err).Str("session", id).Msg("recovery session cleanup failed")
	}

	a.log.Info().Str("user", user.Username).Msg("password reset via recovery")
	session.Step = domain.RecoveryStepDone
	return session, nil
}

// CancelRecovery drops the session; unknown ids are not an error.
func (a *Manager) CancelRecovery(ctx context.Context, id string) error {
	return a.sessions.Delete(ctx, id)
}

func (a *Manager) session(ctx context.Context, id string, step domain.RecoveryStep) (domain.RecoverySession, error) {
	session, ok, err := a.sessions.Get(ctx, id)
	if err != nil {
		return domain.RecoverySession{}, err
	}
	if !ok {
		return domain.RecoverySession{}, ErrRecoverySessionGone
	}
	if session.Step != step {
		return *session, ErrRecoveryStepMismatch
	}
	return *session, nil
}
