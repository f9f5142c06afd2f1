package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lafavorita/backend/internal/auth"
	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/store"
)

var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrSelfDelete        = errors.New("you cannot delete your own account")
	ErrInvalidEmployee   = errors.New("invalid employee")
	ErrLastAdmin         = errors.New("at least one administrator must remain")
)

func (s *Service) Me(ctx context.Context) (domain.Employee, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Employee{}, err
	}
	user, err := s.repo.GetUser(ctx, actor.Username)
	if err != nil {
		return domain.Employee{}, err
	}
	return toEmployee(*user), nil
}

func (s *Service) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	if _, err := s.currentAdmin(ctx); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Employee, 0, len(users))
	for _, u := range users {
		out = append(out, toEmployee(u))
	}
	return out, nil
}

func (s *Service) CreateEmployee(ctx context.Context, req domain.EmployeeCreateRequest) (domain.Employee, error) {
	if _, err := s.currentAdmin(ctx); err != nil {
		return domain.Employee{}, err
	}

	username := strings.TrimSpace(req.Username)
	name := strings.TrimSpace(req.Name)
	if username == "" || name == "" {
		return domain.Employee{}, fmt.Errorf("%w: username and name are required", ErrInvalidEmployee)
	}
	if !validRole(req.Role) {
		return domain.Employee{}, fmt.Errorf("%w: role must be admin or employee", ErrInvalidEmployee)
	}
	if err := auth.ValidateNewPassword(req.Password, req.ConfirmPassword); err != nil {
		return domain.Employee{}, err
	}
	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.Employee{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{Username: username, Password: hashed, Role: req.Role, Name: name}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Employee{}, ErrDuplicateUsername
		}
		return domain.Employee{}, err
	}

	s.logAudit(ctx, "user_create", "user", username, "role="+req.Role)
	return toEmployee(user), nil
}

// UpdateEmployee applies the fields present in req. Security questions can
// only be set on administrators.
func (s *Service) UpdateEmployee(ctx context.Context, username string, req domain.EmployeeUpdateRequest) (domain.Employee, error) {
	if _, err := s.currentAdmin(ctx); err != nil {
		return domain.Employee{}, err
	}

	existing, err := s.repo.GetUser(ctx, username)
	if err != nil {
		return domain.Employee{}, err
	}
	updated := existing.Clone()

	if req.Username != nil {
		renamed := strings.TrimSpace(*req.Username)
		if renamed == "" {
			return domain.Employee{}, fmt.Errorf("%w: username is required", ErrInvalidEmployee)
		}
		updated.Username = renamed
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Employee{}, fmt.Errorf("%w: name is required", ErrInvalidEmployee)
		}
		updated.Name = name
	}
	if req.Role != nil {
		if !validRole(*req.Role) {
			return domain.Employee{}, fmt.Errorf("%w: role must be admin or employee", ErrInvalidEmployee)
		}
		updated.Role = *req.Role
		if existing.Role == domain.RoleAdmin && updated.Role != domain.RoleAdmin {
			last, err := s.isLastAdmin(ctx)
			if err != nil {
				return domain.Employee{}, err
			}
			if last {
				return domain.Employee{}, ErrLastAdmin
			}
		}
	}
	if req.Password != nil && *req.Password != "" {
		confirm := ""
		if req.ConfirmPassword != nil {
			confirm = *req.ConfirmPassword
		}
		if err := auth.ValidateNewPassword(*req.Password, confirm); err != nil {
			return domain.Employee{}, err
		}
		hashed, err := auth.HashPassword(*req.Password)
		if err != nil {
			return domain.Employee{}, fmt.Errorf("hash password: %w", err)
		}
		updated.Password = hashed
	}
	if req.SecurityQuestions != nil {
		if updated.Role != domain.RoleAdmin {
			return domain.Employee{}, fmt.Errorf("%w: security questions are only for administrators", ErrInvalidEmployee)
		}
		q := trimQuestions(*req.SecurityQuestions)
		if !q.Complete() {
			return domain.Employee{}, fmt.Errorf("%w: all three questions and answers are required", ErrInvalidEmployee)
		}
		hashed, err := auth.HashAnswers(q)
		if err != nil {
			return domain.Employee{}, fmt.Errorf("hash answers: %w", err)
		}
		updated.SecurityQuestions = &hashed
	}

	if err := s.repo.UpdateUser(ctx, username, updated); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Employee{}, ErrDuplicateUsername
		}
		return domain.Employee{}, err
	}

	s.logAudit(ctx, "user_update", "user", updated.Username, fmt.Sprintf("from=%s,role=%s", username, updated.Role))
	return toEmployee(updated), nil
}

func (s *Service) DeleteEmployee(ctx context.Context, username string) error {
	actor, err := s.currentAdmin(ctx)
	if err != nil {
		return err
	}
	if username == actor.Username {
		return ErrSelfDelete
	}
	if err := s.repo.DeleteUser(ctx, username); err != nil {
		return err
	}
	s.logAudit(ctx, "user_delete", "user", username, "")
	return nil
}

// currentAdmin resolves the caller against the user store. A caller whose
// account was renamed or deleted since the session began is rejected.
func (s *Service) currentAdmin(ctx context.Context) (domain.Actor, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	user, err := s.repo.GetUser(ctx, actor.Username)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Actor{}, ErrNoActor
	}
	if err != nil {
		return domain.Actor{}, err
	}
	if user.Role != domain.RoleAdmin {
		return domain.Actor{}, ErrForbidden
	}
	return domain.Actor{Username: user.Username, Role: user.Role, Name: user.Name}, nil
}

func (s *Service) isLastAdmin(ctx context.Context) (bool, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return false, err
	}
	admins := 0
	for _, u := range users {
		if u.Role == domain.RoleAdmin {
			admins++
		}
	}
	return admins <= 1, nil
}

func validRole(role string) bool {
	return role == domain.RoleAdmin || role == domain.RoleEmployee
}

func trimQuestions(q domain.SecurityQuestions) domain.SecurityQuestions {
	q.Question1 = strings.TrimSpace(q.Question1)
	q.Question2 = strings.TrimSpace(q.Question2)
	q.Question3 = strings.TrimSpace(q.Question3)
	q.Answer1 = auth.NormalizeAnswer(q.Answer1)
	q.Answer2 = auth.NormalizeAnswer(q.Answer2)
	q.Answer3 = auth.NormalizeAnswer(q.Answer3)
	return q
}

func toEmployee(u domain.User) domain.Employee {
	e := domain.Employee{Username: u.Username, Role: u.Role, Name: u.Name}
	if q := u.SecurityQuestions; q != nil && q.Complete() {
		e.HasSecurityQuestions = true
		e.Questions = []string{q.Question1, q.Question2, q.Question3}
	}
	return e
}
