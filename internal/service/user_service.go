package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// UserPatch carries a partial update; nil fields are left unchanged.
type UserPatch struct {
	UserName *string
	Password *string
	Role     *domain.Role
}

// LoginResult bundles the authenticated user with the issued token.
type LoginResult struct {
	User  *domain.User
	Token string
}

// UserPage is one page of the user listing, ordered by id ascending.
type UserPage struct {
	Users []domain.User
	Page  int
	Size  int
	Total int64
}

// UserService coordinates registration, login, and account CRUD.
type UserService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	cipher     *auth.PasswordCipher
	dispatcher events.Dispatcher
}

// NewUserService builds the service.
func NewUserService(users repository.UserRepository, tokens *auth.TokenManager, cipher *auth.PasswordCipher, dispatcher events.Dispatcher) *UserService {
	return &UserService{
		users:      users,
		tokens:     tokens,
		cipher:     cipher,
		dispatcher: dispatcher,
	}
}

// Register creates a new account. The email must not be taken (exact,
// case-sensitive match); the race between check and insert is closed by the
// store's unique constraint, not here.
func (s *UserService) Register(ctx context.Context, email, password, userName string, role domain.Role) (*domain.User, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewDuplicateEmail()
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	ciphertext, err := s.cipher.Encrypt(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:    email,
		UserName: userName,
		Password: ciphertext,
		Role:     role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventUserRegistered,
		UserID:    user.ID,
		Timestamp: time.Now(),
	})
	return user, nil
}

// Login authenticates by comparing the ciphertext of the supplied password with
// the stored ciphertext, and issues a bearer token on success. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewLoginFailure()
		}
		return nil, err
	}

	ciphertext, err := s.cipher.Encrypt(password)
	if err != nil {
		return nil, err
	}
	if ciphertext != user.Password {
		return nil, apperrors.NewLoginFailure()
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: token}, nil
}

// GetUserByID looks up one account.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUserNotFound(id)
		}
		return nil, err
	}
	return user, nil
}

// ModifyUser applies a partial update. The password, when present, is
// re-encrypted before storage. Updates are copy-on-write on the domain value.
func (s *UserService) ModifyUser(ctx context.Context, id int64, patch UserPatch) (*domain.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *user
	if patch.UserName != nil {
		updated = updated.WithUserName(*patch.UserName)
	}
	if patch.Password != nil {
		ciphertext, err := s.cipher.Encrypt(*patch.Password)
		if err != nil {
			return nil, err
		}
		updated = updated.WithPassword(ciphertext)
	}
	if patch.Role != nil {
		updated = updated.WithRole(*patch.Role)
	}

	if err := s.users.Update(ctx, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUserNotFound(id)
		}
		return nil, err
	}
	return &updated, nil
}

// DeleteUserByID removes the account and emits a withdrawal event. The event is
// fire-and-forget: a delivery failure never fails the delete.
func (s *UserService) DeleteUserByID(ctx context.Context, id int64) error {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUserNotFound(id)
		}
		return err
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventUserWithdrawn,
		UserID:    user.ID,
		Timestamp: time.Now(),
	})
	return nil
}

// ListUsers returns one page of accounts ordered by id ascending, together
// with the total count.
func (s *UserService) ListUsers(ctx context.Context, page, size int) (*UserPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}

	users, err := s.users.List(ctx, size, page*size)
	if err != nil {
		return nil, err
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &UserPage{Users: users, Page: page, Size: size, Total: total}, nil
}
