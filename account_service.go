package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SignupMessage carries the fields needed to create an account.
type SignupMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Age      int    `json:"age"`

	// UseHashid derives the user id deterministically from the email
	// instead of a random uuid.
	UseHashid bool `json:"-"`
}

func (m SignupMessage) Type() string { return "accounts.signup" }

// UpdateUserMessage is a partial profile patch; nil fields are untouched.
type UpdateUserMessage struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
	Age   *int    `json:"age"`
}

// AuthPayload is the response shape for signup, signin, and refresh.
type AuthPayload struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	User         UserRecord `json:"user"`
}

// AccountService owns user records and delegates every token invariant to
// the lifecycle.
type AccountService struct {
	repo      RepositoryManager
	lifecycle *TokenLifecycle
	logger    Logger
	provider  LoggerProvider
}

func NewAccountService(repo RepositoryManager, lifecycle *TokenLifecycle) *AccountService {
	provider, logger := ResolveLogger("accounts.service", nil, nil)
	return &AccountService{
		repo:      repo,
		lifecycle: lifecycle,
		logger:    logger,
		provider:  provider,
	}
}

func (s *AccountService) WithLogger(logger Logger) *AccountService {
	s.provider, s.logger = ResolveLogger("accounts.service", s.provider, logger)
	return s
}

func (s *AccountService) WithLoggerProvider(provider LoggerProvider) *AccountService {
	s.provider, s.logger = ResolveLogger("accounts.service", provider, nil)
	return s
}

// Lifecycle exposes the token lifecycle for middleware wiring.
func (s *AccountService) Lifecycle() *TokenLifecycle {
	return s.lifecycle
}

// Signup creates the account inside a transaction and signs the user in.
func (s *AccountService) Signup(ctx context.Context, msg SignupMessage) (*AuthPayload, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if _, err := s.repo.Users().GetByEmail(ctx, msg.Email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !repository.IsRecordNotFound(err) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check for existing email")
	}

	user := &User{}
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(msg.Password)
		if err != nil {
			return errors.Wrap(err, errors.CategoryValidation, "unable to hash password")
		}

		user.Email = msg.Email
		user.Name = msg.Name
		user.Age = msg.Age
		user.PasswordHash = hash

		if msg.UseHashid {
			if id, herr := hashid.NewUUID(normalizeEmail(msg.Email)); herr == nil {
				user.ID = id
			}
		}

		if user, err = s.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return errors.Wrap(err, errors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var rich *errors.Error
		if errors.As(err, &rich) {
			return nil, rich
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "signup transaction failed")
	}

	pair, err := s.lifecycle.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthPayload{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         NewUserRecord(user),
	}, nil
}

// Signin verifies credentials and issues a fresh pair. Unknown email and
// wrong password produce the same failure.
func (s *AccountService) Signin(ctx context.Context, email, password string) (*AuthPayload, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up user during signin")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.logger.Debug("password mismatch: user=%s", user.ID)
		return nil, ErrInvalidCredentials
	}

	pair, err := s.lifecycle.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthPayload{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         NewUserRecord(user),
	}, nil
}

// Refresh rotates the refresh token and returns the successor pair.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*AuthPayload, error) {
	pair, user, err := s.lifecycle.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	return &AuthPayload{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         NewUserRecord(user),
	}, nil
}

// Logout revokes the refresh token; idempotent.
func (s *AccountService) Logout(ctx context.Context, refreshToken string) (*RefreshToken, error) {
	return s.lifecycle.Logout(ctx, refreshToken)
}

// Me resolves the account behind a raw access token.
func (s *AccountService) Me(ctx context.Context, accessToken string) (*User, error) {
	claims, err := s.lifecycle.Authenticate(accessToken)
	if err != nil {
		return nil, err
	}

	return s.GetUser(ctx, claims.UserID())
}

func (s *AccountService) ListUsers(ctx context.Context) ([]*User, error) {
	return s.repo.Users().ListAll(ctx)
}

func (s *AccountService) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.Users().GetByID(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up user")
	}
	return user, nil
}

// UpdateUser applies a partial patch and returns the updated record.
func (s *AccountService) UpdateUser(ctx context.Context, id string, patch UpdateUserMessage) (*User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		user.Email = normalizeEmail(*patch.Email)
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Age != nil {
		user.Age = *patch.Age
	}

	updated, err := s.repo.Users().Update(ctx, user)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update user")
	}

	return updated, nil
}

// DeleteUser removes the account and returns the deleted record.
func (s *AccountService) DeleteUser(ctx context.Context, id string) (*User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	user, err := s.repo.Users().DeleteByID(ctx, userID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to delete user")
	}

	return user, nil
}
