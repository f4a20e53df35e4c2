package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/validation"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

var (
	namePattern  = regexp.MustCompile(`^[a-zA-Z]+$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

const minPasswordLength = 8

// UserService manages the user directory.
type UserService struct {
	users      repository.Repository[domain.User]
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	bcryptCost int
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.Repository[domain.User]
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
	BcryptCost int
}

// UserCreateInput describes a new account. Role defaults to Customer.
type UserCreateInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = utcNow
	}
	return &UserService{
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
		bcryptCost: deps.BcryptCost,
	}
}

// ListAll returns every user.
func (s *UserService) ListAll(ctx context.Context) (users []domain.User, err error) {
	ctx, span := tracer.Start(ctx, "UserService.ListAll")
	defer func() { endSpan(span, err) }()

	users, err = s.users.All(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return users, nil
}

// GetByID returns a user or a NotFound error.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, lookupError("user", id, err)
	}
	return user, nil
}

// FindByEmail looks a user up by email, ignoring case.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	matches, err := s.users.Find(ctx, func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
	if err != nil {
		return nil, storeError(err)
	}
	if len(matches) == 0 {
		return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
	}
	return &matches[0], nil
}

// Create validates and stores a new user with a hashed password.
func (s *UserService) Create(ctx context.Context, input UserCreateInput) (user *domain.User, err error) {
	ctx, span := tracer.Start(ctx, "UserService.Create")
	defer func() { endSpan(span, err) }()

	input.Email = strings.TrimSpace(input.Email)
	if input.Role == "" {
		input.Role = domain.RoleCustomer
	}
	if err := validateUser(input); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user = &domain.User{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		CreatedDate:  s.now().UTC(),
	}
	uow := s.users.Begin()
	uow.Add(*user)
	if err := uow.Commit(ctx); err != nil {
		return nil, storeError(err)
	}

	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventUserCreated,
		SubjectID: user.ID,
		Payload:   events.UserCreatedPayload{Role: user.Role},
	})
	return user, nil
}

// EnsureBootstrapAdmin creates the configured administrator when no account
// with that email exists yet. It reports whether a user was created.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) (bool, error) {
	if !cfg.Enabled() {
		return false, nil
	}
	if _, err := s.FindByEmail(ctx, cfg.AdminEmail); err == nil {
		return false, nil
	} else if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		return false, err
	}
	_, err := s.Create(ctx, UserCreateInput{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func validateUser(input UserCreateInput) error {
	return validation.Validate(
		validation.Field{Name: "name", Value: input.Name, Rules: []validation.Rule{
			validation.Required("Name is required."),
			validation.Matches(namePattern, "Name must contain only letters."),
		}},
		validation.Field{Name: "email", Value: input.Email, Rules: []validation.Rule{
			validation.Required("Email is required."),
			validation.Matches(emailPattern, "Please enter a valid email address."),
		}},
		validation.Field{Name: "password", Value: input.Password, Rules: []validation.Rule{
			validation.Required("Password is required."),
			validation.MinLength(minPasswordLength, "Password must be at least 8 characters long."),
			validation.MaxBytes(auth.MaxPasswordBytes, "Password must be at most 72 bytes long."),
		}},
		validation.Field{Name: "role", Value: string(input.Role), Rules: []validation.Rule{
			validation.OneOf("Role must be Admin, Customer or SupportAgent.",
				string(domain.RoleAdmin), string(domain.RoleCustomer), string(domain.RoleSupportAgent)),
		}},
	)
}
