package service

import (
	"context"
	"strings"

	"github.com/alex-zharinov/hw05-final/internal/models"
	"github.com/alex-zharinov/hw05-final/internal/observability"
	"github.com/alex-zharinov/hw05-final/internal/repository"
	"github.com/alex-zharinov/hw05-final/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// AccountService registers users and checks their credentials.
type AccountService struct {
	userRepo repository.UserRepository
	cost     int
}

// SignupInput is the signup form.
type SignupInput struct {
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Password        string
	PasswordConfirm string
}

func NewAccountService(userRepo repository.UserRepository) *AccountService {
	return &AccountService{userRepo: userRepo, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *AccountService) WithHashCost(cost int) *AccountService {
	s.cost = cost
	return s
}

// Signup validates the form and creates the user. Form problems come back as field errors.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AccountService", "Signup")
	defer func() { span.End(err) }()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	fields := map[string]string{}
	if err := validation.ValidateUsername(in.Username); err != nil {
		fields["username"] = err.Error()
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		fields["email"] = err.Error()
	}
	if err := validation.ValidatePassword(in.Password, in.Username); err != nil {
		fields["password1"] = err.Error()
	}
	if in.Password != in.PasswordConfirm {
		fields["password2"] = "The two password fields didn't match."
	}

	if _, ok := fields["username"]; !ok {
		if _, lookupErr := s.userRepo.GetByUsername(ctx, in.Username); lookupErr == nil {
			fields["username"] = "A user with that username already exists."
		} else if !models.IsNotFound(lookupErr) {
			return nil, lookupErr
		}
	}
	if _, ok := fields["email"]; !ok {
		if _, lookupErr := s.userRepo.GetByEmail(ctx, in.Email); lookupErr == nil {
			fields["email"] = "A user with that email already exists."
		} else if !models.IsNotFound(lookupErr) {
			return nil, lookupErr
		}
	}
	if len(fields) > 0 {
		return nil, models.NewFieldErrors(fields)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user = &models.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hashed),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate resolves login (username or email) and verifies the password.
func (s *AccountService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, models.NewUnauthorizedError("Please enter a correct username and password.")
	}

	user, err := s.userRepo.GetByUsername(ctx, login)
	if models.IsNotFound(err) && strings.Contains(login, "@") {
		user, err = s.userRepo.GetByEmail(ctx, login)
	}
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewUnauthorizedError("Please enter a correct username and password.")
		}
		return nil, err
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cmpErr != nil {
		return nil, models.NewUnauthorizedError("Please enter a correct username and password.")
	}
	return user, nil
}

// GetUser returns the user with id.
func (s *AccountService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// CreateUser provisions an account without the signup form rules on password strength.
// Used by the admin CLI.
func (s *AccountService) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewFieldErrors(map[string]string{"username": err.Error()})
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewFieldErrors(map[string]string{"email": err.Error()})
	}
	if password == "" {
		return nil, models.NewFieldErrors(map[string]string{"password": "password is required"})
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{Username: username, Email: strings.ToLower(email), Password: string(hashed)}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
