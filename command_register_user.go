package identity

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

type RegisterUserMessage struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Login     string   `json:"login"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Roles     []string `json:"roles"`
	Activated bool     `json:"activated"`
	UseHashid bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate will run validation rules
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.FirstName, validation.Length(0, 200)),
		validation.Field(&e.LastName, validation.Length(0, 200)),
		validation.Field(&e.Login, validation.Required, validation.Length(1, 50)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(10, 100)),
	)
}

// RegisterUserHandler creates accounts: it enforces login and email
// uniqueness, hashes the password, and saves the user graph with its
// default role association through one unit of work.
type RegisterUserHandler struct {
	repo RepositoryManager
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{repo: repo}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	users := h.repo.Users()

	if _, err := users.GetByLogin(ctx, event.Login); err == nil {
		return nil, ErrLoginAlreadyUsed
	} else if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "login uniqueness check failed")
	}

	if _, err := users.GetByEmail(ctx, event.Email); err == nil {
		return nil, ErrEmailAlreadyUsed
	} else if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "email uniqueness check failed")
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		FirstName:    event.FirstName,
		LastName:     event.LastName,
		Login:        strings.TrimSpace(event.Login),
		Email:        strings.TrimSpace(event.Email),
		PasswordHash: hash,
		Activated:    event.Activated,
		Roles:        rolesForRegistration(event.Roles),
	}

	if event.UseHashid {
		if id, err := hashid.NewUUID(user.Email); err == nil {
			user.ID = id
		}
	}

	uow := h.repo.NewUnit()
	if _, err := users.SaveGraph(ctx, uow, user); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not stage user graph")
	}

	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}

	return user, nil
}

func rolesForRegistration(names []string) []*Role {
	if len(names) == 0 {
		names = []string{RoleUser}
	}

	roles := make([]*Role, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			roles = append(roles, &Role{Name: name})
		}
	}
	return roles
}
