package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"qrattend/internal/apperr"
	"qrattend/internal/metrics"
)

// RegisterInput is a self-registration request.
type RegisterInput struct {
	Username  string `json:"username" validate:"required,max=50"`
	Fullname  string `json:"fullname" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,max=100"`
	Branch    string `json:"branch" validate:"max=50"`
	Classroom string `json:"classroom" validate:"max=20"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Fullname = strings.TrimSpace(in.Fullname)
	in.Email = strings.TrimSpace(in.Email)
	in.Branch = strings.TrimSpace(in.Branch)
	in.Classroom = strings.TrimSpace(in.Classroom)
}

// Service registers and resolves identities.
type Service struct {
	repo     *Repository
	validate *validator.Validate
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// Register creates an identity. It fails with Conflict when the username or
// the email is already taken, either by the existence check or, if two
// registrations race, by the table's unique constraints.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	in.normalize()
	if in.Username == "" || in.Fullname == "" || in.Email == "" {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return apperr.BadRequest("username, full name and email are required")
	}
	if err := s.validate.Struct(in); err != nil {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return apperr.BadRequest(describe(err))
	}

	exists, err := s.repo.Exists(ctx, in.Username, in.Email)
	if err != nil {
		return apperr.Storage("identity.register: check", err)
	}
	if exists {
		metrics.Registrations.WithLabelValues("conflict").Inc()
		return apperr.Conflict("username or email already exists")
	}

	ident := &Identity{
		Username:  in.Username,
		Fullname:  in.Fullname,
		Email:     in.Email,
		Branch:    optional(in.Branch),
		Classroom: optional(in.Classroom),
	}
	if err := s.repo.Insert(ctx, ident); err != nil {
		if errors.Is(err, ErrDuplicate) {
			metrics.Registrations.WithLabelValues("conflict").Inc()
			return apperr.Conflict("username or email already exists")
		}
		return apperr.Storage("identity.register", err)
	}
	metrics.Registrations.WithLabelValues("created").Inc()
	return nil
}

// Resolve returns the identity whose username and email both match exactly.
// Knowing the pair is all it takes to log in.
func (s *Service) Resolve(ctx context.Context, username, email string) (Identity, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" {
		return Identity{}, apperr.BadRequest("missing username or email")
	}
	ident, err := s.repo.FindByLogin(ctx, username, email)
	if err != nil {
		return Identity{}, apperr.Storage("identity.resolve", err)
	}
	if ident == nil {
		return Identity{}, apperr.Unauthenticated("invalid username or email")
	}
	return *ident, nil
}

// Get returns the identity with the given id.
func (s *Service) Get(ctx context.Context, id string) (Identity, error) {
	ident, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Identity{}, apperr.Storage("identity.get", err)
	}
	if ident == nil {
		return Identity{}, apperr.NotFound("user not found")
	}
	return *ident, nil
}

// Contacts lists usernames with their emails.
func (s *Service) Contacts(ctx context.Context) ([]Contact, error) {
	contacts, err := s.repo.Contacts(ctx)
	if err != nil {
		return nil, apperr.Storage("identity.contacts", err)
	}
	return contacts, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return strings.ToLower(fe.Field()) + " is too long"
	}
	return "invalid registration"
}
