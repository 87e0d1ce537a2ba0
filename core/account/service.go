package account

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/teamfeed/teamfeed/core"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound      = &core.NotFoundError{Entity: "account"}
	ErrEmailExists   = &core.AlreadyExistsError{Entity: "account with this email"}
	ErrInvalidToken  = errors.New("invalid password reset link")
	ErrInactiveLogin = errors.New("account deactivated")
)

type (
	Repository interface {
		// CreateAccount returns ErrEmailExists if an account with the same email exists.
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccount(ctx context.Context, filter GetFilter) (Account, error)
		QueryAccounts(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Account, error)
		UpdateAccount(ctx context.Context, acc Account) (Account, error)
		DeleteAccounts(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo      Repository
		mailSvc   core.EmailService
		validator *core.Validator
		conf      *core.Config
		tokenGen  tokenGenerator
	}
)

func NewService(repo Repository, mailSvc core.EmailService, validator *core.Validator, conf *core.Config) *Service {
	InitValidators(validator.Validate(), validator.Translator())
	return &Service{
		repo:      repo,
		mailSvc:   mailSvc,
		validator: validator,
		conf:      conf,
		tokenGen: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.PasswordResetTimeoutDelta,
		},
	}
}

func now() time.Time {
	return nowFunc().UTC().Truncate(time.Microsecond)
}

func (svc *Service) Create(ctx context.Context, na NewAccount) (Account, error) {
	na.Clean()
	if err := svc.validator.Struct(na); err != nil {
		return Account{}, err
	}

	tstamp := now()
	acc := Account{
		ID:        uuid.New().String(),
		Name:      na.Name,
		Email:     na.Email,
		Institute: na.Institute,
		IsActive:  true,
		Roles:     na.Roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := acc.SetPassword(na.Password); err != nil {
		return Account{}, errors.Wrap(err, "setting password")
	}

	created, err := svc.repo.CreateAccount(ctx, acc)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return Account{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return Account{}, errors.Wrap(err, "creating account")
	}
	return created, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	if err := core.NotBlank("id", id); err != nil {
		return Account{}, err
	}
	return svc.repo.GetAccount(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	email = core.CleanString(email, true /* lower */)
	if err := core.NotBlank("email", email); err != nil {
		return Account{}, err
	}
	return svc.repo.GetAccount(ctx, GetFilter{Email: email})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Account, error) {
	filter.Clean()
	return svc.repo.QueryAccounts(ctx, filter, ordering)
}

// Authenticate checks the credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Account, error) {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return Account{}, err
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return Account{}, ErrNotFound
	}
	if !acc.IsActive {
		return Account{}, ErrInactiveLogin
	}
	return svc.SetLastLogin(ctx, acc)
}

func (svc *Service) SetLastLogin(ctx context.Context, acc Account) (Account, error) {
	acc.LastLogin = now()
	return svc.repo.UpdateAccount(ctx, acc)
}

// AddRole grants role to the account if it does not have it yet.
func (svc *Service) AddRole(ctx context.Context, acc Account, role string) (Account, error) {
	if acc.HasRole(role) {
		return acc, nil
	}
	acc.AddRole(role)
	acc.UpdatedAt = now()
	return svc.repo.UpdateAccount(ctx, acc)
}

// UpdateOrCreate sets the password of the account with this email, creating it if needed.
func (svc *Service) UpdateOrCreate(ctx context.Context, name, email, pwd string, roles ...string) (Account, error) {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return Account{}, err
		}
		return svc.Create(ctx, NewAccount{
			Name:            name,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		})
	}

	for _, role := range roles {
		acc.AddRole(role)
	}
	acc.IsActive = true
	if err = acc.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "setting password")
	}
	acc.UpdatedAt = now()
	return svc.repo.UpdateAccount(ctx, acc)
}

func (svc *Service) SetPassword(ctx context.Context, acc Account, pwd string) (Account, error) {
	if err := acc.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "setting password")
	}
	acc.UpdatedAt = now()
	return svc.repo.UpdateAccount(ctx, acc)
}

// RequestPasswordReset emails a password reset link to the account holding email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !acc.IsActive {
		return ErrNotFound
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acc.Name, Address: acc.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"UID":   EncodeUID(acc),
			"Token": svc.tokenGen.makeToken(acc),
		},
	})
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	if err := svc.validator.Struct(rp); err != nil {
		return err
	}

	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(ErrInvalidToken)
	}
	acc, err := svc.repo.GetAccount(ctx, GetFilter{ID: id})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(ErrInvalidToken)
		}
		return errors.Wrap(err, "finding account")
	}
	if err = svc.tokenGen.verifyToken(acc, rp.Token); err != nil {
		return core.NewValidationError(ErrInvalidToken)
	}

	_, err = svc.SetPassword(ctx, acc, rp.Password)
	return err
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteAccounts(ctx, ids...)
}
