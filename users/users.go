// Package users implements the user mutation façade: registration, login,
// CRUD and the password flows. Every mutation records an audit entry; mail
// is sent fire-and-forget through the notify collaborator.
package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jacentio/admix/api"
	"github.com/jacentio/admix/audit"
	"github.com/jacentio/admix/internal/keys"
	"github.com/jacentio/admix/notify"
	"github.com/jacentio/admix/store"
)

// User is one account. The email address is the natural sort key in the
// USR partition; the password hash never leaves the package.
type User struct {
	UserID       string `json:"userId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"emailId"`
	MobileNumber string `json:"mobileNumber"`
	Active       bool   `json:"userStatus"`
	Verified     bool   `json:"emailVerified"`
	RoleID       string `json:"userRole"`
	// UserType carries the resolved role name, populated on login only.
	UserType  string `json:"userType,omitempty"`
	CreatedOn string `json:"createdOn"`
	UpdatedOn string `json:"updatedOn"`
}

// RegisterInput carries the self-registration fields.
type RegisterInput struct {
	UserID       string
	FirstName    string
	LastName     string
	Email        string
	MobileNumber string
	Password     string
}

// CreateInput carries the admin-created-account fields.
type CreateInput struct {
	UserID       string
	FirstName    string
	LastName     string
	Email        string
	MobileNumber string
	RoleID       string
}

// UpdateInput carries the updatable profile fields.
type UpdateInput struct {
	FirstName    string
	LastName     string
	MobileNumber string
	RoleID       string
	Active       bool
}

// List filters.
const (
	FilterAll         = "all"
	FilterCustomer    = "customer"
	FilterBackendUser = "backend_user"
)

// Links are the base URLs embedded in outbound mail.
type Links struct {
	VerifyEmailBase    string
	ForgotPasswordBase string
}

// Service is the user mutation façade.
type Service struct {
	backend  store.Backend
	audit    *audit.Recorder
	notifier notify.Notifier
	hasher   PasswordHasher
	links    Links
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Service. A nil hasher defaults to bcrypt, a nil logger to
// slog.Default().
func New(backend store.Backend, recorder *audit.Recorder, notifier notify.Notifier, hasher PasswordHasher, links Links, logger *slog.Logger) *Service {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend:  backend,
		audit:    recorder,
		notifier: notifier,
		hasher:   hasher,
		links:    links,
		logger:   logger,
		now:      time.Now,
	}
}

// Register creates a self-registered account. The account starts inactive
// and unverified until the email verification link is followed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (api.Result, error) {
	_, err := s.backend.GetByKey(ctx, keys.User.Partition(), in.Email)
	if err == nil {
		return api.Fail(api.MsgUserExists), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return api.Result{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return api.Result{}, err
	}

	now := s.now().UTC().Format(time.RFC3339)
	rec := store.Record{
		PartitionKey: keys.User.Partition(),
		SortKey:      in.Email,
		Attributes: map[string]any{
			"userId":        strings.ToLower(in.UserID),
			"firstName":     in.FirstName,
			"lastName":      in.LastName,
			"mobileNumber":  in.MobileNumber,
			"emailId":       in.Email,
			"userStatus":    false,
			"emailVerified": false,
			"password":      hash,
		},
		CreatedOn: now,
		UpdatedOn: now,
	}
	if err := s.backend.Put(ctx, rec); err != nil {
		return api.Result{}, err
	}

	s.send(ctx, notify.Message{
		To:       in.Email,
		Template: notify.TemplateVerifyEmail,
		Data: map[string]string{
			"firstName":  in.FirstName,
			"verifyLink": s.links.VerifyEmailBase + "/" + in.Email,
		},
	})

	s.audit.Record(ctx, keys.User, in.Email, audit.EventAdd, nil, rec.Attributes)

	return api.OK(api.MsgUserRegistered, userFromRecord(rec)), nil
}

// Create adds an admin-created account: active on creation, with a
// generated temporary password mailed to the user.
func (s *Service) Create(ctx context.Context, in CreateInput) (api.Result, error) {
	_, err := s.backend.GetByKey(ctx, keys.User.Partition(), in.Email)
	if err == nil {
		return api.Fail(api.MsgUserExists), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return api.Result{}, err
	}

	password, err := tempPassword()
	if err != nil {
		return api.Result{}, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return api.Result{}, err
	}

	now := s.now().UTC().Format(time.RFC3339)
	rec := store.Record{
		PartitionKey: keys.User.Partition(),
		SortKey:      in.Email,
		Attributes: map[string]any{
			"userId":        strings.ToLower(in.UserID),
			"firstName":     in.FirstName,
			"lastName":      in.LastName,
			"mobileNumber":  in.MobileNumber,
			"emailId":       in.Email,
			"userRole":      in.RoleID,
			"userStatus":    true,
			"emailVerified": false,
			"password":      hash,
		},
		CreatedOn: now,
		UpdatedOn: now,
	}
	if err := s.backend.Put(ctx, rec); err != nil {
		return api.Result{}, err
	}

	s.send(ctx, notify.Message{
		To:       in.Email,
		Template: notify.TemplateCredentials,
		Data: map[string]string{
			"firstName": in.FirstName,
			"loginId":   in.Email,
			"password":  password,
		},
	})

	s.audit.Record(ctx, keys.User, in.Email, audit.EventAdd, nil, rec.Attributes)

	return api.OK(api.MsgUserAdded, nil), nil
}

// Login checks the credentials and account state and returns the user
// record with its resolved role name. Token issuance belongs to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (api.Result, error) {
	rec, err := s.backend.GetByKey(ctx, keys.User.Partition(), email)
	if errors.Is(err, store.ErrNotFound) {
		return api.Fail(api.MsgUserNotFound), nil
	}
	if err != nil {
		return api.Result{}, err
	}

	hash, _ := rec.Attributes["password"].(string)
	if !s.hasher.Compare(hash, password) {
		return api.Fail(api.MsgPasswordWrong), nil
	}
	if verified, _ := rec.Attributes["emailVerified"].(bool); !verified {
		return api.Fail(api.MsgEmailUnverified), nil
	}
	if active, _ := rec.Attributes["userStatus"].(bool); !active {
		return api.Fail(api.MsgUserInactive), nil
	}

	roleID, _ := rec.Attributes["userRole"].(string)
	role, err := s.backend.GetByKey(ctx, keys.Role.Partition(), roleID)
	if errors.Is(err, store.ErrNotFound) {
		return api.Fail(api.MsgRoleNotFound), nil
	}
	if err != nil {
		return api.Result{}, err
	}

	user := userFromRecord(*rec)
	if name, ok := role.Attributes["roleName"].(string); ok {
		user.UserType = name
	}
	return api.OK(api.MsgUserLoggedIn, user), nil
}

// VerifyEmail marks the address verified, activates the account and sends
// the welcome mail.
func (s *Service) VerifyEmail(ctx context.Context, email string) (api.Result, error) {
	rec, err := s.backend.GetByKey(ctx, keys.User.Partition(), email)
	if errors.Is(err, store.ErrNotFound) {
		return api.Fail(api.MsgUserNotFound), nil
	}
	if err != nil {
		return api.Result{}, err
	}

	old := cloneAttrs(rec.Attributes)
	rec.Attributes["emailVerified"] = true
	rec.Attributes["userStatus"] = true
	rec.UpdatedOn = s.now().UTC().Format(time.RFC3339)
	if err := s.backend.Put(ctx, *rec); err != nil {
		return api.Result{}, err
	}

	firstName, _ := rec.Attributes["firstName"].(string)
	s.send(ctx, notify.Message{
		To:       email,
		Template: notify.TemplateWelcome,
		Data:     map[string]string{"firstName": firstName},
	})

	s.audit.Record(ctx, keys.User, email, audit.EventEdit, old, rec.Attributes)

	return api.OK(api.MsgEmailVerified, nil), nil
}

// Update replaces the profile fields.
func (s *Service) Update(ctx context.Context, email string, in UpdateInput) (api.Result, error) {
	rec, err := s.backend.GetByKey(ctx, keys.User.Partition(), email)
	if errors.Is(err, store.ErrNotFound) {
		return api.Fail(api.MsgUserNotFound), nil
	}
	if err != nil {
		return api.Result{}, err
	}

	old := cloneAttrs(rec.Attributes)
	rec.Attributes["firstName"] = in.FirstName
	rec.Attributes["lastName"] = in.LastName
	rec.Attributes["mobileNumber"] = in.MobileNumber
	rec.Attributes["userRole"] = in.RoleID
	rec.Attributes["userStatus"] = in.Active
	rec.UpdatedOn = s.now().UTC().Format(time.RFC3339)
	if err := s.backend.Put(ctx, *rec); err != nil {
		return api.Result{}, err
	}

	s.audit.Record(ctx, keys.User, email, audit.EventEdit, old, rec.Attributes)

	return api.OK(api.MsgUserUpdated, userFromRecord(*rec)), nil
}

// Delete removes the account.
func (s *Service) Delete(ctx context.Context, email string) (api.Result, error) {
	rec, err := s.backend.GetByKey(ctx, keys.User.Partition(), email)
	if errors.Is(err, store.ErrNotFound) {
		return api.Fail(api.MsgUserNotFound), nil
	}
	if err != nil {
		return api.Result{}, err
	}

	if err := s.backend.Delete(ctx, keys.User.Partition(), email); err != nil {
		return api.Result{}, err
	}

	s.audit.Record(ctx, keys.User, email, audit.EventDelete, rec.Attributes, nil)

	return api.OK(api.MsgUserDeleted, nil), nil
}

// SetStatus activates or deactivates the account.
func (s *Service) SetStatus(ctx context.Context, email string, active bool) (api.Result, error) {
	rec, err := s.backend.GetByKey(ctx, keys.User.Partition(), email)
	if errors.Is(err, store.ErrNotFound) {
		return api.Fail(api.MsgUserNotFound), nil
	}
	if err != nil {
		return api.Result{}, err
	}

	old := cloneAttrs(rec.Attributes)
	rec.Attributes["userStatus"] = active
	rec.UpdatedOn = s.now().UTC().Format(time.RFC3339)
	if err := s.backend.Put(ctx, *rec); err != nil {
		return api.Result{}, err
	}

	s.audit.Record(ctx, keys.User, email, audit.EventEdit, old, rec.Attributes)

	return api.OK(api.MsgStatusUpdated, nil), nil
}

// List returns users in reverse sort-key order, filtered by account type:
// customers,
// backend users (everyone not holding the customer role), or all.
func (s *Service) List(ctx context.Context, filter string) (api.Result, error) {
	customerRoleID, err := s.customerRoleID(ctx)
	if err != nil {
		return api.Result{}, err
	}

	filter = strings.ToLower(filter)
	if (filter == FilterCustomer || filter == FilterBackendUser) && customerRoleID == "" {
		return api.Fail(api.MsgRoleNotFound), nil
	}

	records, err := s.backend.QueryByPartition(ctx, keys.User.Partition(), store.Query{Reverse: true})
	if err != nil {
		return api.Result{}, err
	}

	list := make([]User, 0, len(records))
	for _, rec := range records {
		roleID, _ := rec.Attributes["userRole"].(string)
		switch filter {
		case FilterCustomer:
			if roleID != customerRoleID {
				continue
			}
		case FilterBackendUser:
			if roleID == customerRoleID {
				continue
			}
		}
		list = append(list, userFromRecord(rec))
	}
	return api.OK(api.MsgUserList, list), nil
}

// ForgotPassword mails a reset link. The account must exist; nothing is
// mutated until the reset itself.
func (s *Service) ForgotPassword(ctx context.Context, email string) (api.Result, error) {
	rec, err := s.backend.GetByKey(ctx, keys.User.Partition(), email)
	if errors.Is(err, store.ErrNotFound) {
		return api.Fail(api.MsgUserNotFound), nil
	}
	if err != nil {
		return api.Result{}, err
	}

	firstName, _ := rec.Attributes["firstName"].(string)
	s.send(ctx, notify.Message{
		To:       email,
		Template: notify.TemplateForgotPassword,
		Data: map[string]string{
			"firstName": firstName,
			"resetLink": s.links.ForgotPasswordBase + "?email=" + email,
		},
	})

	return api.OK(api.MsgResetMailSent, nil), nil
}

// ResetPassword stores a new password hash without checking the old one;
// the reset link is the authorization.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) (api.Result, error) {
	return s.setPassword(ctx, email, newPassword, "")
}

// ChangePassword stores a new password hash after verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) (api.Result, error) {
	return s.setPassword(ctx, email, newPassword, oldPassword)
}

func (s *Service) setPassword(ctx context.Context, email, newPassword, oldPassword string) (api.Result, error) {
	rec, err := s.backend.GetByKey(ctx, keys.User.Partition(), email)
	if errors.Is(err, store.ErrNotFound) {
		return api.Fail(api.MsgUserNotFound), nil
	}
	if err != nil {
		return api.Result{}, err
	}

	if oldPassword != "" {
		hash, _ := rec.Attributes["password"].(string)
		if !s.hasher.Compare(hash, oldPassword) {
			return api.Fail(api.MsgPasswordWrong), nil
		}
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return api.Result{}, err
	}

	old := cloneAttrs(rec.Attributes)
	rec.Attributes["password"] = hash
	rec.UpdatedOn = s.now().UTC().Format(time.RFC3339)
	if err := s.backend.Put(ctx, *rec); err != nil {
		return api.Result{}, err
	}

	s.audit.Record(ctx, keys.User, email, audit.EventEdit, old, rec.Attributes)

	return api.OK(api.MsgPasswordUpdated, nil), nil
}

// customerRoleID resolves the id of the "customer" role, or "" when no such
// role exists.
func (s *Service) customerRoleID(ctx context.Context) (string, error) {
	records, err := s.backend.QueryByPartition(ctx, keys.Role.Partition(), store.Query{
		Filter: &store.Condition{Field: "roleName", Value: "customer"},
	})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", nil
	}
	return records[0].SortKey, nil
}

// send delivers mail fire-and-forget: a failure is logged, never returned.
func (s *Service) send(ctx context.Context, msg notify.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Error("mail send failed",
			"template", msg.Template,
			"to", msg.To,
			"error", err,
		)
	}
}

func userFromRecord(rec store.Record) User {
	user := User{
		Email:     rec.SortKey,
		CreatedOn: rec.CreatedOn,
		UpdatedOn: rec.UpdatedOn,
	}
	if v, ok := rec.Attributes["userId"].(string); ok {
		user.UserID = v
	}
	if v, ok := rec.Attributes["firstName"].(string); ok {
		user.FirstName = v
	}
	if v, ok := rec.Attributes["lastName"].(string); ok {
		user.LastName = v
	}
	if v, ok := rec.Attributes["mobileNumber"].(string); ok {
		user.MobileNumber = v
	}
	if v, ok := rec.Attributes["userStatus"].(bool); ok {
		user.Active = v
	}
	if v, ok := rec.Attributes["emailVerified"].(bool); ok {
		user.Verified = v
	}
	if v, ok := rec.Attributes["userRole"].(string); ok {
		user.RoleID = v
	}
	return user
}

func cloneAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
