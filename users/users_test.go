package users_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jacentio/admix/api"
	"github.com/jacentio/admix/audit"
	"github.com/jacentio/admix/internal/keys"
	"github.com/jacentio/admix/notify"
	"github.com/jacentio/admix/store"
	"github.com/jacentio/admix/users"
)

// plainHasher keeps tests fast and lets them read the "hash" back.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (plainHasher) Compare(hashed, plain string) bool { return hashed == "hashed:"+plain }

type fakeNotifier struct {
	sent []notify.Message
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, msg notify.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newService(t *testing.T) (*users.Service, *store.Memory, *fakeNotifier, *audit.Recorder) {
	t.Helper()
	mem := store.NewMemory()
	recorder := audit.NewRecorder(mem, nil)
	notifier := &fakeNotifier{}
	links := users.Links{
		VerifyEmailBase:    "https://app.example.com/verify",
		ForgotPasswordBase: "https://app.example.com/reset",
	}
	return users.New(mem, recorder, notifier, plainHasher{}, links, nil), mem, notifier, recorder
}

func register(t *testing.T, svc *users.Service, email string) users.User {
	t.Helper()
	res, err := svc.Register(context.Background(), users.RegisterInput{
		UserID:    "ID-" + email,
		FirstName: "Ada",
		LastName:  "L",
		Email:     email,
		Password:  "secret",
	})
	if err != nil {
		t.Fatalf("Register(%q): %v", email, err)
	}
	if !res.Status {
		t.Fatalf("Register(%q) rejected: %s", email, res.Message)
	}
	return res.Data.(users.User)
}

func addRole(t *testing.T, mem *store.Memory, id, name string) {
	t.Helper()
	if err := mem.Put(context.Background(), store.Record{
		PartitionKey: keys.Role.Partition(),
		SortKey:      id,
		Attributes:   map[string]any{"roleName": name, "roleStatus": true},
	}); err != nil {
		t.Fatalf("Put role: %v", err)
	}
}

func TestRegister(t *testing.T) {
	svc, _, notifier, _ := newService(t)

	user := register(t, svc, "ada@example.com")
	if user.Active {
		t.Error("expected new registration to start inactive")
	}
	if user.Verified {
		t.Error("expected new registration to start unverified")
	}
	if user.UserID != "id-ada@example.com" {
		t.Errorf("expected case-folded userId, got %q", user.UserID)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(notifier.sent))
	}
	msg := notifier.sent[0]
	if msg.Template != notify.TemplateVerifyEmail || msg.To != "ada@example.com" {
		t.Errorf("unexpected mail %+v", msg)
	}
	if !strings.HasPrefix(msg.Data["verifyLink"], "https://app.example.com/verify/") {
		t.Errorf("unexpected verify link %q", msg.Data["verifyLink"])
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newService(t)
	register(t, svc, "ada@example.com")

	res, err := svc.Register(context.Background(), users.RegisterInput{
		Email:    "ada@example.com",
		Password: "other",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Status || res.Message != api.MsgUserExists {
		t.Errorf("expected %q failure, got %+v", api.MsgUserExists, res)
	}
}

func TestRegister_MailFailureIsSwallowed(t *testing.T) {
	svc, _, notifier, _ := newService(t)
	notifier.err = context.DeadlineExceeded

	res, err := svc.Register(context.Background(), users.RegisterInput{
		Email:    "ada@example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !res.Status {
		t.Errorf("mail failure must not fail the registration, got %s", res.Message)
	}
}

func TestCreate(t *testing.T) {
	svc, mem, notifier, _ := newService(t)
	ctx := context.Background()

	res, err := svc.Create(ctx, users.CreateInput{
		UserID:    "OP1",
		FirstName: "Grace",
		Email:     "grace@example.com",
		RoleID:    "r1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !res.Status {
		t.Fatalf("Create rejected: %s", res.Message)
	}

	rec, err := mem.GetByKey(ctx, keys.User.Partition(), "grace@example.com")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if rec.Attributes["userStatus"] != true {
		t.Error("expected admin-created account to be active")
	}
	if rec.Attributes["emailVerified"] != false {
		t.Error("expected admin-created account to be unverified")
	}
	if rec.Attributes["userRole"] != "r1" {
		t.Errorf("expected role r1, got %v", rec.Attributes["userRole"])
	}

	if len(notifier.sent) != 1 || notifier.sent[0].Template != notify.TemplateCredentials {
		t.Fatalf("expected credentials mail, got %+v", notifier.sent)
	}
	password := notifier.sent[0].Data["password"]
	if len(password) != 8 || !strings.HasSuffix(password, "@") {
		t.Errorf("unexpected temp password %q", password)
	}
	// The stored hash matches the mailed password.
	hash, _ := rec.Attributes["password"].(string)
	if !(plainHasher{}).Compare(hash, password) {
		t.Error("stored hash does not match mailed password")
	}
}

func TestLogin(t *testing.T) {
	svc, mem, _, _ := newService(t)
	ctx := context.Background()
	addRole(t, mem, "r1", "operator")

	register(t, svc, "ada@example.com")
	if _, err := svc.VerifyEmail(ctx, "ada@example.com"); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if _, err := svc.Update(ctx, "ada@example.com", users.UpdateInput{
		FirstName: "Ada", RoleID: "r1", Active: true,
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	res, err := svc.Login(ctx, "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.Status {
		t.Fatalf("Login rejected: %s", res.Message)
	}
	user := res.Data.(users.User)
	if user.UserType != "operator" {
		t.Errorf("expected resolved role name operator, got %q", user.UserType)
	}
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(t *testing.T, svc *users.Service, mem *store.Memory)
		email    string
		password string
		expected string
	}{
		{
			name:     "unknown user",
			prepare:  func(*testing.T, *users.Service, *store.Memory) {},
			email:    "ghost@example.com",
			password: "secret",
			expected: api.MsgUserNotFound,
		},
		{
			name: "wrong password",
			prepare: func(t *testing.T, svc *users.Service, _ *store.Memory) {
				register(t, svc, "ada@example.com")
			},
			email:    "ada@example.com",
			password: "nope",
			expected: api.MsgPasswordWrong,
		},
		{
			name: "unverified email",
			prepare: func(t *testing.T, svc *users.Service, _ *store.Memory) {
				register(t, svc, "ada@example.com")
			},
			email:    "ada@example.com",
			password: "secret",
			expected: api.MsgEmailUnverified,
		},
		{
			name: "inactive account",
			prepare: func(t *testing.T, svc *users.Service, _ *store.Memory) {
				register(t, svc, "ada@example.com")
				if _, err := svc.VerifyEmail(context.Background(), "ada@example.com"); err != nil {
					t.Fatalf("VerifyEmail: %v", err)
				}
				if _, err := svc.SetStatus(context.Background(), "ada@example.com", false); err != nil {
					t.Fatalf("SetStatus: %v", err)
				}
			},
			email:    "ada@example.com",
			password: "secret",
			expected: api.MsgUserInactive,
		},
		{
			name: "role gone",
			prepare: func(t *testing.T, svc *users.Service, _ *store.Memory) {
				register(t, svc, "ada@example.com")
				if _, err := svc.VerifyEmail(context.Background(), "ada@example.com"); err != nil {
					t.Fatalf("VerifyEmail: %v", err)
				}
			},
			email:    "ada@example.com",
			password: "secret",
			expected: api.MsgRoleNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mem, _, _ := newService(t)
			tt.prepare(t, svc, mem)

			res, err := svc.Login(context.Background(), tt.email, tt.password)
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if res.Status || res.Message != tt.expected {
				t.Errorf("expected %q failure, got %+v", tt.expected, res)
			}
		})
	}
}

func TestVerifyEmail(t *testing.T) {
	svc, mem, notifier, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "ada@example.com")

	res, err := svc.VerifyEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if !res.Status || res.Message != api.MsgEmailVerified {
		t.Fatalf("unexpected result %+v", res)
	}

	rec, err := mem.GetByKey(ctx, keys.User.Partition(), "ada@example.com")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if rec.Attributes["emailVerified"] != true || rec.Attributes["userStatus"] != true {
		t.Errorf("expected verified and active, got %+v", rec.Attributes)
	}

	last := notifier.sent[len(notifier.sent)-1]
	if last.Template != notify.TemplateWelcome {
		t.Errorf("expected welcome mail, got %q", last.Template)
	}
}

func TestDelete(t *testing.T) {
	svc, mem, _, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "ada@example.com")

	res, err := svc.Delete(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !res.Status {
		t.Fatalf("Delete rejected: %s", res.Message)
	}
	if _, err := mem.GetByKey(ctx, keys.User.Partition(), "ada@example.com"); err == nil {
		t.Error("expected user record to be gone")
	}

	res, err = svc.Delete(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.Status || res.Message != api.MsgUserNotFound {
		t.Errorf("expected %q failure on second delete, got %+v", api.MsgUserNotFound, res)
	}
}

func TestList_Filters(t *testing.T) {
	svc, mem, _, _ := newService(t)
	ctx := context.Background()
	addRole(t, mem, "r-cust", "customer")
	addRole(t, mem, "r-op", "operator")

	seed := []struct{ email, role string }{
		{"c1@example.com", "r-cust"},
		{"op1@example.com", "r-op"},
		{"c2@example.com", "r-cust"},
	}
	for _, u := range seed {
		if err := mem.Put(ctx, store.Record{
			PartitionKey: keys.User.Partition(),
			SortKey:      u.email,
			Attributes:   map[string]any{"userRole": u.role},
		}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	tests := []struct {
		filter   string
		expected []string
	}{
		{users.FilterAll, []string{"c2@example.com", "op1@example.com", "c1@example.com"}},
		{users.FilterCustomer, []string{"c2@example.com", "c1@example.com"}},
		{users.FilterBackendUser, []string{"op1@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			res, err := svc.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			list := res.Data.([]users.User)
			if len(list) != len(tt.expected) {
				t.Fatalf("expected %d users, got %d", len(tt.expected), len(list))
			}
			for i, email := range tt.expected {
				if list[i].Email != email {
					t.Errorf("position %d: expected %s, got %s", i, email, list[i].Email)
				}
			}
		})
	}
}

func TestList_CustomerRoleMissing(t *testing.T) {
	svc, _, _, _ := newService(t)

	res, err := svc.List(context.Background(), users.FilterCustomer)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Status || res.Message != api.MsgRoleNotFound {
		t.Errorf("expected %q failure, got %+v", api.MsgRoleNotFound, res)
	}
}

func TestForgotPassword(t *testing.T) {
	svc, _, notifier, _ := newService(t)
	register(t, svc, "ada@example.com")

	res, err := svc.ForgotPassword(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if !res.Status || res.Message != api.MsgResetMailSent {
		t.Fatalf("unexpected result %+v", res)
	}

	last := notifier.sent[len(notifier.sent)-1]
	if last.Template != notify.TemplateForgotPassword {
		t.Fatalf("expected reset mail, got %q", last.Template)
	}
	if last.Data["resetLink"] != "https://app.example.com/reset?email=ada@example.com" {
		t.Errorf("unexpected reset link %q", last.Data["resetLink"])
	}
}

func TestResetPassword(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "ada@example.com")
	if _, err := svc.VerifyEmail(ctx, "ada@example.com"); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	res, err := svc.ResetPassword(ctx, "ada@example.com", "newsecret")
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if !res.Status || res.Message != api.MsgPasswordUpdated {
		t.Fatalf("unexpected result %+v", res)
	}

	// The old password no longer works.
	login, err := svc.Login(ctx, "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.Status || login.Message != api.MsgPasswordWrong {
		t.Errorf("expected old password rejected, got %+v", login)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "ada@example.com")

	res, err := svc.ChangePassword(ctx, "ada@example.com", "wrong", "newsecret")
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if res.Status || res.Message != api.MsgPasswordWrong {
		t.Fatalf("expected wrong-password failure, got %+v", res)
	}

	res, err = svc.ChangePassword(ctx, "ada@example.com", "secret", "newsecret")
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if !res.Status {
		t.Fatalf("ChangePassword rejected: %s", res.Message)
	}
}

func TestUserMutationsAreAudited(t *testing.T) {
	svc, _, _, recorder := newService(t)
	ctx := context.Background()

	register(t, svc, "ada@example.com")
	if _, err := svc.Update(ctx, "ada@example.com", users.UpdateInput{FirstName: "Ada"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := svc.Delete(ctx, "ada@example.com"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	entries, err := recorder.Entries(ctx, keys.User)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(entries))
	}
	expected := []audit.Event{audit.EventAdd, audit.EventEdit, audit.EventDelete}
	for i, entry := range entries {
		if entry.Event != expected[i] {
			t.Errorf("entry %d: expected %s, got %s", i, expected[i], entry.Event)
		}
		if entry.SubjectID != "ada@example.com" {
			t.Errorf("entry %d: unexpected subject %s", i, entry.SubjectID)
		}
	}
}
