package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *User) error {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, u *User) error {
	if _, ok := f.users[u.ID]; !ok {
		return ErrUserNotFound
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var out []*User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

type fakeRoleRepo struct{ names []string }

func (f *fakeRoleRepo) GetByName(ctx context.Context, name string) (*Role, error) {
	for i, n := range f.names {
		if n == name {
			return &Role{ID: int64(i + 1), Name: n}, nil
		}
	}
	return nil, ErrRoleNotFound
}

func (f *fakeRoleRepo) List(ctx context.Context) ([]*Role, error) {
	var out []*Role
	for i, n := range f.names {
		out = append(out, &Role{ID: int64(i + 1), Name: n})
	}
	return out, nil
}

func newTestService(users *fakeUserRepo) *Service {
	return NewService(users, &fakeRoleRepo{names: []string{"admin", "nurse", "physician"}})
}

func TestCreateUser_HashesPassword(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestService(users)

	u, err := svc.CreateUser(context.Background(), &CreateUserRequest{
		Email:    "nurse@centrale.example",
		FullName: "Awa Diop",
		Password: "correct horse battery",
		Role:     "nurse",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.PasswordHash == "correct horse battery" {
		t.Error("password stored in clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse battery")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
	if !u.Active {
		t.Error("new users must be active")
	}
}

func TestCreateUser_UnknownRole(t *testing.T) {
	svc := newTestService(newFakeUserRepo())

	_, err := svc.CreateUser(context.Background(), &CreateUserRequest{
		Email:    "x@y.example",
		FullName: "Test User",
		Password: "long enough pw",
		Role:     "janitor",
	})
	if !errors.Is(err, ErrRoleNotFound) {
		t.Errorf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	svc := newTestService(newFakeUserRepo())

	req := &CreateUserRequest{
		Email: "x@y.example", FullName: "Test User", Password: "long enough pw", Role: "nurse",
	}
	if _, err := svc.CreateUser(context.Background(), req); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := svc.CreateUser(context.Background(), req)
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestCreateUser_ShortPasswordRejected(t *testing.T) {
	svc := newTestService(newFakeUserRepo())

	_, err := svc.CreateUser(context.Background(), &CreateUserRequest{
		Email: "x@y.example", FullName: "Test User", Password: "short", Role: "nurse",
	})
	if err == nil {
		t.Error("expected validation error for short password")
	}
}

func TestVerifyCredentials(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestService(users)

	created, err := svc.CreateUser(context.Background(), &CreateUserRequest{
		Email: "x@y.example", FullName: "Test User", Password: "long enough pw", Role: "nurse",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.VerifyCredentials(context.Background(), "x@y.example", "long enough pw"); err != nil {
		t.Errorf("valid credentials rejected: %v", err)
	}
	if _, err := svc.VerifyCredentials(context.Background(), "x@y.example", "wrong"); err == nil {
		t.Error("wrong password accepted")
	}

	if err := svc.DeactivateUser(context.Background(), created.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, err := svc.VerifyCredentials(context.Background(), "x@y.example", "long enough pw"); err == nil {
		t.Error("deactivated account must fail verification")
	}
}

func TestUpdateUser_PartialUpdate(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestService(users)

	created, err := svc.CreateUser(context.Background(), &CreateUserRequest{
		Email: "x@y.example", FullName: "Test User", Password: "long enough pw", Role: "nurse",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	newRole := "physician"
	updated, err := svc.UpdateUser(context.Background(), created.ID, &UpdateUserRequest{Role: &newRole})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Role != "physician" {
		t.Errorf("expected role physician, got %s", updated.Role)
	}
	if updated.FullName != "Test User" {
		t.Errorf("full name must be unchanged, got %s", updated.FullName)
	}
}
