package tenancy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/his/his/internal/registry"
)

// fakeRepo is an in-memory registry.Repository for resolver tests.
type fakeRepo struct {
	hospitals []*registry.Hospital
}

func (f *fakeRepo) Create(ctx context.Context, h *registry.Hospital) error { return nil }

func (f *fakeRepo) GetByID(ctx context.Context, id int64) (*registry.Hospital, error) {
	for _, h := range f.hospitals {
		if h.ID == id {
			return h, nil
		}
	}
	return nil, registry.ErrNotFound
}

func (f *fakeRepo) GetByUUID(ctx context.Context, id uuid.UUID) (*registry.Hospital, error) {
	for _, h := range f.hospitals {
		if h.UUID == id {
			return h, nil
		}
	}
	return nil, registry.ErrNotFound
}

func (f *fakeRepo) GetByDomain(ctx context.Context, domain string) (*registry.Hospital, error) {
	for _, h := range f.hospitals {
		if h.Domain == domain {
			return h, nil
		}
	}
	return nil, registry.ErrNotFound
}

func (f *fakeRepo) GetBySlug(ctx context.Context, slug string) (*registry.Hospital, error) {
	for _, h := range f.hospitals {
		if h.Slug == slug {
			return h, nil
		}
	}
	return nil, registry.ErrNotFound
}

func (f *fakeRepo) FirstActive(ctx context.Context) (*registry.Hospital, error) {
	for _, h := range f.hospitals {
		if h.Status == registry.StatusActive {
			return h, nil
		}
	}
	return nil, registry.ErrNotFound
}

func (f *fakeRepo) List(ctx context.Context) ([]*registry.Hospital, error) {
	return f.hospitals, nil
}

func (f *fakeRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	_, err := f.GetBySlug(ctx, slug)
	return err == nil, nil
}

func (f *fakeRepo) DomainExists(ctx context.Context, domain string) (bool, error) {
	_, err := f.GetByDomain(ctx, domain)
	return err == nil, nil
}

func (f *fakeRepo) DBNameExists(ctx context.Context, dbName string) (bool, error) {
	for _, h := range f.hospitals {
		if h.DBName == dbName {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ClaimProvisioning(ctx context.Context, id int64) error {
	h, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if h.Onboarding == registry.OnboardingProvisioning {
		return registry.ErrProvisioningInProgress
	}
	if h.Onboarding != registry.OnboardingPending && h.Onboarding != registry.OnboardingFailed {
		return errors.New("not claimable")
	}
	h.Onboarding = registry.OnboardingProvisioning
	return nil
}

func (f *fakeRepo) MarkProvisioned(ctx context.Context, id int64) error {
	h, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	h.Status = registry.StatusActive
	h.Onboarding = registry.OnboardingProvisioned
	return nil
}

func (f *fakeRepo) MarkFailed(ctx context.Context, id int64) error {
	h, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	h.Onboarding = registry.OnboardingFailed
	return nil
}

func (f *fakeRepo) ResetProvisioning(ctx context.Context, id int64) error {
	h, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	h.Onboarding = registry.OnboardingFailed
	return nil
}

func (f *fakeRepo) MarkCompleted(ctx context.Context, id int64) error {
	h, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	h.Onboarding = registry.OnboardingCompleted
	return nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id int64, status registry.Status) error {
	h, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	h.Status = status
	return nil
}

func twoHospitals() *fakeRepo {
	return &fakeRepo{hospitals: []*registry.Hospital{
		{ID: 1, Name: "Hopital Centrale", Slug: "hopital-centrale",
			Domain: "centrale.hospitals.test", Status: registry.StatusActive},
		{ID: 2, Name: "Clinique du Nord", Slug: "clinique-du-nord",
			Domain: "nord.hospitals.test", Status: registry.StatusActive},
	}}
}

func TestResolve_ExplicitID(t *testing.T) {
	r := NewResolver(twoHospitals(), false)
	h, err := r.Resolve(context.Background(), Request{HospitalID: "2", Host: "centrale.hospitals.test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ID != 2 {
		t.Errorf("explicit id must win over host, got hospital %d", h.ID)
	}
}

func TestResolve_ExplicitID_NotNumeric(t *testing.T) {
	r := NewResolver(twoHospitals(), false)
	_, err := r.Resolve(context.Background(), Request{HospitalID: "not-a-number"})
	if !errors.Is(err, ErrTenantNotResolved) {
		t.Errorf("expected ErrTenantNotResolved, got %v", err)
	}
}

func TestResolve_ByDomain(t *testing.T) {
	r := NewResolver(twoHospitals(), false)
	h, err := r.Resolve(context.Background(), Request{Host: "nord.hospitals.test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ID != 2 {
		t.Errorf("expected hospital 2, got %d", h.ID)
	}
}

func TestResolve_ByDomain_PortStripped(t *testing.T) {
	r := NewResolver(twoHospitals(), false)
	h, err := r.Resolve(context.Background(), Request{Host: "centrale.hospitals.test:8443"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ID != 1 {
		t.Errorf("expected hospital 1, got %d", h.ID)
	}
}

func TestResolve_TenantDomainHeaderWins(t *testing.T) {
	r := NewResolver(twoHospitals(), false)
	h, err := r.Resolve(context.Background(), Request{
		TenantDomain: "nord.hospitals.test",
		OriginalHost: "centrale.hospitals.test",
		Host:         "localhost:8000",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ID != 2 {
		t.Errorf("expected tenant-domain header to win, got hospital %d", h.ID)
	}
}

func TestResolve_OriginalHostBeatsHost(t *testing.T) {
	r := NewResolver(twoHospitals(), false)
	h, err := r.Resolve(context.Background(), Request{
		OriginalHost: "centrale.hospitals.test",
		Host:         "localhost:8000",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ID != 1 {
		t.Errorf("expected hospital 1, got %d", h.ID)
	}
}

func TestResolve_SuspendedBehavesLikeMissing(t *testing.T) {
	repo := twoHospitals()
	repo.hospitals[0].Status = registry.StatusSuspended

	r := NewResolver(repo, false)

	_, err := r.Resolve(context.Background(), Request{Host: "centrale.hospitals.test"})
	if !errors.Is(err, ErrTenantNotResolved) {
		t.Errorf("domain path: expected ErrTenantNotResolved, got %v", err)
	}

	_, err = r.Resolve(context.Background(), Request{HospitalID: "1"})
	if !errors.Is(err, ErrTenantNotResolved) {
		t.Errorf("id path: expected ErrTenantNotResolved, got %v", err)
	}
}

func TestResolve_InactiveBehavesLikeMissing(t *testing.T) {
	repo := twoHospitals()
	repo.hospitals[1].Status = registry.StatusInactive

	r := NewResolver(repo, false)
	_, err := r.Resolve(context.Background(), Request{Host: "nord.hospitals.test"})
	if !errors.Is(err, ErrTenantNotResolved) {
		t.Errorf("expected ErrTenantNotResolved, got %v", err)
	}
}

func TestResolve_NoMatch_NoFallback(t *testing.T) {
	r := NewResolver(twoHospitals(), false)
	_, err := r.Resolve(context.Background(), Request{Host: "unknown.hospitals.test"})
	if !errors.Is(err, ErrTenantNotResolved) {
		t.Errorf("expected ErrTenantNotResolved, got %v", err)
	}
}

func TestResolve_DevFallback(t *testing.T) {
	r := NewResolver(twoHospitals(), true)
	h, err := r.Resolve(context.Background(), Request{Host: "localhost:8000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ID != 1 {
		t.Errorf("expected first active hospital, got %d", h.ID)
	}
}

func TestResolve_DevFallback_NoActiveHospitals(t *testing.T) {
	repo := twoHospitals()
	repo.hospitals[0].Status = registry.StatusSuspended
	repo.hospitals[1].Status = registry.StatusInactive

	r := NewResolver(repo, true)
	_, err := r.Resolve(context.Background(), Request{Host: "localhost"})
	if !errors.Is(err, ErrTenantNotResolved) {
		t.Errorf("expected ErrTenantNotResolved, got %v", err)
	}
}
