package tenantrepofakes

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
)

var _ tenants.Repo = (*FakeTenantRepo)(nil)

// FakeTenantRepo keeps tenants in memory. Used in DEV and in tests.
type FakeTenantRepo struct {
	tenants map[string]tenants.Tenant
	lock    sync.RWMutex
}

func NewFakeTenantRepo() *FakeTenantRepo {
	return &FakeTenantRepo{
		tenants: make(map[string]tenants.Tenant),
	}
}

func (tr *FakeTenantRepo) Upsert(_ context.Context, tenantData *tenants.Tenant) error {
	if tenantData == nil || tenantData.ClientKey == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "tenant without client key")
	}
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tenantData.UpdatedAt = time.Now()
	stored := *tenantData
	if existing, ok := tr.tenants[tenantData.ClientKey]; ok {
		// settings only change through SaveSettings
		stored.Settings = existing.Settings
	}
	tr.tenants[tenantData.ClientKey] = stored
	return nil
}

func (tr *FakeTenantRepo) Delete(_ context.Context, clientKey string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	delete(tr.tenants, clientKey)
	return nil
}

func (tr *FakeTenantRepo) Get(_ context.Context, clientKey string) (*tenants.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	t, ok := tr.tenants[clientKey]
	if !ok {
		return nil, errors.ErrTenantNotFound
	}
	return &t, nil
}

func (tr *FakeTenantRepo) SaveSettings(_ context.Context, clientKey string, settings tenants.Settings) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	t, ok := tr.tenants[clientKey]
	if !ok {
		return errors.ErrTenantNotFound
	}
	t.Settings = settings
	t.UpdatedAt = time.Now()
	tr.tenants[clientKey] = t
	return nil
}
