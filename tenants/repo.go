package tenants

import "context"

type Repo interface {
	Upsert(ctx context.Context, tenant *Tenant) error
	Delete(ctx context.Context, clientKey string) error
	Get(ctx context.Context, clientKey string) (*Tenant, error)
	SaveSettings(ctx context.Context, clientKey string, settings Settings) error
}
