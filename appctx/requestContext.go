package appctx

import (
	"context"
	"errors"
)

// RequestContext carries the ambient per-request identity (tenant, user)
// as an explicit value instead of process-wide state. Every service below
// the transport layer takes it as a parameter.
type RequestContext struct {
	TenantId int
	Username string
}

var ErrMissingTenant = errors.New("tenant id is required")

// FromContext extracts the RequestContext placed by the transport layer.
// TenantId is mandatory; Username may be empty for system-initiated work.
func FromContext(ctx context.Context) (RequestContext, error) {
	tenantId, ok := GetInt(ctx, ContextKeyTenantId)
	if !ok || tenantId <= 0 {
		return RequestContext{}, ErrMissingTenant
	}
	username, _ := GetString(ctx, ContextKeyUsername)
	return RequestContext{TenantId: tenantId, Username: username}, nil
}

func (rc RequestContext) Inject(ctx context.Context) context.Context {
	ctx = Set(ctx, ContextKeyTenantId, rc.TenantId)
	if rc.Username != "" {
		ctx = Set(ctx, ContextKeyUsername, rc.Username)
	}
	return ctx
}
