package appctx

import (
	"context"
	"errors"
	"testing"
)

func TestFromContextRequiresTenant(t *testing.T) {
	_, err := FromContext(context.Background())
	if !errors.Is(err, ErrMissingTenant) {
		t.Fatalf("expected ErrMissingTenant, got %v", err)
	}
}

func TestRequestContextRoundTrip(t *testing.T) {
	rc := RequestContext{TenantId: 7, Username: "ops@local"}
	ctx := rc.Inject(context.Background())

	got, err := FromContext(ctx)
	if err != nil {
		t.Fatalf("FromContext: %v", err)
	}
	if got != rc {
		t.Fatalf("got %+v, want %+v", got, rc)
	}
}

func TestInjectKeepsUsernameOptional(t *testing.T) {
	rc := RequestContext{TenantId: 3}
	got, err := FromContext(rc.Inject(context.Background()))
	if err != nil {
		t.Fatalf("FromContext: %v", err)
	}
	if got.Username != "" {
		t.Fatalf("expected empty username, got %q", got.Username)
	}
}
