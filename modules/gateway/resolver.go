package gateway

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/example/realtime-presence/domain/access"
	"github.com/example/realtime-presence/modules/identity"
)

// credentialResolver collapses concurrent handshakes that present the same
// credential into one identity lookup.
type credentialResolver struct {
	access  identity.AccessPort
	timeout time.Duration
	group   singleflight.Group
}

func newCredentialResolver(port identity.AccessPort, timeout time.Duration) *credentialResolver {
	return &credentialResolver{access: port, timeout: timeout}
}

// Resolve looks the credential up. The shared call runs on its own deadline
// so one caller going away does not fail the others.
func (r *credentialResolver) Resolve(ctx context.Context, credential string) (access.Identity, error) {
	ch := r.group.DoChan(credential, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.access.ResolveCredential(callCtx, credential)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return access.Identity{}, res.Err
		}
		return res.Val.(access.Identity), nil
	case <-ctx.Done():
		return access.Identity{}, ctx.Err()
	}
}
