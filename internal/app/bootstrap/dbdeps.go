// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/stratadrive/internal/app/store/keyvalue"
	"github.com/dalemusser/stratadrive/internal/app/system/identity"
	"github.com/dalemusser/stratadrive/internal/app/system/transfer"
)

// DBDeps holds backend dependencies for this WAFFLE app.
//
// This struct is created in ConnectDB and passed to subsequent lifecycle
// hooks: Startup, BuildHandler, and Shutdown. Every store in the app wraps
// the shared datastore client; the identity and transfer clients talk to
// their own platform endpoints with the same credential pair.
type DBDeps struct {
	// Datastore holds the key-value REST client all stores share.
	Datastore *keyvalue.Client

	// Identity resolves viewers against the platform identity endpoint.
	Identity *identity.Client

	// Transfer moves file content inline or through the blob endpoint.
	Transfer *transfer.Transfer
}
