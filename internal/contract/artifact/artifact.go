// Package artifact stores raw document bytes by key.
//
// Keys are opaque to the store. The generator uses content-addressed keys
// (see Key) so an object, once written, is never overwritten with different
// bytes.
package artifact

import (
	"context"
	"fmt"

	id "ranchdesk/pkg/domain"
)

// Store is the artifact backend. Get returns sentinel.ErrNotFound for a
// missing key; any other error is transient.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Key derives the unsigned artifact key for a contract and content hash.
func Key(contractID id.ContractID, hash, ext string) string {
	return fmt.Sprintf("contracts/%s/%s.%s", contractID, hash, ext)
}
