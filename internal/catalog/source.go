package catalog

import (
	"context"
	"fmt"
)

// ObjectReader is the slice of object storage the catalog needs.
type ObjectReader interface {
	GetObject(ctx context.Context, objectKey string) ([]byte, error)
}

// FromStorage loads a catalog revision published to object storage.
func FromStorage(ctx context.Context, store ObjectReader, key string) (*Catalog, error) {
	data, err := store.GetObject(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog %q: %w", key, err)
	}
	return Load(data)
}
