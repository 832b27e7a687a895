package tracker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shyim/lighthouse-bench/internal/state"
	"github.com/sirupsen/logrus"
)

// load decodes a stored collection. A document that does not decode is
// treated as empty so the tool stays usable after manual edits.
func load[T any](ctx context.Context, store state.Store, name string) ([]T, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		logrus.WithField("collection", name).Warnf("Stored collection is corrupt, starting empty: %v", err)
		return nil, nil
	}
	return items, nil
}

func save[T any](ctx context.Context, store state.Store, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return store.Set(ctx, name, data)
}
