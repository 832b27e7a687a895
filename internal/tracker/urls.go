package tracker

import (
	"context"
	"slices"

	"github.com/shyim/lighthouse-bench/internal/state"
	"github.com/shyim/lighthouse-bench/internal/urlcheck"
)

// URLSet is the ordered set of tracked URLs.
type URLSet struct {
	store state.Store
}

func (s *URLSet) List(ctx context.Context) ([]string, error) {
	return load[string](ctx, s.store, state.URLs)
}

// Add appends raw after normalization. Duplicates are rejected.
func (s *URLSet) Add(ctx context.Context, raw string) (string, error) {
	u, err := urlcheck.Normalize(raw)
	if err != nil {
		return "", err
	}

	urls, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	if slices.Contains(urls, u) {
		return "", &urlcheck.ValidationError{URL: u, Reason: "url is already tracked"}
	}

	return u, save(ctx, s.store, state.URLs, append(urls, u))
}

// Remove drops u and reports whether it was tracked.
func (s *URLSet) Remove(ctx context.Context, u string) (bool, error) {
	urls, err := s.List(ctx)
	if err != nil {
		return false, err
	}

	kept := slices.DeleteFunc(slices.Clone(urls), func(v string) bool { return v == u })
	if len(kept) == len(urls) {
		return false, nil
	}
	return true, save(ctx, s.store, state.URLs, kept)
}
