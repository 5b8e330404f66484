package testsupport

import (
	"context"
	"testing"

	"adgen/internal/catalog"
	"adgen/internal/config"
)

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddContent registers a product image for userID using the provided store.
func AddContent(t testing.TB, store *catalog.Store, userID, category string) catalog.Content {
	t.Helper()

	content, err := store.AddContent(context.Background(), userID, catalog.NewContent{
		ImageURL: "https://cdn.test/uploads/" + userID + ".jpg",
		Category: category,
	})
	if err != nil {
		t.Fatalf("store.AddContent: %v", err)
	}
	return content
}
