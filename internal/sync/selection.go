package sync

import (
	"context"

	"github.com/citeassist/engine/internal/domain"
)

// librarySelection is the resolved fetch plan: which libraries to pull from
// and, per library, which collection keys to filter items by (nil means
// "no collection filter, fetch everything in the library").
type librarySelection struct {
	libraries   []string
	collections map[string][]string
}

// resolveSelection implements spec.md §4.12's selection-resolution rules:
// legacy (bare-key) collection entries are mapped to a library by scanning
// every accessible library's collections; the fetch set is the union of
// selected_groups and the libraries the resolved collections live in,
// defaulting to the user's personal library when both selections are empty.
func resolveSelection(ctx context.Context, client *Client, cfg Config, userCfg domain.UserLibraryConfig) librarySelection {
	personalLibrary := "users/" + cfg.RemoteUserID

	libraries := map[string]struct{}{}
	collectionsByLibrary := map[string][]string{}

	for _, g := range userCfg.SelectedGroups {
		libraries[g] = struct{}{}
	}

	var legacyKeys []string
	for _, c := range userCfg.SelectedCollections {
		if c.LibraryID != "" {
			libraries[c.LibraryID] = struct{}{}
			collectionsByLibrary[c.LibraryID] = append(collectionsByLibrary[c.LibraryID], c.Key)
			continue
		}
		legacyKeys = append(legacyKeys, c.Key)
	}

	if len(legacyKeys) > 0 {
		resolved, searched := resolveLegacyCollections(ctx, client, personalLibrary, legacyKeys)
		for libID, keys := range resolved {
			libraries[libID] = struct{}{}
			collectionsByLibrary[libID] = append(collectionsByLibrary[libID], keys...)
		}
		for lib := range searched {
			libraries[lib] = struct{}{}
		}
	}

	hasCollectionSelection := len(userCfg.SelectedCollections) > 0
	if len(libraries) == 0 && !hasCollectionSelection {
		libraries[personalLibrary] = struct{}{}
	}

	sel := librarySelection{collections: collectionsByLibrary}
	for lib := range libraries {
		// Per spec.md §4.12: if a collection selection is present but this
		// library's filter is empty, skip the library entirely rather than
		// fetching its whole contents unfiltered.
		if hasCollectionSelection && len(collectionsByLibrary[lib]) == 0 {
			continue
		}
		sel.libraries = append(sel.libraries, lib)
	}
	return sel
}

// resolveLegacyCollections discovers which library contains each bare
// collection key by listing every accessible library's collections,
// starting from the personal library and then every group. Keys found in
// no library are left unresolved (dropped, per spec.md §4.12: "logged and
// skipped").
func resolveLegacyCollections(ctx context.Context, client *Client, personalLibrary string, keys []string) (map[string][]string, map[string]struct{}) {
	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}

	searchLibraries := []string{personalLibrary}
	if groups, err := client.FetchGroups(ctx); err == nil {
		for _, g := range groups {
			if g.Type != "user" {
				searchLibraries = append(searchLibraries, g.ID)
			}
		}
	}

	resolved := map[string][]string{}
	found := map[string]struct{}{}
	searched := map[string]struct{}{}
	for _, lib := range searchLibraries {
		searched[lib] = struct{}{}
		collections, err := client.FetchCollections(ctx, lib)
		if err != nil {
			continue
		}
		for _, c := range collections {
			if _, want := wanted[c.Key]; !want {
				continue
			}
			if _, already := found[c.Key]; already {
				continue
			}
			resolved[lib] = append(resolved[lib], c.Key)
			found[c.Key] = struct{}{}
		}
	}
	return resolved, searched
}
