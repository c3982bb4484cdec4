package pricing

import (
	"fmt"

	"github.com/google/uuid"
)

// maxCategoryDepth caps parent-chain traversal. The catalog models a forest,
// but an administrative mistake can introduce a parent cycle; the cap plus the
// visited set below turn that into an error instead of an endless walk.
const maxCategoryDepth = 64

// Ancestors returns the category itself followed by each parent up to a root.
// A parent reference to a category missing from the snapshot ends the chain.
// A detected cycle is reported as a catalog data error.
func (s Snapshot) Ancestors(id uuid.UUID) ([]Category, error) {
	cat, ok := s.Categories[id]
	if !ok {
		return nil, nil
	}
	chain := make([]Category, 0, 4)
	seen := make(map[uuid.UUID]struct{}, 4)
	for depth := 0; ; depth++ {
		if _, dup := seen[cat.ID]; dup || depth >= maxCategoryDepth {
			return nil, fmt.Errorf("category %q: parent cycle: %w", cat.Name, ErrCatalogData)
		}
		seen[cat.ID] = struct{}{}
		chain = append(chain, cat)
		if cat.ParentID == nil {
			return chain, nil
		}
		parent, ok := s.Categories[*cat.ParentID]
		if !ok {
			return chain, nil
		}
		cat = parent
	}
}
