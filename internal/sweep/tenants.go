package sweep

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mechanicaltomato/fizzy/internal/store"
)

// Tenant is an opaque handle to one tenant's isolation boundary. Opening
// it switches the connection; nothing done through the returned store can
// leak into another tenant.
type Tenant interface {
	Name() string
	Open() (*store.DB, error)
}

// Source enumerates tenant handles for one sweep. No ordering guarantee:
// tenant data is fully disjoint.
type Source interface {
	Tenants() ([]Tenant, error)
}

// DirSource treats every *.db file under a data directory as one tenant
// database.
type DirSource struct {
	Dir string
}

func (s DirSource) Tenants() ([]Tenant, error) {
	paths, err := filepath.Glob(filepath.Join(s.Dir, "*.db"))
	if err != nil {
		return nil, fmt.Errorf("scan tenant dir %s: %w", s.Dir, err)
	}
	sort.Strings(paths)

	tenants := make([]Tenant, 0, len(paths))
	for _, p := range paths {
		tenants = append(tenants, fileTenant{path: p})
	}
	return tenants, nil
}

type fileTenant struct {
	path string
}

func (t fileTenant) Name() string {
	return strings.TrimSuffix(filepath.Base(t.path), ".db")
}

func (t fileTenant) Open() (*store.DB, error) {
	return store.Open(t.path)
}
