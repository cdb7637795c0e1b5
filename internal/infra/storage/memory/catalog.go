package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"eventbook/internal/domain/catalog"
)

type CatalogRepository struct {
	mu       sync.RWMutex
	packages map[catalog.PackageID]catalog.Package
}

func NewCatalogRepository(pkgs ...catalog.Package) (*CatalogRepository, error) {
	repo := &CatalogRepository{packages: make(map[catalog.PackageID]catalog.Package)}
	for _, pkg := range pkgs {
		if err := repo.Put(pkg); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

// LoadCatalogFile reads a JSON array of packages.
func LoadCatalogFile(path string) (*CatalogRepository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog fixtures: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

func LoadCatalog(r io.Reader) (*CatalogRepository, error) {
	var pkgs []catalog.Package
	if err := json.NewDecoder(r).Decode(&pkgs); err != nil {
		return nil, fmt.Errorf("decode catalog fixtures: %w", err)
	}
	return NewCatalogRepository(pkgs...)
}

func (c *CatalogRepository) Put(pkg catalog.Package) error {
	if err := pkg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packages[pkg.ID] = pkg
	return nil
}

func (c *CatalogRepository) ByID(ctx context.Context, id catalog.PackageID) (catalog.Package, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pkg, ok := c.packages[id]
	if !ok {
		return catalog.Package{}, catalog.ErrPackageNotFound
	}
	return pkg, nil
}

var _ catalog.Repository = (*CatalogRepository)(nil)
