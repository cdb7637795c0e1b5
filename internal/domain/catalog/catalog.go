package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"eventbook/internal/domain/settlement"
	"eventbook/internal/domain/shared/money"
)

var (
	ErrPackageNotFound      = errors.New("catalog: package not found")
	ErrUnknownCustomization = errors.New("catalog: unknown customization")
	ErrInvalidPackage       = errors.New("catalog: invalid package")
	ErrCurrencyUnset        = errors.New("catalog: currency must be defined")
)

type PackageID string

// Option is a customization a client may add to a package.
type Option struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Package is a supplier's bookable offer.
type Package struct {
	ID           PackageID          `json:"id"`
	SupplierID   string             `json:"supplier_id"`
	Title        string             `json:"title"`
	Currency     string             `json:"currency"`
	BasePrice    int64              `json:"base_price"`
	Options      []Option           `json:"customizations"`
	Cancellation *settlement.Policy `json:"cancellation_policy,omitempty"`
}

type Repository interface {
	ByID(ctx context.Context, id PackageID) (Package, error)
}

// Line is one priced customization of a quote.
type Line struct {
	Name  string
	Price money.Money
}

// Quote is the price of a package with the selected customizations, captured
// at booking time.
type Quote struct {
	PackageID  PackageID
	SupplierID string
	Base       money.Money
	Lines      []Line
	Total      money.Money
	Policy     settlement.Policy
}

func (p Package) Validate() error {
	if strings.TrimSpace(string(p.ID)) == "" || strings.TrimSpace(p.SupplierID) == "" {
		return fmt.Errorf("%w: id and supplier are required", ErrInvalidPackage)
	}
	if len(p.Currency) != 3 {
		return ErrCurrencyUnset
	}
	if p.BasePrice < 0 {
		return fmt.Errorf("%w: negative base price", ErrInvalidPackage)
	}
	seen := make(map[string]struct{}, len(p.Options))
	for _, opt := range p.Options {
		key := normalize(opt.Name)
		if key == "" || opt.Price < 0 {
			return fmt.Errorf("%w: customization %q", ErrInvalidPackage, opt.Name)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate customization %q", ErrInvalidPackage, opt.Name)
		}
		seen[key] = struct{}{}
	}
	if p.Cancellation != nil {
		if err := p.Cancellation.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Quote prices the package with the named customizations. Names are matched
// case-insensitively and duplicates count once.
func (p Package) Quote(selected []string, fallback settlement.Policy) (Quote, error) {
	if err := p.Validate(); err != nil {
		return Quote{}, err
	}
	currency := strings.ToUpper(p.Currency)
	total := money.Money{Amount: p.BasePrice, Currency: currency}
	q := Quote{
		PackageID:  p.ID,
		SupplierID: p.SupplierID,
		Base:       total,
		Policy:     fallback.Clone(),
	}
	if p.Cancellation != nil {
		q.Policy = p.Cancellation.Clone()
	}

	names := dedupe(selected)
	for _, name := range names {
		opt, ok := p.option(name)
		if !ok {
			return Quote{}, fmt.Errorf("%w: %q", ErrUnknownCustomization, name)
		}
		price := money.Money{Amount: opt.Price, Currency: currency}
		res, err := total.Add(price)
		if err != nil {
			return Quote{}, err
		}
		total = res
		q.Lines = append(q.Lines, Line{Name: opt.Name, Price: price})
	}
	q.Total = total
	return q, nil
}

func (p Package) option(name string) (Option, bool) {
	key := normalize(name)
	for _, opt := range p.Options {
		if normalize(opt.Name) == key {
			return opt, true
		}
	}
	return Option{}, false
}

func dedupe(names []string) []string {
	seen := make(map[string]string, len(names))
	for _, name := range names {
		key := normalize(name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; !ok {
			seen[key] = strings.TrimSpace(name)
		}
	}
	out := make([]string, 0, len(seen))
	for _, name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
