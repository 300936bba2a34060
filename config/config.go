package config

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/cellplacement/catalog"
	"github.com/GoCodeAlone/cellplacement/placement"
	"github.com/GoCodeAlone/cellplacement/product"
)

// cellsDocument is the top-level shape of cells.yaml.
type cellsDocument struct {
	Cells []catalog.Cell `yaml:"cells"`
}

// tiersDocument is the top-level shape of tiers.yaml.
type tiersDocument struct {
	Tiers []placement.TierSpec `yaml:"tiers"`
}

// productsDocument is the top-level shape of products.yaml.
type productsDocument struct {
	Products []product.Definition `yaml:"products"`
}

// LoadCells parses src into the cell catalog's candidate pools.
func LoadCells(ctx context.Context, src Source) ([]catalog.Cell, error) {
	raw, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	var doc cellsDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Name(), err)
	}
	for i := range doc.Cells {
		for j := range doc.Cells[i].Candidates {
			doc.Cells[i].Candidates[j].Healthy = true
		}
	}
	return doc.Cells, nil
}

// LoadTiers parses src into the tier table.
func LoadTiers(ctx context.Context, src Source) ([]placement.TierSpec, error) {
	raw, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	var doc tiersDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Name(), err)
	}
	return doc.Tiers, nil
}

// LoadProducts parses src into the product registry's definitions.
func LoadProducts(ctx context.Context, src Source) ([]product.Definition, error) {
	raw, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	var doc productsDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Name(), err)
	}
	return doc.Products, nil
}

// envOrFlag resolves a configuration value from an environment variable,
// falling back to def when unset. Grounded on the teacher's
// environment-then-default resolution idiom for IDP_HOST/IDP_PORT.
func envOrFlag(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

// Host returns IDP_HOST, defaulting to 0.0.0.0.
func Host() string { return envOrFlag("IDP_HOST", "0.0.0.0") }

// Port returns IDP_PORT as an integer, defaulting to 8080.
func Port() (int, error) {
	raw := envOrFlag("IDP_PORT", "8080")
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid IDP_PORT %q: %w", raw, err)
	}
	return port, nil
}
