package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ProductProfile holds the storage constants known for a product.
type ProductProfile struct {
	OptimalTemp   float64 `mapstructure:"optimal_temp"`
	ShelfLifeDays float64 `mapstructure:"shelf_life_days"`
}

// KnowledgeBase resolves per-product constants loaded from a YAML, JSON or
// TOML file of the form:
//
//	products:
//	  P001:
//	    optimal_temp: 4
//	    shelf_life_days: 10
type KnowledgeBase struct {
	products map[string]ProductProfile
}

// LoadKnowledge reads a knowledge file with its own viper instance so it
// never mixes with environment configuration.
func LoadKnowledge(path string) (*KnowledgeBase, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read knowledge file %s: %w", path, err)
	}

	var raw struct {
		Products map[string]ProductProfile `mapstructure:"products"`
	}
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge file %s: %w", path, err)
	}

	kb := &KnowledgeBase{products: make(map[string]ProductProfile, len(raw.Products))}
	for id, p := range raw.Products {
		if p.OptimalTemp < 0 || p.ShelfLifeDays < 0 {
			return nil, fmt.Errorf("knowledge for product %s has negative values", id)
		}
		// viper lowercases map keys
		kb.products[strings.ToLower(id)] = p
	}
	return kb, nil
}

// Resolve returns the known constants for productID; zero means unknown.
func (k *KnowledgeBase) Resolve(productID string) (optimalTemp, shelfLifeDays float64) {
	if k == nil {
		return 0, 0
	}
	p := k.products[strings.ToLower(productID)]
	return p.OptimalTemp, p.ShelfLifeDays
}

// Len reports how many products the knowledge base covers.
func (k *KnowledgeBase) Len() int {
	if k == nil {
		return 0
	}
	return len(k.products)
}
