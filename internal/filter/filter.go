// Package filter derives the searchable view of a catalog.
package filter

import (
	"strings"

	"cryptoWatch/internal/model"
)

// Filter returns the assets whose name or symbol contains query, ignoring
// case. Catalog order is kept. An empty query returns the catalog as is.
func Filter(catalog []model.AssetSnapshot, query string) []model.AssetSnapshot {
	if query == "" {
		return catalog
	}

	needle := strings.ToLower(query)
	out := make([]model.AssetSnapshot, 0, len(catalog))
	for _, asset := range catalog {
		if Matches(asset, needle) {
			out = append(out, asset)
		}
	}
	return out
}

// Matches reports whether a lower-cased needle occurs in the asset's name or symbol.
func Matches(asset model.AssetSnapshot, needle string) bool {
	return strings.Contains(strings.ToLower(asset.Name), needle) ||
		strings.Contains(strings.ToLower(asset.Symbol), needle)
}
