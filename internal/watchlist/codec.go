package watchlist

import (
	"encoding/json"
	"fmt"

	"cryptoWatch/internal/model"
)

// Encode serialises the full ordered list as a JSON array.
func Encode(items []model.AssetSnapshot) (string, error) {
	if items == nil {
		items = []model.AssetSnapshot{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode watchlist: %w", err)
	}
	return string(data), nil
}

// Decode parses a stored watchlist. Anything other than an array of valid
// assets with unique ids is rejected.
func Decode(raw string) ([]model.AssetSnapshot, error) {
	var items []model.AssetSnapshot
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode watchlist: %w", err)
	}
	if items == nil {
		return nil, fmt.Errorf("decode watchlist: not an array")
	}
	if err := model.ValidateCatalog(items); err != nil {
		return nil, fmt.Errorf("decode watchlist: %w", err)
	}
	return items, nil
}
