package bptree

import "fmt"

const (
	// DefaultInternalOrder is the default maximum number of children per internal node
	DefaultInternalOrder = 4
	// DefaultLeafOrder is the default maximum number of keys per leaf node
	DefaultLeafOrder = 3
)

// BPlusTreeConfig holds configuration options for the B+ tree.
// Internal and leaf nodes have separate orders: a routing entry is much
// smaller than a record handle, so internal nodes usually fan out wider.
type BPlusTreeConfig struct {
	InternalOrder int `json:"internal_order"` // Maximum number of children per internal node
	LeafOrder     int `json:"leaf_order"`     // Maximum number of keys per leaf node
	Version       int `json:"version"`        // Config version for future schema evolution
}

func NewDefaultBPlusTreeConfig() *BPlusTreeConfig {
	return &BPlusTreeConfig{
		InternalOrder: DefaultInternalOrder,
		LeafOrder:     DefaultLeafOrder,
		Version:       1,
	}
}

func NewBPlusTreeConfig(internalOrder, leafOrder int) (*BPlusTreeConfig, error) {
	config := &BPlusTreeConfig{
		InternalOrder: internalOrder,
		LeafOrder:     leafOrder,
		Version:       1,
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validateConfig checks if the BPlusTreeConfig is valid
func validateConfig(config *BPlusTreeConfig) error {
	if config == nil {
		return fmt.Errorf("BPlusTreeConfig cannot be nil")
	}
	if config.InternalOrder < 3 {
		return fmt.Errorf("internal order must be at least 3, got %d", config.InternalOrder)
	}
	if config.LeafOrder < 2 {
		return fmt.Errorf("leaf order must be at least 2, got %d", config.LeafOrder)
	}
	return nil
}
