package types

import (
	"errors"
	"time"
)

// Config holds the settings a client process reads from config.yaml and the
// environment. Function-valued hooks are not part of Config; they are passed
// to rest.NewClient as Options.
type Config struct {
	APIURL      string             `json:"api_url" yaml:"api_url" mapstructure:"api_url"`
	Timeout     time.Duration      `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	Strict      bool               `json:"strict" yaml:"strict" mapstructure:"strict"`
	LogLevel    string             `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogFormat   string             `json:"log_format" yaml:"log_format" mapstructure:"log_format"`
	Collections []CollectionConfig `json:"collections" yaml:"collections" mapstructure:"collections"`
}

// CollectionConfig describes one collection for generic clients such as the
// rimctl CLI. Either IDKey or both LeftKey and RightKey are set.
type CollectionConfig struct {
	Name       string `json:"name" yaml:"name" mapstructure:"name"`
	IDKey      string `json:"id_key" yaml:"id_key" mapstructure:"id_key"`
	LeftKey    string `json:"left_key" yaml:"left_key" mapstructure:"left_key"`
	RightKey   string `json:"right_key" yaml:"right_key" mapstructure:"right_key"`
	APIPath    string `json:"api_path" yaml:"api_path" mapstructure:"api_path"`
	SoftDelete bool   `json:"soft_delete" yaml:"soft_delete" mapstructure:"soft_delete"`
}

// Composite reports whether the collection is keyed on two fields.
func (c CollectionConfig) Composite() bool {
	return c.LeftKey != "" || c.RightKey != ""
}

// Config validation errors.
var (
	ErrAPIURLEmpty         = errors.New("api_url must not be empty")
	ErrTimeoutInvalid      = errors.New("timeout must not be negative")
	ErrCollectionName      = errors.New("collection name must not be empty")
	ErrCollectionDuplicate = errors.New("duplicate collection name")
	ErrCollectionKeys      = errors.New("collection needs id_key or both left_key and right_key")
)

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return ErrAPIURLEmpty
	}
	if c.Timeout < 0 {
		return ErrTimeoutInvalid
	}
	seen := make(map[string]bool, len(c.Collections))
	for _, col := range c.Collections {
		if col.Name == "" {
			return ErrCollectionName
		}
		if seen[col.Name] {
			return ErrCollectionDuplicate
		}
		seen[col.Name] = true
		if col.Composite() {
			if col.LeftKey == "" || col.RightKey == "" || col.IDKey != "" {
				return ErrCollectionKeys
			}
		}
	}
	return nil
}

// Collection returns the collection with the given name.
// Returns ErrUnknownCollection if none matches.
func (c Config) Collection(name string) (CollectionConfig, error) {
	for _, col := range c.Collections {
		if col.Name == name {
			return col, nil
		}
	}
	return CollectionConfig{}, ErrUnknownCollection
}
