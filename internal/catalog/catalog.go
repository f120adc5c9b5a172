// Package catalog holds the instance types and machine images platform-cli is
// allowed to launch.
//
// A catalog can be loaded from a YAML (.yaml, .yml) or JSON (.json) file. When
// no file is configured the built-in defaults are used.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidInstanceType = errors.New("invalid instance type")
	ErrUnknownImage        = errors.New("unknown image")
)

// ValidationError is returned when a launch request names something outside
// the catalog. No provider call is made for such a request.
type ValidationError struct {
	Kind    error
	Value   string
	Allowed []string
}

func (e *ValidationError) Error() string {
	if errors.Is(e.Kind, ErrInvalidInstanceType) {
		return fmt.Sprintf("instance type must be one of %v, got %q", e.Allowed, e.Value)
	}
	return fmt.Sprintf("image must be one of %v (name or id), got %q", e.Allowed, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// Catalog represents the catalog file structure
type Catalog struct {
	InstanceTypes []string          `yaml:"instanceTypes" json:"instanceTypes"`
	Images        map[string]string `yaml:"images" json:"images"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		InstanceTypes: []string{"t3.micro", "t2.small"},
		Images: map[string]string{
			"ubuntu":       "ami-020cba7c55df1f615",
			"amazon-linux": "ami-00ca32bbc84273381",
		},
	}
}

// DefaultInstanceType and DefaultImage are used when a create request
// leaves them out.
const (
	DefaultInstanceType = "t3.micro"
	DefaultImage        = "ami-020cba7c55df1f615"
)

// Load loads and parses a catalog file (supports .yaml, .yml, and .json).
// An empty path yields the defaults.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var c Catalog

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to parse catalog (unknown extension %s, tried YAML): %w", ext, err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Save saves the catalog to file (format determined by file extension)
func Save(c *Catalog, path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal catalog JSON: %w", err)
		}
	default:
		data, err = yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal catalog YAML: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}

	return nil
}

// Validate ensures the catalog is usable
func (c *Catalog) Validate() error {
	if len(c.InstanceTypes) == 0 {
		return fmt.Errorf("catalog: at least one instance type is required")
	}
	for _, t := range c.InstanceTypes {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("catalog: empty instance type")
		}
	}
	if len(c.Images) == 0 {
		return fmt.Errorf("catalog: at least one image is required")
	}
	for name, id := range c.Images {
		if name == "" {
			return fmt.Errorf("catalog: image with empty name")
		}
		if !strings.HasPrefix(id, "ami-") {
			return fmt.Errorf("catalog: image %q has invalid id %q (must start with ami-)", name, id)
		}
	}
	return nil
}

// CheckInstanceType returns a *ValidationError if t is not allowed.
func (c *Catalog) CheckInstanceType(t string) error {
	for _, allowed := range c.InstanceTypes {
		if allowed == t {
			return nil
		}
	}
	return &ValidationError{Kind: ErrInvalidInstanceType, Value: t, Allowed: c.InstanceTypes}
}

// ResolveImage maps an image name or id to its id.
func (c *Catalog) ResolveImage(nameOrID string) (string, error) {
	if id, ok := c.Images[nameOrID]; ok {
		return id, nil
	}
	for _, id := range c.Images {
		if id == nameOrID {
			return id, nil
		}
	}
	return "", &ValidationError{Kind: ErrUnknownImage, Value: nameOrID, Allowed: c.imageNames()}
}

func (c *Catalog) imageNames() []string {
	names := make([]string, 0, len(c.Images))
	for name := range c.Images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
