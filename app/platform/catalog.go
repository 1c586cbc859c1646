package platform

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yml
var defaultsYML []byte

// Catalog is the table of supported platforms. It is built once at startup
// from the embedded defaults plus optional per-deployment override files.
type Catalog struct {
	platforms map[string]Platform
}

// LoadCatalog builds the catalog from the embedded defaults and, when dir is
// non-empty, overlays any *.yml / *.yaml documents found there. Override
// entries replace defaults with the same key.
func LoadCatalog(dir string) (*Catalog, error) {
	c := &Catalog{platforms: make(map[string]Platform)}

	if err := c.loadDocument(defaultsYML); err != nil {
		return nil, fmt.Errorf("invalid embedded platform defaults: %w", err)
	}

	if dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return c, nil
		}

		files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
		if err != nil {
			return nil, fmt.Errorf("failed to find YAML files: %w", err)
		}
		ymlFiles, err := filepath.Glob(filepath.Join(dir, "*.yml"))
		if err != nil {
			return nil, fmt.Errorf("failed to find YML files: %w", err)
		}
		files = append(files, ymlFiles...)

		for _, file := range files {
			data, err := os.ReadFile(file)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", file, err)
			}
			if err := c.loadDocument(data); err != nil {
				return nil, fmt.Errorf("invalid platform catalog %s: %w", file, err)
			}
			slog.Debug("Loaded platform catalog overrides", "file", file)
		}
	}

	return c, nil
}

func (c *Catalog) loadDocument(data []byte) error {
	var doc catalogFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, p := range doc.Platforms {
		if err := validate(&p); err != nil {
			return fmt.Errorf("platform at index %d: %w", i, err)
		}
		c.platforms[p.Key] = p
	}

	return nil
}

func validate(p *Platform) error {
	if p.Key == "" {
		return fmt.Errorf("platform key is required")
	}
	if p.Name == "" {
		return fmt.Errorf("platform name is required")
	}
	if p.APIBase == "" {
		return fmt.Errorf("platform api_base is required")
	}
	return nil
}

// Get returns the platform definition for a key, or nil if unsupported
func (c *Catalog) Get(key string) *Platform {
	p, ok := c.platforms[key]
	if !ok {
		return nil
	}
	return &p
}

// Keys returns the sorted-insertion set of supported platform keys
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.platforms))
	for k := range c.platforms {
		keys = append(keys, k)
	}
	return keys
}

func (c *Catalog) Count() int {
	return len(c.platforms)
}

// PostURL builds the public URL for a platform post id. Platforms whose
// template is empty return absolute URLs as identifiers, so the id passes
// through unchanged. Unknown platforms yield an empty URL.
func (c *Catalog) PostURL(key, postID string) string {
	if postID == "" {
		return ""
	}

	p, ok := c.platforms[key]
	if !ok {
		return ""
	}

	if p.PostURLTemplate == "" || strings.HasPrefix(postID, "http://") || strings.HasPrefix(postID, "https://") {
		return postID
	}

	return strings.ReplaceAll(p.PostURLTemplate, "{id}", postID)
}
