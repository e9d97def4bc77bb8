// File: internal/config/properties.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/magiconair/properties"
	"github.com/mitchellh/go-homedir"
)

// PropertyEnvPrefix is the environment prefix that overrides property file values.
// PAGEKIT_PROP_BASE_URL overrides the "base.url" property.
const PropertyEnvPrefix = "PAGEKIT_PROP"

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// PropertySource serves externally configured values to the variable engine.
// Values come from java-style .properties files, with environment variables
// taking precedence. Keys are case-sensitive and flat: "host" and
// "host.port" are independent. It is read-only after construction.
type PropertySource struct {
	props *properties.Properties
	// env enables PAGEKIT_PROP_* overrides.
	env bool
}

// LoadProperties reads the given .properties files in order. Later files override
// earlier ones. Missing files are an error; an empty path list yields a source
// backed only by the environment.
func LoadProperties(paths ...string) (*PropertySource, error) {
	merged := properties.NewProperties()
	for _, p := range paths {
		expanded, err := homedir.Expand(p)
		if err != nil {
			return nil, fmt.Errorf("failed to expand property file path %q: %w", p, err)
		}
		props, err := properties.LoadFile(expanded, properties.UTF8)
		if err != nil {
			return nil, fmt.Errorf("failed to load property file %q: %w", expanded, err)
		}
		merged.Merge(props)
	}
	return &PropertySource{props: merged, env: true}, nil
}

// NewPropertySource builds a source from an in-memory map. Used by tests and
// by callers that assemble properties programmatically. The environment is
// not consulted.
func NewPropertySource(values map[string]string) *PropertySource {
	props := properties.NewProperties()
	props.DisableExpansion = true
	for key, value := range values {
		_ = props.SetValue(key, value)
	}
	return &PropertySource{props: props}
}

// EnvKey returns the environment variable that overrides key.
func EnvKey(key string) string {
	return PropertyEnvPrefix + "_" + envKeyReplacer.Replace(strings.ToUpper(key))
}

// Lookup returns the configured value for key.
func (p *PropertySource) Lookup(key string) (string, bool) {
	if p == nil || key == "" {
		return "", false
	}
	if p.env {
		if value, ok := os.LookupEnv(EnvKey(key)); ok {
			return value, true
		}
	}
	if p.props == nil {
		return "", false
	}
	return p.props.Get(key)
}

// Keys lists every key that came from property files, in file order.
func (p *PropertySource) Keys() []string {
	if p == nil || p.props == nil {
		return nil
	}
	return p.props.Keys()
}
