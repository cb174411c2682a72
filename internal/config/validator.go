package config

import (
	"fmt"
	"strings"
)

type requiredField struct {
	name  string
	value string
}

// PORT and DB settings carry usable defaults and are not listed here.
func (c *Config) requiredFields() []requiredField {
	return []requiredField{
		{"TL_CLIENT_ID", c.ClientID},
		{"TL_CLIENT_SECRET", c.ClientSecret},
		{"TL_REDIRECT_URI", c.RedirectURI},
	}
}

// validate checks that all required configuration values are set
func (c *Config) validate() error {
	var missing []string
	for _, f := range c.requiredFields() {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.PageSize < 1 {
		return fmt.Errorf("TL_PAGE_SIZE must be at least 1, got %d", c.PageSize)
	}
	return nil
}
