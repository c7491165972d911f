package config

import (
	"time"

	"github.com/spf13/viper"
)

// BillingConfig controls where the pricing catalog comes from.
type BillingConfig struct {
	Enabled        bool
	CatalogURL     string
	APIKey         string
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	CTAURL         string
}

// LoadBillingConfig reads the billing.* keys from v. The provider is only consulted when it
// is enabled and has a catalog URL.
func LoadBillingConfig(v *viper.Viper) *BillingConfig {
	v.SetDefault("billing.enabled", false)
	v.SetDefault("billing.cache_ttl", 5*time.Minute)
	v.SetDefault("billing.request_timeout", 5*time.Second)
	v.SetDefault("billing.cta_url", "/sign-up")

	return &BillingConfig{
		Enabled:        v.GetBool("billing.enabled"),
		CatalogURL:     v.GetString("billing.catalog_url"),
		APIKey:         v.GetString("billing.api_key"),
		CacheTTL:       v.GetDuration("billing.cache_ttl"),
		RequestTimeout: v.GetDuration("billing.request_timeout"),
		CTAURL:         v.GetString("billing.cta_url"),
	}
}

// ProviderEnabled reports whether the remote catalog should be used.
func (c *BillingConfig) ProviderEnabled() bool {
	return c != nil && c.Enabled && c.CatalogURL != ""
}
