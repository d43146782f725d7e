package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	ProvidersChanged bool           // true if the failover chain changed in any way
	ProviderChanges  []ProviderDiff // per-provider diffs
	LogLevelChanged  bool
	NewLogLevel      LogLevel
	GatewayChanged   bool
}

// ProviderDiff describes what changed for a single provider entry between
// two configs. Entries are matched by backend name + model.
type ProviderDiff struct {
	Name           string
	BaseURLChanged bool
	KeyEnvChanged  bool
	Added          bool
	Removed        bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	// Gateway tunables
	if old.Gateway != new.Gateway {
		d.GatewayChanged = true
	}

	// Build provider lookup maps keyed by name+model.
	oldProviders := make(map[string]*ProviderEntry, len(old.Providers))
	for i := range old.Providers {
		oldProviders[providerKey(old.Providers[i])] = &old.Providers[i]
	}
	newProviders := make(map[string]*ProviderEntry, len(new.Providers))
	for i := range new.Providers {
		newProviders[providerKey(new.Providers[i])] = &new.Providers[i]
	}

	// Detect modified and removed providers.
	for key, oldP := range oldProviders {
		newP, exists := newProviders[key]
		if !exists {
			d.ProviderChanges = append(d.ProviderChanges, ProviderDiff{
				Name:    key,
				Removed: true,
			})
			d.ProvidersChanged = true
			continue
		}
		pd := ProviderDiff{Name: key}
		if oldP.BaseURL != newP.BaseURL {
			pd.BaseURLChanged = true
		}
		if oldP.APIKeyEnv != newP.APIKeyEnv {
			pd.KeyEnvChanged = true
		}
		if pd.BaseURLChanged || pd.KeyEnvChanged {
			d.ProviderChanges = append(d.ProviderChanges, pd)
			d.ProvidersChanged = true
		}
	}

	// Detect added providers.
	for key := range newProviders {
		if _, exists := oldProviders[key]; !exists {
			d.ProviderChanges = append(d.ProviderChanges, ProviderDiff{
				Name:  key,
				Added: true,
			})
			d.ProvidersChanged = true
		}
	}

	// Reordering the failover chain matters even when the entry set is the
	// same.
	if !d.ProvidersChanged && len(old.Providers) == len(new.Providers) {
		for i := range old.Providers {
			if providerKey(old.Providers[i]) != providerKey(new.Providers[i]) {
				d.ProvidersChanged = true
				break
			}
		}
	}

	return d
}

func providerKey(p ProviderEntry) string {
	return p.Name + "/" + p.Model
}
