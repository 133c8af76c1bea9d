package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PolicyConfig holds the lifecycle knobs that operators may tune without a
// redeploy: the soft-delete recovery window, the invitation token TTL and
// the capacity given to newly created companies.
type PolicyConfig struct {
	RecoveryWindowDays  int `mapstructure:"recoveryWindowDays"`
	InvitationTTLDays   int `mapstructure:"invitationTTLDays"`
	DefaultMaxTrainees  int `mapstructure:"defaultMaxTrainees"`
	DeletedListPageSize int `mapstructure:"deletedListPageSize"`
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		RecoveryWindowDays:  30,
		InvitationTTLDays:   7,
		DefaultMaxTrainees:  50,
		DeletedListPageSize: 50,
	}
}

func (c PolicyConfig) RecoveryWindow() time.Duration {
	return time.Duration(c.RecoveryWindowDays) * 24 * time.Hour
}

func (c PolicyConfig) InvitationTTL() time.Duration {
	return time.Duration(c.InvitationTTLDays) * 24 * time.Hour
}

type PolicyConfigHolder struct {
	current atomic.Value // holds PolicyConfig
}

func NewPolicyConfigHolder() (*PolicyConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/backoffice/config") // Volume-mounted config
	v.AddConfigPath("/etc/backoffice")            // System config
	v.AddConfigPath(".")                          // Current directory (dev mode)

	v.SetEnvPrefix("BACKOFFICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicyConfig()
	v.SetDefault("policy.recoveryWindowDays", defaults.RecoveryWindowDays)
	v.SetDefault("policy.invitationTTLDays", defaults.InvitationTTLDays)
	v.SetDefault("policy.defaultMaxTrainees", defaults.DefaultMaxTrainees)
	v.SetDefault("policy.deletedListPageSize", defaults.DeletedListPageSize)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg PolicyConfig
	if err := v.UnmarshalKey("policy", &cfg); err != nil {
		return nil, err
	}
	if err := validatePolicyConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PolicyConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PolicyConfig
		if err := v.UnmarshalKey("policy", &updated); err != nil {
			log.Printf("[policy-config] reload failed: %v", err)
			return
		}
		if err := validatePolicyConfig(updated); err != nil {
			log.Printf("[policy-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[policy-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Current returns the active policy snapshot.
func (h *PolicyConfigHolder) Current() PolicyConfig {
	if h == nil {
		return DefaultPolicyConfig()
	}
	if cfg, ok := h.current.Load().(PolicyConfig); ok {
		return cfg
	}
	return DefaultPolicyConfig()
}

func validatePolicyConfig(cfg PolicyConfig) error {
	if cfg.RecoveryWindowDays <= 0 {
		return errors.New("policy: recoveryWindowDays must be positive")
	}
	if cfg.InvitationTTLDays <= 0 {
		return errors.New("policy: invitationTTLDays must be positive")
	}
	if cfg.DefaultMaxTrainees <= 0 {
		return errors.New("policy: defaultMaxTrainees must be positive")
	}
	if cfg.DeletedListPageSize <= 0 {
		return errors.New("policy: deletedListPageSize must be positive")
	}
	return nil
}
