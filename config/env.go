package config

import (
	"fmt"
	"strconv"
	"time"
)

// EnvPrefix namespaces every recognized environment variable
const EnvPrefix = "AIRBLADDER_"

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	floats := []struct {
		name string
		dst  *float64
	}{
		{"BUOYANCY_FORCE", &c.Bladder.BuoyancyForce},
		{"DISCHARGE_RATE", &c.Bladder.DischargeRate},
		{"RECHARGE_RATE", &c.Bladder.RechargeRate},
		{"CAPACITY", &c.Bladder.Capacity},
		{"AUDIO_VOLUME", &c.Audio.Volume},
	}
	for _, f := range floats {
		raw, ok := lookup(EnvPrefix + f.name)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, f.name, err)
		}
		*f.dst = v
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{"STORAGE_BACKEND", &c.Storage.Backend},
		{"STORAGE_PATH", &c.Storage.Path},
		{"LOG_LEVEL", &c.Logging.Level},
		{"LOG_FORMAT", &c.Logging.Format},
	}
	for _, s := range strs {
		if raw, ok := lookup(EnvPrefix + s.name); ok && raw != "" {
			*s.dst = raw
		}
	}

	if raw, ok := lookup(EnvPrefix + "AUDIO_ENABLED"); ok && raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%sAUDIO_ENABLED: %w", EnvPrefix, err)
		}
		c.Audio.Enabled = v
	}

	if raw, ok := lookup(EnvPrefix + "RETRY_INTERVAL"); ok && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%sRETRY_INTERVAL: %w", EnvPrefix, err)
		}
		c.Anchor.RetryInterval = d
	}

	return nil
}
