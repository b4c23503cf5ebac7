// Package config loads and validates homedash configuration.
//
// Values come from three layers, later ones winning:
//   - built-in defaults
//   - a YAML file (configs/config.yaml by default)
//   - HOMEDASH_* environment variables
//
// Secrets (MQTT password, Redis password, InfluxDB token, JWT secret) should be
// supplied through the environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Poller.Interval)
package config
