// Package config handles loading and validating the peripheral engine configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields and detection thresholds
//
// Secrets (MQTT password, InfluxDB token) should be set via environment
// variables rather than committed to the config file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Site.LabScope)
package config
