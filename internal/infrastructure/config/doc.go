// Package config handles loading and validating the automation runtime configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - Webhook listeners are unauthenticated; bind them to a trusted interface
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Automation.EmailInterval)
package config
