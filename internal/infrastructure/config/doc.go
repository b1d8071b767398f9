// Package config handles loading and validating Gray Logic AV bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (auth secret, MQTT credentials) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - The API auth secret must be strong whenever auth is enabled
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/glav.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Core.Mode)
package config
