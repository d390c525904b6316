// Package config handles loading and validating kioskd configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//   - Canonicalising lookup keys (shell command ids and panel names are
//     matched case-insensitively, so they are stored uppercase; sensor
//     channel names are stored lowercase)
//
// Security Considerations:
//   - Sensitive values (broker credentials) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load; there is no hot reload
//
// Usage:
//
//	cfg, err := config.Load("/etc/kioskd/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.TopicRoot)
package config
