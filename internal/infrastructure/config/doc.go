// Package config loads and validates the LumenSync configuration.
//
// Configuration is resolved in three layers, each overriding the last:
// compiled-in defaults, the YAML file, then LUMEN_SECTION_KEY environment
// variables. Validation runs after all three, and collects every problem
// into one error so a broken file is fixed in one round trip.
//
// Security Considerations:
//   - Broker passwords and InfluxDB tokens belong in environment
//     variables, not the YAML file
//   - The config file should carry 0600 permissions
//
// Usage:
//
//	cfg, err := config.Load("configs/lumensync.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// An empty path loads defaults plus environment overrides only, which is
// enough to run LumenSync against a local network with no file at all.
package config
