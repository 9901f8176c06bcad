// Package validation holds the shared validator instance and the fluent
// ConfigValidator used by analyzer configs, distribution specs, node
// properties and the CLI configuration.
package validation
