// SPDX-License-Identifier: EPL-2.0

// Package config loads the service configuration from a YAML file, the
// environment (AUDCLASS_ prefix, dots become underscores) and an optional
// .env file, and validates every section.
package config
