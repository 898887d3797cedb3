// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// A handful of well-known variables (SUPABASE_URL, DATABASE_URL, KALSHI_API_BASE, ...)
// override file values after parsing, so env-only deployments can run with an
// empty or missing config file.
package config
