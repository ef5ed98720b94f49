// Package config loads and validates the Sensaur hub configuration.
//
// Configuration comes from three layers, each overriding the previous:
//
//  1. Built-in defaults
//  2. The YAML config file
//  3. SENSAUR_* environment variables
//
// The loaded Config is immutable after Load returns; components receive
// the sections they need by value.
package config
