// Package config loads negotiation scenarios from YAML. A scenario names a
// registered environment id, parameter overrides and the reset-time product
// catalog, so whole experiments can be described declaratively and replayed
// without code changes.
package config
