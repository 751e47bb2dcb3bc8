// Package config loads the gitremote YAML configuration:
// which git remote to follow, where connection state is
// kept, and which self-hosted forges exist.
package config
