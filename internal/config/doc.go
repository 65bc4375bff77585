// Package config provides configuration structures and utilities for
// defensys: command-line settings, the optional .defensys YAML file with
// heuristic, reputation and classifier overrides, and XDG default
// directories.
package config
