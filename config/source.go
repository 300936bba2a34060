// Package config loads the control plane's static configuration: the cell
// catalog, tier table, and product registry, each from its own YAML file,
// grounded on the teacher's ConfigSource abstraction (Load/Hash/Name) so an
// alternate Source (e.g. a ConfigMap watcher) can be substituted without
// touching the loading call sites.
package config

import "context"

// Source loads one configuration document and reports a content hash so
// callers can detect changes across reloads.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]byte, error)
	Hash(ctx context.Context) (string, error)
}
