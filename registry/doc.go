// Package registry provides handler registries for the runtime. A registry
// maps event kinds to the handler the worker dispatches them to.
package registry
