// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug
// any structured logger. It also offers a richer RuntimeLogger with
// contextual helpers (agent, component) and domain specific logging helpers
// for phase transitions, event dispatch and queue accounting.
package logging
