// Package history stores accepted sensor readings in SQLite.
//
// It provides a repository over the readings table, a hub.Handler that
// records every dispatched reading, and a pruner that ages out old rows.
//
// History is an audit trail of readings only. Device and component state
// is never persisted; the registry is rebuilt from the serial line on
// every hub start.
package history
