package database

import "time"

// StatementEvent describes one statement that ran successfully.
type StatementEvent struct {
	Connection string        `json:"connection"`
	SQL        string        `json:"sql"`
	Bindings   []any         `json:"bindings"`
	Elapsed    time.Duration `json:"elapsed"`
}
