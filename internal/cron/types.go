// Package cron implements the persistent job scheduler: at/every/cron
// triggers firing agent turns, grounded on cron.hpp.
package cron

// Schedule names when a job fires. Kind is one of "at", "every", "cron".
type Schedule struct {
	Kind    string `json:"kind"`
	AtMs    int64  `json:"atMs"`
	EveryMs int64  `json:"everyMs"`
	Expr    string `json:"expr"`
}

// Payload is what firing the job does.
type Payload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Deliver bool   `json:"deliver"`
	Channel string `json:"channel"`
	To      string `json:"to"`
}

// State is a job's last-run bookkeeping.
type State struct {
	NextRunAtMs int64  `json:"nextRunAtMs"`
	LastRunAtMs int64  `json:"lastRunAtMs"`
	LastStatus  string `json:"lastStatus"`
	LastError   string `json:"lastError"`
}

// Job is one scheduled entry (spec.md §3's CronJob).
type Job struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Enabled        bool     `json:"enabled"`
	Schedule       Schedule `json:"schedule"`
	Payload        Payload  `json:"payload"`
	State          State    `json:"state"`
	CreatedAtMs    int64    `json:"createdAtMs"`
	UpdatedAtMs    int64    `json:"updatedAtMs"`
	DeleteAfterRun bool     `json:"deleteAfterRun"`
}
