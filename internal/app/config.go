package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	WorkflowPath string // workflow JSON document, or inline JSON
	ProfilePath  string // optional .hcl profile

	ServerURL string
	ClientID  string

	Sets        []string // node.param=value overrides
	OutputNodes []string // filter results to these node ids
	OutDir      string   // where fetched images land; empty skips fetching

	Timeout   time.Duration // overall bound on the wait; 0 means none
	ListNodes bool          // list the graph and exit
	Validate  bool          // ask the engine to validate before queueing

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config before the app starts.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
