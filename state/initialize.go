package state

import (
	"errors"
	"fmt"
	"time"

	"kfscope/keyframes"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{start: time.Now()}
}

// NewEngine creates scoping engine from active configuration.
func (e *LocalEnv) NewEngine() (*keyframes.Engine, error) {
	if e.Cfg == nil {
		return nil, errors.New("configuration is not loaded")
	}
	engine, err := keyframes.New(e.Cfg.Scoping.Options(), e.Log)
	if err != nil {
		return nil, fmt.Errorf("unable to create scoping engine: %w", err)
	}
	return engine, nil
}
