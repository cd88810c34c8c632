// Copyright 2026 Weft Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package weft

import (
	"log/slog"

	"github.com/glimte/weft-go/dispatch"
)

// Engine provides the main entry point for weft-go. It owns the
// scheduling fabric the composables created against it run on.
type Engine struct {
	observable dispatch.Observable
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

type engineConfig struct {
	logger     *slog.Logger
	workers    int
	queueDepth int
	middleware []dispatch.Middleware
	observable dispatch.Observable
}

// EngineOption configures the Engine.
type EngineOption func(*engineConfig)

// WithLogger sets the logger used by the fabric and by composables
// created through the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithWorkers sets the worker count of the engine-owned dispatcher.
func WithWorkers(n int) EngineOption {
	return func(c *engineConfig) {
		c.workers = n
	}
}

// WithQueueDepth sets the task queue capacity of the engine-owned
// dispatcher.
func WithQueueDepth(n int) EngineOption {
	return func(c *engineConfig) {
		c.queueDepth = n
	}
}

// WithMiddleware adds middleware around every handler invocation on the
// engine-owned dispatcher.
func WithMiddleware(mw ...dispatch.Middleware) EngineOption {
	return func(c *engineConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithObservable runs the engine on a caller-supplied scheduling fabric
// instead of an engine-owned dispatcher. Close then becomes a no-op; the
// caller keeps ownership of the fabric's lifecycle.
func WithObservable(obs dispatch.Observable) EngineOption {
	return func(c *engineConfig) {
		c.observable = obs
	}
}

// New creates an engine. Unless WithObservable is given, the engine
// starts and owns an in-process dispatcher.
func New(options ...EngineOption) *Engine {
	cfg := &engineConfig{
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(cfg)
	}

	e := &Engine{logger: cfg.logger}
	if cfg.observable != nil {
		e.observable = cfg.observable
		return e
	}

	dispatcherOpts := []dispatch.DispatcherOption{
		dispatch.WithDispatcherLogger(cfg.logger),
	}
	if cfg.workers > 0 {
		dispatcherOpts = append(dispatcherOpts, dispatch.WithWorkers(cfg.workers))
	}
	if cfg.queueDepth > 0 {
		dispatcherOpts = append(dispatcherOpts, dispatch.WithQueueDepth(cfg.queueDepth))
	}
	if len(cfg.middleware) > 0 {
		dispatcherOpts = append(dispatcherOpts, dispatch.WithDispatchMiddleware(cfg.middleware...))
	}

	e.dispatcher = dispatch.NewDispatcher(dispatcherOpts...)
	e.observable = e.dispatcher
	return e
}

// Observable returns the scheduling handle to create composables
// against.
func (e *Engine) Observable() dispatch.Observable {
	return e.observable
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Close shuts down the engine-owned dispatcher, draining queued work.
// It does nothing when the engine runs on a caller-supplied fabric.
func (e *Engine) Close() {
	if e.dispatcher != nil {
		e.dispatcher.Close()
	}
}
