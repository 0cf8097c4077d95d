// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package pollrt

import (
	"time"

	"go.uber.org/zap"

	"code.hybscloud.com/rtio"
)

// DefaultBlockingLimit is the blocking pool size of a runtime built without
// WithBlockingLimit.
const DefaultBlockingLimit = 64

// DefaultBacklog is the listen backlog used without WithBacklog.
const DefaultBacklog = 128

type options struct {
	log         *zap.Logger
	limit       int
	backoffBase time.Duration
	backoffMax  time.Duration
}

// Option configures a Runtime.
type Option func(*options)

// WithLogger sets the runtime logger. A nil logger keeps the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithBlockingLimit bounds how many offloaded jobs run at once. Values below
// one select DefaultBlockingLimit.
func WithBlockingLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

// WithBackoff sets the BlockOn backoff base and cap. Zero values select the
// rtio defaults.
func WithBackoff(base, max time.Duration) Option {
	return func(o *options) { o.backoffBase, o.backoffMax = base, max }
}

func buildOptions(opts []Option) options {
	o := options{
		limit:       DefaultBlockingLimit,
		backoffBase: rtio.DefaultBackoffBase,
		backoffMax:  rtio.DefaultBackoffMax,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = Logger()
	}
	if o.limit < 1 {
		o.limit = DefaultBlockingLimit
	}
	if o.backoffBase <= 0 {
		o.backoffBase = rtio.DefaultBackoffBase
	}
	if o.backoffMax <= 0 {
		o.backoffMax = rtio.DefaultBackoffMax
	}
	return o
}

type listenConfig struct {
	backlog int
}

// ListenOption configures BindTCP and BindUnix.
type ListenOption func(*listenConfig)

// WithBacklog sets the listen backlog. Values below one select
// DefaultBacklog.
func WithBacklog(n int) ListenOption {
	return func(c *listenConfig) { c.backlog = n }
}

func buildListenConfig(opts []ListenOption) listenConfig {
	c := listenConfig{backlog: DefaultBacklog}
	for _, opt := range opts {
		opt(&c)
	}
	if c.backlog < 1 {
		c.backlog = DefaultBacklog
	}
	return c
}
