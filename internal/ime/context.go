package ime

import (
	"log/slog"
)

// Context owns the input method context of one window for a short, scoped
// use. Create it with Acquire and release it with a deferred Release:
//
//	ctx := ime.Acquire(p, hwnd)
//	defer ctx.Release()
//	if comp, ok := ctx.ComposingText(); ok {
//	    ...
//	}
//
// A Context must be used from the thread that owns the window and must not
// be copied. The zero handle is allowed; every query on it reports no data.
type Context struct {
	platform Platform
	hwnd     HWND
	himc     HIMC
	released bool
	logger   *slog.Logger
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for diagnostics. Composition text is never
// logged, only sizes and offsets.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l.With("subsystem", "ime")
		}
	}
}

// Acquire obtains the current input method context of hwnd. It always
// returns a Context; when the window has no context the handle is zero and
// queries yield no data.
func Acquire(p Platform, hwnd HWND, opts ...Option) *Context {
	c := &Context{
		platform: p,
		hwnd:     hwnd,
		logger:   slog.Default().With("subsystem", "ime"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if p != nil {
		c.himc = p.GetContext(hwnd)
	}
	if c.himc == 0 {
		c.logger.Debug("window has no input context", "hwnd", uintptr(hwnd))
	}

	return c
}

// Window returns the window the context was acquired for.
func (c *Context) Window() HWND {
	return c.hwnd
}

// Handle returns the native context handle, or zero once released.
func (c *Context) Handle() HIMC {
	if c.released {
		return 0
	}
	return c.himc
}

// Released reports whether Release has run.
func (c *Context) Released() bool {
	return c.released
}

// Release hands the context back to the system. Only the first call has an
// effect. Failures are logged and otherwise ignored.
func (c *Context) Release() {
	if c == nil || c.released {
		return
	}
	c.released = true

	if c.platform == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("release input context panicked", "hwnd", uintptr(c.hwnd), "panic", r)
		}
	}()

	if !c.platform.ReleaseContext(c.hwnd, c.himc) {
		c.logger.Debug("release input context failed", "hwnd", uintptr(c.hwnd))
	}
}

// usable reports whether queries may be sent to the platform.
func (c *Context) usable() bool {
	return c != nil && !c.released && c.platform != nil && c.himc != 0
}
