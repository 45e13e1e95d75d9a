package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"trade_sentinel_backend/models"
)

// HandlerFunc is an invokable job body. Zero-arg handlers ignore the
// parameter bag; parameterized handlers own their own parameter schema.
type HandlerFunc func(ctx context.Context, params map[string]interface{}) error

// HandlerDispatcher maps handler references to registered functions.
// References are resolved eagerly at schedule time so a broken reference
// can never surface as a runtime-only failure.
type HandlerDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewHandlerDispatcher creates an empty dispatcher.
func NewHandlerDispatcher() *HandlerDispatcher {
	return &HandlerDispatcher{handlers: make(map[string]HandlerFunc)}
}

// Register binds a handler reference to a function. Registration happens at
// startup; later registrations for the same ref replace the previous one.
func (d *HandlerDispatcher) Register(ref string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[ref] = fn
	logrus.WithField("handler", ref).Debug("handler registered")
}

// Resolve returns the function bound to ref, or a ConfigurationError when
// the reference is unknown.
func (d *HandlerDispatcher) Resolve(ref string) (HandlerFunc, error) {
	d.mu.RLock()
	fn, ok := d.handlers[ref]
	d.mu.RUnlock()
	if !ok {
		return nil, &models.ConfigurationError{Reason: fmt.Sprintf("unknown handler ref %q", ref)}
	}
	return fn, nil
}

// Invoke resolves and executes a handler. Panics inside a handler are
// recovered here so one job can never take the scheduler down.
func (d *HandlerDispatcher) Invoke(ctx context.Context, ref string, params map[string]interface{}) (err error) {
	fn, err := d.Resolve(ref)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", ref, r)
		}
	}()
	return fn(ctx, params)
}

// Refs lists the registered handler references, sorted.
func (d *HandlerDispatcher) Refs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	refs := make([]string, 0, len(d.handlers))
	for ref := range d.handlers {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
