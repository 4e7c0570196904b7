package evemu

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/evemu/resource"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the evemu package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the evemu package's logger.
// This must be called before New.
func SetLogger(l *zap.Logger) {
	logger = l
}

// resourceLogger reports allocations entering and leaving the table.
type resourceLogger struct{}

func (resourceLogger) OnResourceEvent(ev resource.Event) {
	switch ev.Type {
	case resource.EventCreated:
		Logger().Debug("resource tracked",
			zap.Uint32("handle", uint32(ev.Handle)),
			zap.Stringer("kind", ev.Kind))
	case resource.EventDropped:
		if ev.Err != nil {
			Logger().Warn("resource release failed",
				zap.Uint32("handle", uint32(ev.Handle)),
				zap.Stringer("kind", ev.Kind),
				zap.Error(ev.Err))
			return
		}
		Logger().Debug("resource released",
			zap.Uint32("handle", uint32(ev.Handle)),
			zap.Stringer("kind", ev.Kind))
	}
}
