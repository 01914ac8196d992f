package observability

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

var (
	observers = map[string]Observer{
		"noop":   NoOpObserver{},
		"slog":   NewSlogObserver(slog.Default()),
		"logrus": NewLogrusObserver(logrus.StandardLogger()),
	}
	mutex sync.RWMutex
)

// lazy builds observers that need setup on first use.
var lazy = map[string]func() (Observer, error){
	"otel": func() (Observer, error) { return NewOTelObserver(nil) },
	"prometheus": func() (Observer, error) {
		return NewPrometheusObserver(nil)
	},
	"zap": func() (Observer, error) {
		logger, err := zap.NewProduction()
		if err != nil {
			return nil, err
		}
		return NewZapObserver(logger), nil
	},
}

// GetObserver returns a registered observer by name. Pre-registered
// observers: "noop", "slog" (default logger) and "logrus" (standard
// logger). "otel" (global meter provider), "prometheus" (default
// registerer) and "zap" (production logger) are created on first use.
func GetObserver(name string) (Observer, error) {
	mutex.RLock()
	obs, exists := observers[name]
	mutex.RUnlock()
	if exists {
		return obs, nil
	}

	build, ok := lazy[name]
	if !ok {
		return nil, fmt.Errorf("unknown observer: %s", name)
	}

	mutex.Lock()
	defer mutex.Unlock()
	if obs, exists := observers[name]; exists {
		return obs, nil
	}
	o, err := build()
	if err != nil {
		return nil, err
	}
	observers[name] = o
	return o, nil
}

// RegisterObserver adds or replaces a named observer in the global registry.
func RegisterObserver(name string, observer Observer) {
	mutex.Lock()
	defer mutex.Unlock()

	observers[name] = observer
}
