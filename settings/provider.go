package settings

import (
	"context"

	"github.com/KOMKZ/go-yogan-settings/logger"
	"github.com/samber/do/v2"
)

// ProvideManager creates the Manager provider. A *logger.CtxZapLogger or
// *Metrics already registered in the injector is picked up; explicit opts win.
//
//	do.Provide(injector, settings.ProvideManager())
//	do.Provide(injector, settings.ProvideSettings[AppSettings](settings.Options{EnvVar: "APP_SETTINGS"}))
//	cfg := do.MustInvoke[*AppSettings](injector)
func ProvideManager(opts ...ManagerOption) func(do.Injector) (*Manager, error) {
	return func(i do.Injector) (*Manager, error) {
		all := make([]ManagerOption, 0, len(opts)+2)
		if l, err := do.Invoke[*logger.CtxZapLogger](i); err == nil {
			all = append(all, WithLogger(l))
		}
		if metrics, err := do.Invoke[*Metrics](i); err == nil {
			all = append(all, WithMetrics(metrics))
		}
		all = append(all, opts...)
		return NewManager(all...), nil
	}
}

// ProvideManagerValue registers an existing manager
func ProvideManagerValue(m *Manager) func(do.Injector) (*Manager, error) {
	return func(do.Injector) (*Manager, error) {
		return m, nil
	}
}

// ProvideSettings initializes the injected Manager with opts and decodes the
// result into T
func ProvideSettings[T any](opts Options) func(do.Injector) (*T, error) {
	return func(i do.Injector) (*T, error) {
		m, err := do.Invoke[*Manager](i)
		if err != nil {
			return nil, err
		}
		if !m.Store().Loaded() {
			if _, err := m.Initialize(context.Background(), opts); err != nil {
				return nil, err
			}
		}
		var target T
		if err := m.Decode(&target); err != nil {
			return nil, err
		}
		return &target, nil
	}
}
