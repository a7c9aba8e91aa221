package app

import (
	"fmt"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"

	"github.com/TomMcIver/Stock-Port/internal/repositories"
	"github.com/TomMcIver/Stock-Port/pkg/persistence"
	"github.com/TomMcIver/Stock-Port/pkg/routes/securities"
	"github.com/TomMcIver/Stock-Port/pkg/routes/tag"
	"github.com/TomMcIver/Stock-Port/pkg/tagging"
)

// Services are the instances the HTTP routes resolve per request
type Services struct {
	Logger   ectologger.Logger
	Engine   *tagging.Engine
	Adapter  *persistence.Adapter // optional
	Store    repositories.Store
	Workers  int
	OnChange securities.ChangeHook // optional
}

// RegisterServices replaces the default ectoinject container with one
// holding s
func RegisterServices(s Services) (ectocontainer.DIContainer, error) {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	registrations := []func() error{
		func() error { return ectoinject.RegisterInstance[ectologger.Logger](container, s.Logger) },
		func() error { return ectoinject.RegisterInstance[*tagging.Engine](container, s.Engine) },
		func() error {
			return ectoinject.RegisterInstance[repositories.SecurityRepo](container, s.Store.Securities)
		},
		func() error {
			return ectoinject.RegisterInstance[repositories.AssociationRepo](container, s.Store.Associations)
		},
		func() error {
			return ectoinject.RegisterInstance[tag.Settings](container, tag.Settings{Workers: s.Workers})
		},
	}
	if s.Adapter != nil {
		registrations = append(registrations, func() error {
			return ectoinject.RegisterInstance[*persistence.Adapter](container, s.Adapter)
		})
	}
	if s.OnChange != nil {
		registrations = append(registrations, func() error {
			return ectoinject.RegisterInstance[securities.ChangeHook](container, s.OnChange)
		})
	}

	for _, register := range registrations {
		if err := register(); err != nil {
			return nil, fmt.Errorf("failed to register service: %w", err)
		}
	}
	return container, nil
}

// RegisterServices registers the running App's services
func (a *App) RegisterServices() (ectocontainer.DIContainer, error) {
	return RegisterServices(Services{
		Logger:   a.Logger,
		Engine:   a.Engine,
		Adapter:  a.Adapter,
		Store:    a.Store,
		Workers:  a.Config.TagWorkerCount,
		OnChange: a.ReloadReference,
	})
}
