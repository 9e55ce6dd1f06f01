// Package container registers the services that HTTP handlers resolve from
// the request context with ectoinject.GetContext.
package container

import (
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	mappingsvc "github.com/Ramsey-B/trellis/internal/services/mapping"
	schemasvc "github.com/Ramsey-B/trellis/internal/services/schema"
	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/Ramsey-B/trellis/pkg/transform"
	"github.com/pkg/errors"
)

type Services struct {
	Logger    ectologger.Logger
	DB        database.DB
	Mappings  *mappingsvc.Service
	Schemas   *schemasvc.Service
	Evaluator *transform.Evaluator
}

// Register installs services in the default container. Nil services are
// skipped so tests can register only what they exercise.
func Register(services Services) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return errors.Wrap(err, "failed to create dependency container")
	}

	if services.Logger != nil {
		if err := ectoinject.RegisterInstance[ectologger.Logger](container, services.Logger); err != nil {
			return errors.Wrap(err, "failed to register logger")
		}
	}

	if services.DB != nil {
		if err := ectoinject.RegisterInstance[database.DB](container, services.DB); err != nil {
			return errors.Wrap(err, "failed to register database")
		}
	}

	if services.Mappings != nil {
		if err := ectoinject.RegisterInstance[*mappingsvc.Service](container, services.Mappings); err != nil {
			return errors.Wrap(err, "failed to register mapping service")
		}
	}

	if services.Schemas != nil {
		if err := ectoinject.RegisterInstance[*schemasvc.Service](container, services.Schemas); err != nil {
			return errors.Wrap(err, "failed to register schema service")
		}
	}

	if services.Evaluator != nil {
		if err := ectoinject.RegisterInstance[*transform.Evaluator](container, services.Evaluator); err != nil {
			return errors.Wrap(err, "failed to register transformation evaluator")
		}
	}

	return nil
}
