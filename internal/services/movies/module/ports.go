package module

import (
	"context"

	"helioserve/internal/services/movies/domain"
)

// Ports holds the ports exposed by the movies module
type Ports struct {
	Service domain.ServicePort
	Worker  interface{ Run(ctx context.Context) error }
}
