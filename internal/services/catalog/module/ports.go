package module

import "helioserve/internal/services/catalog/domain"

// Ports holds the ports exposed by the catalog module
type Ports struct {
	Catalog domain.CatalogPort
	Service domain.ServicePort
}
