package module

import "helioserve/internal/services/render/domain"

// Ports holds the ports exposed by the render module
type Ports struct {
	Frames  domain.FrameBuilder
	Service domain.ServicePort
}
