package modkit

import (
	"net/http"

	"helioserve/internal/modkit/httpkit"
	pstrings "helioserve/internal/platform/strings"
)

// Built is a plain struct with the fields modules care about
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	Ports  any

	// Register attaches extra endpoints after the module's own routes
	Register func(httpkit.Router)
}

// Build applies Option funcs to an internal buildCfg and returns a plain struct
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		o(&c)
	}
	return Built{
		Name:     c.name,
		Prefix:   c.prefix,
		Mw:       append([]func(http.Handler) http.Handler(nil), c.mw...),
		Ports:    c.ports,
		Register: c.register,
	}
}

// Base implements the routing half of Module for service modules to embed
// Routes is called inside the module prefix after Mw is applied
type Base struct {
	Cfg    Built
	Routes func(httpkit.Router)
}

// MountRoutes implements module.Module
func (b *Base) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, b.Prefix(), b.Cfg.Mw, func(rr httpkit.Router) {
		if b.Routes != nil {
			b.Routes(rr)
		}
		if b.Cfg.Register != nil {
			b.Cfg.Register(rr)
		}
	})
}

// Name implements module.Module
func (b *Base) Name() string { return pstrings.MustString(b.Cfg.Name, "module name") }

// Prefix returns the normalized mount prefix
func (b *Base) Prefix() string { return pstrings.MustPrefix(b.Cfg.Prefix) }

// Ports implements module.Module
func (b *Base) Ports() any { return b.Cfg.Ports }
