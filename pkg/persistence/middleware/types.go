package middleware

import "github.com/arborlabs/arbor/pkg/ports"

// Middleware allows wrapping a Store to add behavior.
type Middleware func(ports.Store) ports.Store

// Chain applies middlewares so the first one listed is the outermost.
func Chain(store ports.Store, middlewares ...Middleware) ports.Store {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
