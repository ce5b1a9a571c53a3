package middleware

import "github.com/aretw0/storyline/pkg/ports"

// Middleware allows wrapping a SaveStore to add behavior.
type Middleware func(ports.SaveStore) ports.SaveStore

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.SaveStore, mws ...Middleware) ports.SaveStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
