package geocode

import (
	"context"

	"github.com/jukenmap/jukenmap/internal/model"
)

// ResolveWithFallback tries the full address, then the shortened address
// when shortening actually changes it. retried reports whether the
// coordinate came from the shortened query.
func ResolveWithFallback(ctx context.Context, r Resolver, address string) (coord model.Coordinate, ok, retried bool) {
	if coord, ok = r.Resolve(ctx, address); ok {
		return coord, true, false
	}
	short := Shorten(address)
	if short == address || short == "" {
		return model.Coordinate{}, false, false
	}
	if coord, ok = r.Resolve(ctx, short); ok {
		return coord, true, true
	}
	return model.Coordinate{}, false, false
}
