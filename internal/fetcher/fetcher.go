package fetcher

import (
	"context"

	"cauciones-alerts/internal/caucion"
)

// QuoteFetcher retrieves the current caución quote set. Implementations contain
// upstream failures and report them as an empty result.
type QuoteFetcher interface {
	Quotes(ctx context.Context) []caucion.Quote
}
