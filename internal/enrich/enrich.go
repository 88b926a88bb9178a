// Package enrich implements the two sequential per-record enrichment
// pipelines: address matching and building-footprint lookup. Both share the
// same contract: skip rows that already carry a status unless forced, degrade
// every per-row failure to a status+error pair, and stop only on context
// cancellation or when the processed-row cap is reached.
package enrich

import (
	"context"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rwidev/MatchAddressFlanders/pkg/basisregisters"
)

// AddressMatcher is the adresmatch endpoint surface used by the pipeline.
type AddressMatcher interface {
	MatchAddress(ctx context.Context, q basisregisters.AddressQuery) (gjson.Result, error)
}

// BuildingClient is the building-registry surface used by the pipeline.
type BuildingClient interface {
	ListBuildingUnits(ctx context.Context, adresID string, limit int) ([]gjson.Result, error)
	FetchUnitDetail(ctx context.Context, unit gjson.Result) (gjson.Result, error)
	FetchBuilding(ctx context.Context, gebouwID string) (gjson.Result, error)
}

// sleep blocks for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
