package enrich

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/rwidev/MatchAddressFlanders/internal/geometry"
	"github.com/rwidev/MatchAddressFlanders/internal/record"
	"github.com/rwidev/MatchAddressFlanders/pkg/basisregisters"
)

// Unit statuses treated as no longer active during unit selection.
var historicUnitStatuses = map[string]bool{
	"gehistoreerd": true,
	"afgeschaft":   true,
}

// GebouwenOptions controls one building-lookup run.
type GebouwenOptions struct {
	// AdresIDColumn is the column carrying the matched address object id.
	// Defaults to the adresmatch output column.
	AdresIDColumn string

	// UnitLimit caps the number of candidate units requested per address.
	UnitLimit int

	// IncludeHistoric takes the first candidate unit regardless of status.
	IncludeHistoric bool

	// Force reprocesses rows that already carry a gebouwregister status.
	Force bool

	// MaxRows caps how many rows complete the full lookup chain in this run.
	// Negative means no cap.
	MaxRows int

	// Delay is an extra sleep after each fully resolved row.
	Delay time.Duration
}

// GebouwenPipeline enriches rows with building-registry footprints via the
// address → unit → unit detail → building detail chain.
type GebouwenPipeline struct {
	client BuildingClient
	opts   GebouwenOptions
	log    *zap.Logger
}

// NewGebouwen creates the building-lookup pipeline.
func NewGebouwen(client BuildingClient, opts GebouwenOptions) *GebouwenPipeline {
	if opts.AdresIDColumn == "" {
		opts.AdresIDColumn = record.ColMatchAdresID
	}
	if opts.UnitLimit <= 0 {
		opts.UnitLimit = 5
	}
	return &GebouwenPipeline{
		client: client,
		opts:   opts,
		log: zap.L().With(
			zap.String("pipeline", "gebouwen"),
			zap.String("run_id", uuid.NewString()),
		),
	}
}

// Run processes rows strictly sequentially, mutating them in place. Each of
// the four lookup stages fails independently: a failure degrades the row's
// status and the batch moves on. Only context cancellation aborts the run.
func (p *GebouwenPipeline) Run(ctx context.Context, rows []record.Record) error {
	processed := 0
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if row.ShouldSkip(record.ColGebouwStatus, p.opts.Force) {
			continue
		}

		adresID := row.Trimmed(p.opts.AdresIDColumn)
		if adresID == "" {
			p.fail(row, record.BuildingStatusMissingAdresID, "Missing "+p.opts.AdresIDColumn)
			continue
		}

		units, err := p.client.ListBuildingUnits(ctx, adresID, p.opts.UnitLimit)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn("unit listing failed", zap.Int("row", i+1), zap.String("adres_id", adresID), zap.Error(err))
			p.fail(row, record.BuildingStatusError, err.Error())
			continue
		}

		unit, ok := SelectUnit(units, p.opts.IncludeHistoric)
		if !ok {
			p.fail(row, record.BuildingStatusNoMatch, "Geen gebouweenheid gevonden voor adres")
			continue
		}

		unitDetail, err := p.client.FetchUnitDetail(ctx, unit)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn("unit detail failed", zap.Int("row", i+1), zap.String("adres_id", adresID), zap.Error(err))
			p.fail(row, record.BuildingStatusError, err.Error())
			continue
		}

		gebouwID := BuildingID(unitDetail)
		if gebouwID == "" {
			p.fail(row, record.BuildingStatusError, "Geen gebouwId gevonden voor deze gebouweenheid")
			continue
		}

		building, err := p.client.FetchBuilding(ctx, gebouwID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn("building detail failed", zap.Int("row", i+1), zap.String("gebouw_id", gebouwID), zap.Error(err))
			p.fail(row, record.BuildingStatusError, err.Error())
			continue
		}

		wkt := ExtractGeometry(building)
		if wkt != "" {
			row.Set(record.ColGebouwStatus, string(record.BuildingStatusMatched))
			row.Set(record.ColGebouwError, "")
		} else {
			row.Set(record.ColGebouwStatus, string(record.BuildingStatusMatchedNoGeometry))
			row.Set(record.ColGebouwError, "Gebouw gevonden maar geen geometrie beschikbaar")
		}
		row.Set(record.ColGebouwID, gebouwID)
		row.Set(record.ColGebouwWKT, wkt)

		processed++
		if p.opts.MaxRows >= 0 && processed >= p.opts.MaxRows {
			break
		}
		if p.opts.Delay > 0 {
			if err := sleep(ctx, p.opts.Delay); err != nil {
				return err
			}
		}
	}

	p.log.Info("building lookup complete",
		zap.Int("rows", len(rows)),
		zap.Int("resolved", processed),
	)
	return nil
}

// fail records a terminal non-success state on the row.
func (p *GebouwenPipeline) fail(row record.Record, status record.BuildingStatus, msg string) {
	row.Set(record.ColGebouwStatus, string(status))
	row.Set(record.ColGebouwError, msg)
	row.Set(record.ColGebouwID, "")
	row.Set(record.ColGebouwWKT, "")
}

// SelectUnit picks the building unit to follow. With includeHistoric the
// first candidate wins regardless of status; otherwise the first unit whose
// status is still active wins, and an all-historic list yields no unit.
func SelectUnit(units []gjson.Result, includeHistoric bool) (gjson.Result, bool) {
	if len(units) == 0 {
		return gjson.Result{}, false
	}
	if includeHistoric {
		return units[0], true
	}
	for _, unit := range units {
		status := strings.ToLower(basisregisters.FirstString(unit, "gebouweenheidStatus", "status"))
		if !historicUnitStatuses[status] {
			return unit, true
		}
	}
	return gjson.Result{}, false
}

// BuildingID extracts the parent building id from a unit detail document,
// trying the direct field, the nested building identifier and the relation
// structure in order.
func BuildingID(unitDetail gjson.Result) string {
	return basisregisters.FirstString(unitDetail,
		"gebouwId",
		"gebouwid",
		"gebouw.identificator.objectId",
		"gebouw.identificator.objectid",
		"gebouw.id",
		"gebouw.objectId",
		"gebouw.objectid",
		"relatie.gebouwId",
		"relatie.gebouwid",
	)
}

// ExtractGeometry resolves the footprint WKT from a building detail, trying
// the polygon, line and point representations in that order.
func ExtractGeometry(detail gjson.Result) string {
	for _, field := range []string{"gebouwPolygoon", "gebouwLijn", "gebouwPunt"} {
		if shape := detail.Get(field); shape.IsObject() {
			if wkt := geometry.ToWKT(shape.Get("geometrie")); wkt != "" {
				return wkt
			}
		}
	}
	return ""
}
