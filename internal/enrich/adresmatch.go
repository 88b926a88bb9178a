package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/rwidev/MatchAddressFlanders/internal/geometry"
	"github.com/rwidev/MatchAddressFlanders/internal/record"
	"github.com/rwidev/MatchAddressFlanders/pkg/basisregisters"
)

// AdresmatchOptions controls one address-match run.
type AdresmatchOptions struct {
	// Force reprocesses rows that already carry an adresmatch status.
	Force bool

	// MaxRows caps how many rows are dispatched to the service in this run.
	// Negative means no cap.
	MaxRows int

	// Delay is an extra sleep after each dispatched row, on top of the rate
	// limiter.
	Delay time.Duration
}

// AdresmatchPipeline enriches rows with adresmatch results.
type AdresmatchPipeline struct {
	client AddressMatcher
	opts   AdresmatchOptions
	log    *zap.Logger
}

// NewAdresmatch creates the address-match pipeline.
func NewAdresmatch(client AddressMatcher, opts AdresmatchOptions) *AdresmatchPipeline {
	return &AdresmatchPipeline{
		client: client,
		opts:   opts,
		log: zap.L().With(
			zap.String("pipeline", "adresmatch"),
			zap.String("run_id", uuid.NewString()),
		),
	}
}

// Run processes rows strictly sequentially, mutating them in place. Per-row
// failures are recorded on the row; only context cancellation aborts the
// batch. A row counts against the cap only when it reached the flattening
// step.
func (p *AdresmatchPipeline) Run(ctx context.Context, rows []record.Record) error {
	processed := 0
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.opts.MaxRows >= 0 && processed >= p.opts.MaxRows {
			break
		}
		if row.ShouldSkip(record.ColMatchStatus, p.opts.Force) {
			continue
		}

		query, ok := BuildQuery(row)
		if !ok {
			row.Set(record.ColMatchStatus, string(record.MatchStatusMissingInput))
			row.Set(record.ColMatchError, "Missing municipality/postcode, street, or house number")
			continue
		}

		payload, err := p.client.MatchAddress(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn("adresmatch call failed", zap.Int("row", i+1), zap.Error(err))
			row.Set(record.ColMatchStatus, string(record.MatchStatusError))
			row.Set(record.ColMatchError, err.Error())
			continue
		}

		Flatten(row, PickBestMatch(payload))

		processed++
		if p.opts.Delay > 0 {
			if err := sleep(ctx, p.opts.Delay); err != nil {
				return err
			}
		}
	}

	p.log.Info("address match complete",
		zap.Int("rows", len(rows)),
		zap.Int("dispatched", processed),
	)
	return nil
}

// BuildQuery builds the adresmatch query from a row's address fragment
// columns, trimming whitespace. ok is false when the required fragments
// ((municipality or postal code) plus street and house number) are missing.
func BuildQuery(row record.Record) (basisregisters.AddressQuery, bool) {
	q := basisregisters.AddressQuery{
		Municipality: row.Trimmed(record.ColMunicipality),
		Street:       row.Trimmed(record.ColStreet),
		HouseNumber:  row.Trimmed(record.ColHouseNumber),
		BoxNumber:    row.Trimmed(record.ColBoxNumber),
		PostalCode:   row.Trimmed(record.ColPostalCode),
	}
	if q.Municipality == "" && q.PostalCode == "" {
		return basisregisters.AddressQuery{}, false
	}
	if q.Street == "" || q.HouseNumber == "" {
		return basisregisters.AddressQuery{}, false
	}
	return q, true
}

// PickBestMatch selects the first candidate from the payload; the endpoint
// returns candidates already ranked by descending score, so no re-sorting is
// done.
func PickBestMatch(payload gjson.Result) gjson.Result {
	matches := payload.Get("adresMatches")
	if matches.IsArray() {
		if arr := matches.Array(); len(arr) > 0 {
			return arr[0]
		}
	}
	return gjson.Result{}
}

// Flatten clears the whole adresmatch output column set, then repopulates it
// from the selected match. An empty match leaves every value column blank and
// sets the no_match status. The error column is cleared in both cases; this
// step never produces an error status itself.
func Flatten(row record.Record, match gjson.Result) {
	for _, col := range record.AdresmatchColumns {
		row.Set(col, "")
	}

	if score := match.Get("score"); score.Type == gjson.Number {
		row.Set(record.ColMatchScore, fmt.Sprintf("%.4f", score.Float()))
	}

	adres := match.Get("adres")
	if !adres.IsObject() {
		adres = match
	}

	if adres.IsObject() {
		flattenAdres(row, adres)
	}

	status := record.MatchStatusNoMatch
	if hasContent(match) {
		status = record.MatchStatusMatched
	}
	row.Set(record.ColMatchError, "")
	row.Set(record.ColMatchStatus, string(status))
}

func flattenAdres(row record.Record, adres gjson.Result) {
	if ident := adres.Get("identificator"); ident.IsObject() {
		uri := basisregisters.FirstString(ident, "id")
		if uri == "" {
			uri = stringValue(adres.Get("detail"))
		}
		row.Set(record.ColMatchAdresURI, uri)
		row.Set(record.ColMatchAdresID, basisregisters.FirstString(ident, "objectId", "lokaleId"))
		row.Set(record.ColMatchNamespace, basisregisters.FirstString(ident, "naamruimte", "namespace"))
		row.Set(record.ColMatchVersion, basisregisters.FirstString(ident, "versieId", "versie"))
	} else {
		row.Set(record.ColMatchAdresURI, stringValue(adres.Get("detail")))
	}

	row.Set(record.ColMatchGemeente, spelling(adres.Get("gemeentenaam")))
	row.Set(record.ColMatchStraat, spelling(adres.Get("straatnaam")))
	row.Set(record.ColMatchHuisnr, stringValue(adres.Get("huisnummer")))
	row.Set(record.ColMatchBusnr, stringValue(adres.Get("busnummer")))
	if postinfo := adres.Get("postinfo"); postinfo.IsObject() {
		row.Set(record.ColMatchPostcode, stringValue(postinfo.Get("postnummer")))
	}
	row.Set(record.ColMatchToevoeg, stringValue(adres.Get("toevoeging")))

	positie := adres.Get("adresPositie")
	if !positie.IsObject() {
		positie = adres.Get("positie")
	}
	if positie.IsObject() {
		row.Set(record.ColMatchPosMethod, basisregisters.FirstString(positie, "positieGeometrieMethode", "methode"))
		lon, lat := position(positie)
		row.Set(record.ColMatchPosLon, lon)
		row.Set(record.ColMatchPosLat, lat)
	}
}

// position resolves longitude and latitude, each axis independently: embedded
// gml:pos markup first, then a GeoJSON-like coordinates array, then a flat
// point record with named ordinates.
func position(positie gjson.Result) (lon, lat string) {
	if geometrie := positie.Get("geometrie"); geometrie.IsObject() {
		if gml := geometrie.Get("gml"); gml.Type == gjson.String {
			lon, lat = geometry.ParsePos(gml.Str)
		}
		if lon == "" || lat == "" {
			if coords := geometrie.Get("coordinates"); coords.IsArray() {
				if arr := coords.Array(); len(arr) >= 2 {
					if lon == "" {
						lon = stringValue(arr[0])
					}
					if lat == "" {
						lat = stringValue(arr[1])
					}
				}
			}
		}
	}
	if lon == "" || lat == "" {
		if punt := positie.Get("punt"); punt.IsObject() {
			if lon == "" {
				lon = stringValue(punt.Get("xcoordinaat"))
			}
			if lat == "" {
				lat = stringValue(punt.Get("ycoordinaat"))
			}
		}
	}
	return lon, lat
}

// spelling resolves a geographic name: nested geografischeNaam.spelling first,
// then a flat spelling field, else empty.
func spelling(value gjson.Result) string {
	if !value.IsObject() {
		return ""
	}
	if geo := value.Get("geografischeNaam"); geo.IsObject() {
		if s := geo.Get("spelling"); s.Type == gjson.String {
			return s.Str
		}
	}
	if s := value.Get("spelling"); s.Type == gjson.String {
		return s.Str
	}
	return ""
}

// stringValue coerces a scalar payload value to its column representation;
// null, false, zero and absent values become the empty string.
func stringValue(r gjson.Result) string {
	switch r.Type {
	case gjson.Null, gjson.False:
		return ""
	case gjson.Number:
		if r.Float() == 0 {
			return ""
		}
	}
	return r.String()
}

// hasContent reports whether a selected match carries anything at all; an
// absent or empty candidate means no match.
func hasContent(m gjson.Result) bool {
	if m.Type == gjson.Null {
		return false
	}
	if m.IsObject() {
		return len(m.Map()) > 0
	}
	return true
}
