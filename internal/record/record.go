// Package record holds the in-memory row model shared by both enrichment
// pipelines: column-oriented records, the fixed output column sets, and the
// closed per-pipeline status vocabularies.
package record

import "strings"

// Record is one CSV row as a column name → value mapping. Pipelines mutate it
// in place; columns are only ever added, never removed.
type Record map[string]string

// Get returns the raw value of a column, or "" when absent.
func (r Record) Get(col string) string {
	return r[col]
}

// Trimmed returns the whitespace-trimmed value of a column.
func (r Record) Trimmed(col string) string {
	return strings.TrimSpace(r[col])
}

// Set assigns a column value.
func (r Record) Set(col, value string) {
	r[col] = value
}

// ShouldSkip reports whether a row was already processed by the pipeline that
// owns statusCol. Only presence of a non-empty status counts; force overrides.
func (r Record) ShouldSkip(statusCol string, force bool) bool {
	if force {
		return false
	}
	return r[statusCol] != ""
}

// MatchStatus is the terminal state of the address-match pipeline for one row.
type MatchStatus string

// Address-match status vocabulary.
const (
	MatchStatusMatched      MatchStatus = "matched"
	MatchStatusNoMatch      MatchStatus = "no_match"
	MatchStatusMissingInput MatchStatus = "missing_input"
	MatchStatusError        MatchStatus = "error"
)

// BuildingStatus is the terminal state of the building-lookup pipeline.
type BuildingStatus string

// Building-lookup status vocabulary.
const (
	BuildingStatusMatched           BuildingStatus = "matched"
	BuildingStatusMatchedNoGeometry BuildingStatus = "matched_no_geometry"
	BuildingStatusNoMatch           BuildingStatus = "no_match"
	BuildingStatusMissingAdresID    BuildingStatus = "missing_adres_id"
	BuildingStatusError             BuildingStatus = "error"
)

// Source columns read by the address-match query builder.
const (
	ColMunicipality = "LOM_MUN_NM"
	ColStreet       = "LOM_ROAD_NM"
	ColHouseNumber  = "LOM_SOURCE_HNR"
	ColBoxNumber    = "LOM_BOXNR"
	ColPostalCode   = "LOM_POSTAL_CD"
)

// Output columns written by the address-match pipeline. Downstream consumers
// depend on these exact names.
const (
	ColMatchStatus    = "adresmatch_status"
	ColMatchScore     = "adresmatch_score"
	ColMatchAdresURI  = "adresmatch_adres_uri"
	ColMatchAdresID   = "adresmatch_adres_id"
	ColMatchNamespace = "adresmatch_identificator_namespace"
	ColMatchVersion   = "adresmatch_identificator_version"
	ColMatchGemeente  = "adresmatch_gemeente"
	ColMatchStraat    = "adresmatch_straatnaam"
	ColMatchHuisnr    = "adresmatch_huisnummer"
	ColMatchBusnr     = "adresmatch_busnummer"
	ColMatchPostcode  = "adresmatch_postcode"
	ColMatchToevoeg   = "adresmatch_toevoeging"
	ColMatchPosMethod = "adresmatch_pos_method"
	ColMatchPosLon    = "adresmatch_pos_lon"
	ColMatchPosLat    = "adresmatch_pos_lat"
	ColMatchError     = "adresmatch_error"
)

// Output columns written by the building-lookup pipeline.
const (
	ColGebouwStatus = "gebouwregister_status"
	ColGebouwID     = "gebouwregister_id"
	ColGebouwWKT    = "gebouwregister_wkt"
	ColGebouwError  = "gebouwregister_error"
)

// AdresmatchColumns is the full address-match output column set, in header
// order.
var AdresmatchColumns = []string{
	ColMatchStatus,
	ColMatchScore,
	ColMatchAdresURI,
	ColMatchAdresID,
	ColMatchNamespace,
	ColMatchVersion,
	ColMatchGemeente,
	ColMatchStraat,
	ColMatchHuisnr,
	ColMatchBusnr,
	ColMatchPostcode,
	ColMatchToevoeg,
	ColMatchPosMethod,
	ColMatchPosLon,
	ColMatchPosLat,
	ColMatchError,
}

// GebouwColumns is the full building-lookup output column set, in header order.
var GebouwColumns = []string{
	ColGebouwStatus,
	ColGebouwID,
	ColGebouwWKT,
	ColGebouwError,
}
