package enrich

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/rwidev/MatchAddressFlanders/internal/record"
	"github.com/rwidev/MatchAddressFlanders/pkg/basisregisters"
)

type stubMatcher struct {
	calls    int
	queries  []basisregisters.AddressQuery
	payloads []string
	err      error
}

func (s *stubMatcher) MatchAddress(ctx context.Context, q basisregisters.AddressQuery) (gjson.Result, error) {
	s.calls++
	s.queries = append(s.queries, q)
	if s.err != nil {
		return gjson.Result{}, s.err
	}
	payload := `{"adresMatches": []}`
	if len(s.payloads) > 0 {
		payload = s.payloads[0]
		if len(s.payloads) > 1 {
			s.payloads = s.payloads[1:]
		}
	}
	return gjson.Parse(payload), nil
}

const matchPayload = `{
	"adresMatches": [{
		"score": 90.0,
		"adres": {
			"identificator": {
				"id": "https://data.vlaanderen.be/id/adres/3449660",
				"objectId": "3449660",
				"naamruimte": "https://data.vlaanderen.be/id/adres",
				"versieId": "2011-04-29T13:34:14+02:00"
			},
			"gemeentenaam": {"geografischeNaam": {"spelling": "Gent"}},
			"straatnaam": {"geografischeNaam": {"spelling": "Veldstraat"}},
			"huisnummer": "12",
			"busnummer": "B",
			"postinfo": {"postnummer": "9000"},
			"adresPositie": {
				"positieGeometrieMethode": "aangeduidDoorBeheerder",
				"geometrie": {"gml": "<gml:Point><gml:pos>104719.27 194483.6</gml:pos></gml:Point>"}
			}
		}
	}]
}`

func freshRow() record.Record {
	return record.Record{
		record.ColMunicipality: "Gent",
		record.ColStreet:       "Veldstraat",
		record.ColHouseNumber:  "12",
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name string
		row  record.Record
		ok   bool
	}{
		{"municipality street housenumber", record.Record{record.ColMunicipality: "Gent", record.ColStreet: "Veldstraat", record.ColHouseNumber: "12"}, true},
		{"postcode instead of municipality", record.Record{record.ColPostalCode: "9000", record.ColStreet: "Veldstraat", record.ColHouseNumber: "12"}, true},
		{"no municipality or postcode", record.Record{record.ColStreet: "Veldstraat", record.ColHouseNumber: "12"}, false},
		{"no street", record.Record{record.ColMunicipality: "Gent", record.ColHouseNumber: "12"}, false},
		{"no house number", record.Record{record.ColMunicipality: "Gent", record.ColStreet: "Veldstraat"}, false},
		{"whitespace only street", record.Record{record.ColMunicipality: "Gent", record.ColStreet: "   ", record.ColHouseNumber: "12"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := BuildQuery(tt.row)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestBuildQuery_TrimsFragments(t *testing.T) {
	row := record.Record{
		record.ColMunicipality: " Gent ",
		record.ColStreet:       " Veldstraat ",
		record.ColHouseNumber:  " 12 ",
		record.ColBoxNumber:    " B ",
	}
	q, ok := BuildQuery(row)
	require.True(t, ok)
	assert.Equal(t, "Gent", q.Municipality)
	assert.Equal(t, "Veldstraat", q.Street)
	assert.Equal(t, "12", q.HouseNumber)
	assert.Equal(t, "B", q.BoxNumber)
}

func TestPickBestMatch(t *testing.T) {
	payload := gjson.Parse(`{"adresMatches": [{"score": 90.0}, {"score": 80.0}]}`)
	assert.Equal(t, 90.0, PickBestMatch(payload).Get("score").Float())

	assert.False(t, PickBestMatch(gjson.Parse(`{"adresMatches": []}`)).Exists())
	assert.False(t, PickBestMatch(gjson.Parse(`{}`)).Exists())
}

func TestFlatten_FullMatch(t *testing.T) {
	row := record.Record{}
	Flatten(row, PickBestMatch(gjson.Parse(matchPayload)))

	assert.Equal(t, "matched", row[record.ColMatchStatus])
	assert.Equal(t, "90.0000", row[record.ColMatchScore])
	assert.Equal(t, "https://data.vlaanderen.be/id/adres/3449660", row[record.ColMatchAdresURI])
	assert.Equal(t, "3449660", row[record.ColMatchAdresID])
	assert.Equal(t, "https://data.vlaanderen.be/id/adres", row[record.ColMatchNamespace])
	assert.Equal(t, "2011-04-29T13:34:14+02:00", row[record.ColMatchVersion])
	assert.Equal(t, "Gent", row[record.ColMatchGemeente])
	assert.Equal(t, "Veldstraat", row[record.ColMatchStraat])
	assert.Equal(t, "12", row[record.ColMatchHuisnr])
	assert.Equal(t, "B", row[record.ColMatchBusnr])
	assert.Equal(t, "9000", row[record.ColMatchPostcode])
	assert.Equal(t, "aangeduidDoorBeheerder", row[record.ColMatchPosMethod])
	assert.Equal(t, "104719.27", row[record.ColMatchPosLon])
	assert.Equal(t, "194483.6", row[record.ColMatchPosLat])
	assert.Equal(t, "", row[record.ColMatchError])
}

func TestFlatten_NoMatch(t *testing.T) {
	row := record.Record{record.ColMatchScore: "0.8000", record.ColMatchError: "previous failure"}
	Flatten(row, gjson.Result{})

	assert.Equal(t, "no_match", row[record.ColMatchStatus])
	assert.Equal(t, "", row[record.ColMatchScore], "stale values must be cleared")
	assert.Equal(t, "", row[record.ColMatchError])
}

func TestFlatten_ClearsStaleColumnsBeforeRepopulating(t *testing.T) {
	row := record.Record{}
	Flatten(row, PickBestMatch(gjson.Parse(matchPayload)))
	Flatten(row, PickBestMatch(gjson.Parse(`{"adresMatches": [{"score": 50.0}]}`)))

	assert.Equal(t, "matched", row[record.ColMatchStatus])
	assert.Equal(t, "50.0000", row[record.ColMatchScore])
	assert.Equal(t, "", row[record.ColMatchAdresID])
	assert.Equal(t, "", row[record.ColMatchGemeente])
}

func TestFlatten_CoordinatesArrayFallback(t *testing.T) {
	payload := `{"adresMatches": [{"adres": {
		"adresPositie": {"geometrie": {"coordinates": [104719.27, 194483.6]}}
	}}]}`
	row := record.Record{}
	Flatten(row, PickBestMatch(gjson.Parse(payload)))
	assert.Equal(t, "104719.27", row[record.ColMatchPosLon])
	assert.Equal(t, "194483.6", row[record.ColMatchPosLat])
}

func TestFlatten_PuntFallback(t *testing.T) {
	payload := `{"adresMatches": [{"adres": {
		"positie": {"punt": {"xcoordinaat": 104719.27, "ycoordinaat": 194483.6}}
	}}]}`
	row := record.Record{}
	Flatten(row, PickBestMatch(gjson.Parse(payload)))
	assert.Equal(t, "104719.27", row[record.ColMatchPosLon])
	assert.Equal(t, "194483.6", row[record.ColMatchPosLat])
}

func TestFlatten_FlatMatchWithoutAdresWrapper(t *testing.T) {
	payload := `{"adresMatches": [{
		"identificator": {"objectId": "77"},
		"huisnummer": "5"
	}]}`
	row := record.Record{}
	Flatten(row, PickBestMatch(gjson.Parse(payload)))
	assert.Equal(t, "matched", row[record.ColMatchStatus])
	assert.Equal(t, "77", row[record.ColMatchAdresID])
	assert.Equal(t, "5", row[record.ColMatchHuisnr])
}

func TestAdresmatchRun_EnrichesFreshRows(t *testing.T) {
	matcher := &stubMatcher{payloads: []string{matchPayload}}
	rows := []record.Record{freshRow()}

	p := NewAdresmatch(matcher, AdresmatchOptions{MaxRows: -1})
	require.NoError(t, p.Run(context.Background(), rows))

	assert.Equal(t, 1, matcher.calls)
	assert.Equal(t, "matched", rows[0][record.ColMatchStatus])
	assert.Equal(t, "90.0000", rows[0][record.ColMatchScore])
}

func TestAdresmatchRun_MinimalMatchCountsAgainstCap(t *testing.T) {
	matcher := &stubMatcher{payloads: []string{`{"adresMatches": [{"score": 0.9, "adres": {"huisnummer": "1"}}]}`}}
	rows := []record.Record{
		{record.ColStreet: "Main", record.ColHouseNumber: "1", record.ColPostalCode: "1000"},
		{record.ColStreet: "Main", record.ColHouseNumber: "2", record.ColPostalCode: "1000"},
	}

	p := NewAdresmatch(matcher, AdresmatchOptions{MaxRows: 1})
	require.NoError(t, p.Run(context.Background(), rows))

	assert.Equal(t, 1, matcher.calls)
	assert.Equal(t, "matched", rows[0][record.ColMatchStatus])
	assert.Equal(t, "0.9000", rows[0][record.ColMatchScore])
	assert.Equal(t, "", rows[1][record.ColMatchStatus])
}

func TestAdresmatchRun_SkipsRowsWithStatus(t *testing.T) {
	matcher := &stubMatcher{}
	done := freshRow()
	done[record.ColMatchStatus] = "matched"
	rows := []record.Record{done, freshRow()}

	p := NewAdresmatch(matcher, AdresmatchOptions{MaxRows: -1})
	require.NoError(t, p.Run(context.Background(), rows))
	assert.Equal(t, 1, matcher.calls)
}

func TestAdresmatchRun_ForceReprocesses(t *testing.T) {
	matcher := &stubMatcher{}
	done := freshRow()
	done[record.ColMatchStatus] = "error"
	rows := []record.Record{done}

	p := NewAdresmatch(matcher, AdresmatchOptions{Force: true, MaxRows: -1})
	require.NoError(t, p.Run(context.Background(), rows))
	assert.Equal(t, 1, matcher.calls)
}

func TestAdresmatchRun_MissingInput(t *testing.T) {
	matcher := &stubMatcher{}
	rows := []record.Record{{record.ColStreet: "Veldstraat"}}

	p := NewAdresmatch(matcher, AdresmatchOptions{MaxRows: -1})
	require.NoError(t, p.Run(context.Background(), rows))

	assert.Equal(t, 0, matcher.calls)
	assert.Equal(t, "missing_input", rows[0][record.ColMatchStatus])
	assert.Equal(t, "Missing municipality/postcode, street, or house number", rows[0][record.ColMatchError])
}

func TestAdresmatchRun_CallFailureDegradesRow(t *testing.T) {
	matcher := &stubMatcher{err: eris.New("Adresmatch request failed with HTTP 500: boom")}
	rows := []record.Record{freshRow(), freshRow()}

	p := NewAdresmatch(matcher, AdresmatchOptions{MaxRows: -1})
	require.NoError(t, p.Run(context.Background(), rows))

	assert.Equal(t, 2, matcher.calls, "a failed row must not stop the batch")
	for _, row := range rows {
		assert.Equal(t, "error", row[record.ColMatchStatus])
		assert.Equal(t, "Adresmatch request failed with HTTP 500: boom", row[record.ColMatchError])
	}
}

func TestAdresmatchRun_MaxRowsCountsDispatchedOnly(t *testing.T) {
	matcher := &stubMatcher{}
	skipped := freshRow()
	skipped[record.ColMatchStatus] = "matched"
	rows := []record.Record{skipped, freshRow(), freshRow()}

	p := NewAdresmatch(matcher, AdresmatchOptions{MaxRows: 1})
	require.NoError(t, p.Run(context.Background(), rows))

	assert.Equal(t, 1, matcher.calls)
	assert.Equal(t, "", rows[2][record.ColMatchStatus], "row past the cap stays untouched")
}

func TestAdresmatchRun_MaxRowsZeroDispatchesNothing(t *testing.T) {
	matcher := &stubMatcher{}
	rows := []record.Record{freshRow()}

	p := NewAdresmatch(matcher, AdresmatchOptions{MaxRows: 0})
	require.NoError(t, p.Run(context.Background(), rows))
	assert.Equal(t, 0, matcher.calls)
}

func TestAdresmatchRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	matcher := &stubMatcher{}
	rows := []record.Record{freshRow()}

	p := NewAdresmatch(matcher, AdresmatchOptions{MaxRows: -1})
	err := p.Run(ctx, rows)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, matcher.calls)
}
