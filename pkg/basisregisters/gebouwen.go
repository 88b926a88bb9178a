package basisregisters

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/rwidev/MatchAddressFlanders/internal/resilience"
)

// gebouwenregister 4xx responses quote at most this much of the body.
const gebouwenSnippetLen = 1000

// getJSON fetches a registry URL under the client retry policy and parses the
// payload.
func (c *Client) getJSON(ctx context.Context, rawURL string, params url.Values) (gjson.Result, error) {
	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.getOnce(ctx, rawURL, params, gebouwenSnippetLen)
	})
	if err != nil {
		return gjson.Result{}, err
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, eris.New("Invalid JSON returned by gebouwenregister API")
	}
	return gjson.ParseBytes(body), nil
}

// ListBuildingUnits fetches candidate building units for an address object id.
// A payload without a unit list yields an empty slice, not an error.
func (c *Client) ListBuildingUnits(ctx context.Context, adresID string, limit int) ([]gjson.Result, error) {
	if limit < 1 {
		limit = 1
	}
	params := url.Values{
		"adresobjectId": {adresID},
		"limit":         {strconv.Itoa(limit)},
	}

	payload, err := c.getJSON(ctx, c.gebouweenhedenURL, params)
	if err != nil {
		return nil, err
	}

	units := payload.Get("gebouweenheden")
	if !units.IsArray() {
		return nil, nil
	}
	return units.Array(), nil
}

// UnitDetailURL resolves the detail URL for a candidate unit: either the
// unit's own detail link, or the units endpoint base composed with its object
// id.
func (c *Client) UnitDetailURL(unit gjson.Result) (string, error) {
	if detail := unit.Get("detail"); detail.Type == gjson.String && detail.Str != "" {
		return detail.Str, nil
	}
	if objectID := FirstString(unit, "identificator.objectId", "identificator.objectid"); objectID != "" {
		return strings.TrimRight(c.gebouweenhedenURL, "/") + "/" + objectID, nil
	}
	return "", eris.New("Gebouweenheid detail URL missing")
}

// FetchUnitDetail fetches the detail document for a candidate unit.
func (c *Client) FetchUnitDetail(ctx context.Context, unit gjson.Result) (gjson.Result, error) {
	detailURL, err := c.UnitDetailURL(unit)
	if err != nil {
		return gjson.Result{}, err
	}
	return c.getJSON(ctx, detailURL, nil)
}

// FetchBuilding fetches a building detail document by object id.
func (c *Client) FetchBuilding(ctx context.Context, gebouwID string) (gjson.Result, error) {
	if gebouwID == "" {
		return gjson.Result{}, eris.New("Gebouw ID ontbreekt")
	}
	return c.getJSON(ctx, strings.TrimRight(c.gebouwenURL, "/")+"/"+gebouwID, nil)
}
