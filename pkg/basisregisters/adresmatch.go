package basisregisters

import (
	"context"
	"errors"
	"net/url"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/rwidev/MatchAddressFlanders/internal/resilience"
)

// adresmatch 4xx responses quote at most this much of the body.
const adresmatchSnippetLen = 200

// AddressQuery holds the query parameters for one adresmatch call. Street and
// HouseNumber are required; the rest are optional refinements.
type AddressQuery struct {
	Municipality string
	Street       string
	HouseNumber  string
	BoxNumber    string
	PostalCode   string
}

// Values renders the query as adresmatch URL parameters.
func (q AddressQuery) Values() url.Values {
	params := url.Values{}
	params.Set("straatnaam", q.Street)
	params.Set("huisnummer", q.HouseNumber)
	if q.Municipality != "" {
		params.Set("gemeentenaam", q.Municipality)
	}
	if q.BoxNumber != "" {
		params.Set("busnummer", q.BoxNumber)
	}
	if q.PostalCode != "" {
		params.Set("postcode", q.PostalCode)
	}
	return params
}

// MatchAddress calls the adresmatch endpoint and returns the parsed payload.
// The call is a single attempt: per-row failures are downgraded by the
// pipeline, so no retry policy applies here.
func (c *Client) MatchAddress(ctx context.Context, q AddressQuery) (gjson.Result, error) {
	body, err := c.getOnce(ctx, c.adresmatchURL, q.Values(), adresmatchSnippetLen)
	if err != nil {
		var he *resilience.HTTPError
		if errors.As(err, &he) {
			return gjson.Result{}, eris.Errorf("Adresmatch request failed with HTTP %d: %s", he.StatusCode, he.Snippet)
		}
		return gjson.Result{}, err
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, eris.New("Invalid JSON response from adresmatch API")
	}
	return gjson.ParseBytes(body), nil
}
