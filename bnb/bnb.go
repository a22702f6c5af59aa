// Package bnb downloads raw exchange-rate observations from the Bulgarian
// National Bank statistics endpoint, one month per request.
package bnb

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/vstoykovbg/divitax/date"
	"github.com/vstoykovbg/divitax/rates"
)

// DefaultBaseURL is the bureau's CSV download endpoint.
const DefaultBaseURL = "https://www.bnb.bg/Statistics/StExternalSector/StExchangeRates/StERForeignCurrencies/index.htm"

// Client fetches rate segments. The zero value is not usable; use New.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	// sleep is replaceable in tests.
	sleep func(time.Duration)
}

// New returns a client against the default endpoint.
func New() *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
		sleep:   time.Sleep,
	}
}

// FetchYear downloads every observation needed to build the given year's
// table: December of the prior year first, then each month of the year. The
// December run-in allows the year table to forward-fill across the year
// boundary.
func (c *Client) FetchYear(currency string, year int) ([]rates.Observation, error) {
	periods := []date.Range{monthRange(year-1, 12)}
	for m := 1; m <= 12; m++ {
		periods = append(periods, monthRange(year, m))
	}

	var obs []rates.Observation
	for i, period := range periods {
		if i > 0 {
			// Polite randomized delay between requests; this endpoint is not
			// built for bursts.
			c.sleep(time.Duration(1000+rand.Intn(2000)) * time.Millisecond)
		}
		segment, err := c.fetchSegment(currency, period)
		if err != nil {
			return nil, err
		}
		obs = append(obs, segment...)
	}
	return obs, nil
}

func (c *Client) fetchSegment(currency string, period date.Range) ([]rates.Observation, error) {
	url := fmt.Sprintf("%s?downloadOper=true&group1=second"+
		"&periodStartDays=%02d&periodStartMonths=%02d&periodStartYear=%d"+
		"&periodEndDays=%02d&periodEndMonths=%02d&periodEndYear=%d"+
		"&valutes=%s&search=true&showChart=false&showChartButton=true&type=CSV",
		c.BaseURL,
		period.From.Day(), period.From.Month(), period.From.Year(),
		period.To.Day(), period.To.Month(), period.To.Year(),
		currency)
	slog.Info("downloading rate segment", "currency", currency,
		"from", period.From, "to", period.To)

	resp, err := c.HTTP.Get(url)
	if err != nil {
		return nil, fmt.Errorf("downloading rates for %s: %w", currency, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading rates for %s: status %s", currency, resp.Status)
	}

	return rates.ParseSegment(resp.Body, currency, period)
}

// monthRange returns the first through last day of a month.
func monthRange(year, month int) date.Range {
	first := date.New(year, time.Month(month), 1)
	last := date.New(year, time.Month(month)+1, 0) // day 0 normalizes to the last day
	return date.Range{From: first, To: last}
}
