package geo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"envgate-server/internal/apperr"
)

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

type NominatimClient struct {
	httpClient *resty.Client
}

func NewNominatimClient(baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)
	return &NominatimClient{httpClient: client}
}

// Geocode resolves a free-text query to its best match. ok is false when
// the geocoder has no result.
func (c *NominatimClient) Geocode(ctx context.Context, query string) (Coordinates, bool, error) {
	var places []nominatimPlace
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      query,
			"format": "jsonv2",
			"limit":  "1",
		}).
		SetResult(&places).
		Get("/search")
	if err != nil {
		return Coordinates{}, false, apperr.Upstream("geocode request", err)
	}
	if resp.IsError() {
		return Coordinates{}, false, apperr.Upstream("geocode request", fmt.Errorf("status %d", resp.StatusCode()))
	}
	if len(places) == 0 {
		return Coordinates{}, false, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return Coordinates{}, false, apperr.Upstream("geocode latitude", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return Coordinates{}, false, apperr.Upstream("geocode longitude", err)
	}
	return Coordinates{Latitude: lat, Longitude: lon}, true, nil
}
