package geo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"envgate-server/internal/apperr"
	"envgate-server/internal/metrics"
	"envgate-server/internal/modules/gateway/types"
	"envgate-server/internal/modules/geo/cache"
)

const UnableToFetch = "Unable to fetch IP information"

type IPLookup interface {
	Lookup(ctx context.Context, token string, ip string) (IPDetails, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, query string) (Coordinates, bool, error)
}

// IPEnricher resolves a client IP to a LocationInfo: provider details first,
// then a geocoder pass for coordinates, falling back to the provider's "lat,lon".
type IPEnricher struct {
	token    string
	ipinfo   IPLookup
	geocoder Geocoder
	cache    cache.Cache
	ttl      time.Duration
	logger   *slog.Logger
}

func NewIPEnricher(token string, ipinfo IPLookup, geocoder Geocoder, c cache.Cache, ttl time.Duration, logger *slog.Logger) *IPEnricher {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IPEnricher{
		token:    token,
		ipinfo:   ipinfo,
		geocoder: geocoder,
		cache:    c,
		ttl:      ttl,
		logger:   logger,
	}
}

// Enrich never fails: any error is logged and reported as a LocationInfo
// carrying only the generic error message.
func (e *IPEnricher) Enrich(ctx context.Context, ip string) *types.LocationInfo {
	loc, err := e.Locate(ctx, ip)
	if err != nil {
		kind := apperr.KindOf(err)
		metrics.Enrichments.WithLabelValues(kind.String()).Inc()
		e.logger.Error("error fetching IP info", "ip", ip, "kind", kind.String(), "error", err)
		return &types.LocationInfo{Error: UnableToFetch}
	}
	return &loc
}

func (e *IPEnricher) Locate(ctx context.Context, ip string) (types.LocationInfo, error) {
	if e.token == "" {
		return types.LocationInfo{}, apperr.Config("IPINFO_ACCESS_TOKEN environment variable not set")
	}

	if loc, ok, err := e.cache.Get(ctx, ip); err != nil {
		e.logger.Warn("location cache get failed", "ip", ip, "error", err)
	} else if ok {
		metrics.Enrichments.WithLabelValues("cached").Inc()
		return loc, nil
	}

	details, err := e.ipinfo.Lookup(ctx, e.token, ip)
	if err != nil {
		return types.LocationInfo{}, err
	}

	query := fmt.Sprintf("%s, %s, %s", details.City, details.Region, details.Country)
	coords, found, err := e.geocoder.Geocode(ctx, query)
	if err != nil {
		return types.LocationInfo{}, err
	}
	if !found {
		coords, err = ParseLoc(details.Loc)
		if err != nil {
			return types.LocationInfo{}, err
		}
	}

	loc := types.LocationInfo{
		Country:   details.Country,
		Region:    details.Region,
		City:      details.City,
		Postal:    details.Postal,
		Latitude:  &coords.Latitude,
		Longitude: &coords.Longitude,
		Timezone:  details.Timezone,
		ISP:       details.Org,
		ASN:       ASNFromOrg(details.Org),
	}
	metrics.Enrichments.WithLabelValues("ok").Inc()

	if err := e.cache.Set(ctx, ip, loc, e.ttl); err != nil {
		e.logger.Warn("location cache set failed", "ip", ip, "error", err)
	}
	return loc, nil
}

// ParseLoc parses ipinfo's "lat,lon" string.
func ParseLoc(s string) (Coordinates, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return Coordinates{}, apperr.Upstream("parse loc", fmt.Errorf("malformed loc %q", s))
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Coordinates{}, apperr.Upstream("parse loc latitude", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Coordinates{}, apperr.Upstream("parse loc longitude", err)
	}
	return Coordinates{Latitude: lat, Longitude: lon}, nil
}

// ASNFromOrg takes the first token of an organisation string such as
// "AS15169 Google LLC". It does not verify the token is an AS number.
func ASNFromOrg(org string) string {
	fields := strings.Fields(org)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
