package geo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"envgate-server/internal/apperr"
)

// IPDetails is the subset of the ipinfo.io response the enricher uses.
type IPDetails struct {
	IP       string `json:"ip"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Loc      string `json:"loc"`
	Org      string `json:"org"`
	Postal   string `json:"postal"`
	Timezone string `json:"timezone"`
	Bogon    bool   `json:"bogon"`
}

type IPInfoClient struct {
	httpClient *resty.Client
}

func NewIPInfoClient(baseURL string, timeout time.Duration) *IPInfoClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return &IPInfoClient{httpClient: client}
}

// Lookup fetches details for ip using token as bearer credential.
func (c *IPInfoClient) Lookup(ctx context.Context, token string, ip string) (IPDetails, error) {
	var details IPDetails
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&details).
		Get("/" + url.PathEscape(ip) + "/json")
	if err != nil {
		return IPDetails{}, apperr.Upstream("ipinfo request", err)
	}
	if resp.IsError() {
		return IPDetails{}, apperr.Upstream("ipinfo request", fmt.Errorf("status %d", resp.StatusCode()))
	}
	if details.Bogon {
		return IPDetails{}, apperr.Upstream("ipinfo request", fmt.Errorf("%s is a bogon address", ip))
	}
	return details, nil
}
