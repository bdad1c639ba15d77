package geo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/crimson-sun/honeyfeed/internal/httpclient"
	"github.com/crimson-sun/honeyfeed/internal/model"
)

const ipapiFields = "status,message,country,city,org,isp"

// IPAPI resolves addresses with an ip-api.com compatible JSON endpoint:
// GET {endpoint}{addr}?fields=...
type IPAPI struct {
	client *httpclient.Client
}

type ipapiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Country string `json:"country"`
	City    string `json:"city"`
	Org     string `json:"org"`
	ISP     string `json:"isp"`
}

// NewIPAPI creates a resolver for endpoint, e.g. "http://ip-api.com/json/".
func NewIPAPI(endpoint string, timeout time.Duration) *IPAPI {
	return &IPAPI{
		client: httpclient.New(endpoint,
			httpclient.WithTimeout(timeout),
			httpclient.WithHeader("User-Agent", "honeyfeed"),
		),
	}
}

// Resolve performs a single lookup without retries.
func (r *IPAPI) Resolve(ctx context.Context, addr string) (model.GeoRecord, error) {
	var resp ipapiResponse
	q := url.Values{"fields": {ipapiFields}}
	if err := r.client.GetJSON(ctx, url.PathEscape(addr), q, &resp); err != nil {
		return model.GeoRecord{}, fmt.Errorf("geo: lookup %s: %w", addr, err)
	}
	if resp.Status != "success" {
		return model.GeoRecord{}, fmt.Errorf("geo: lookup %s: status %q: %s", addr, resp.Status, resp.Message)
	}

	org := resp.Org
	if org == "" {
		org = resp.ISP
	}
	return model.GeoRecord{
		City:    orUnknown(resp.City),
		Country: orUnknown(resp.Country),
		Org:     orUnknown(org),
	}, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
