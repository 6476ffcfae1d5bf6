// Package auspost implements the shipping rate gateway against the Australia
// Post Postage Assessment Calculator API.
package auspost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/softwool/scarf-orders/internal/domain/shipping"
)

const (
	defaultBaseURL      = "https://digitalapi.auspost.com.au"
	defaultFromPostcode = "2077"
	defaultTimeout      = 10 * time.Second

	servicePath = "/postage/parcel/domestic/service.json"

	// Fixed parcel dimensions (cm) for a stack of scarves; weight scales
	// linearly with quantity.
	parcelLength = "22"
	parcelWidth  = "16"
	parcelHeight = "7.7"
	unitWeightKG = 0.1
)

// Config holds the client configuration. APIKey is required; the rest
// defaults sensibly.
type Config struct {
	APIKey       string
	BaseURL      string
	FromPostcode string
	Timeout      time.Duration
}

// Client calls the domestic parcel service endpoint. It is safe for
// concurrent use.
type Client struct {
	http         *http.Client
	baseURL      string
	apiKey       string
	fromPostcode string
}

var _ shipping.RateGateway = (*Client)(nil)

// NewClient creates an AusPost rate client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.FromPostcode == "" {
		cfg.FromPostcode = defaultFromPostcode
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		http:         &http.Client{Timeout: cfg.Timeout},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		fromPostcode: cfg.FromPostcode,
	}
}

// serviceResponse mirrors the PAC service.json payload.
type serviceResponse struct {
	Services struct {
		Service []serviceEntry `json:"service"`
	} `json:"services"`
}

type serviceEntry struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// Quote returns the delivery services available for posting quantity scarves
// to the given postcode. Every call hits the API; rates are never cached.
func (c *Client) Quote(ctx context.Context, quantity, postcode int) ([]shipping.DeliveryOption, error) {
	q := url.Values{}
	q.Set("from_postcode", c.fromPostcode)
	q.Set("to_postcode", strconv.Itoa(postcode))
	q.Set("length", parcelLength)
	q.Set("width", parcelWidth)
	q.Set("height", parcelHeight)
	q.Set("weight", strconv.FormatFloat(float64(quantity)*unitWeightKG, 'f', 1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+servicePath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("auth-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call postage service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("postage service returned status %d", resp.StatusCode)
	}

	var body serviceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decode postage response")
	}

	options := make([]shipping.DeliveryOption, 0, len(body.Services.Service))
	for _, svc := range body.Services.Service {
		price := decimal.Zero
		if svc.Price != "" {
			price, err = decimal.NewFromString(svc.Price)
			if err != nil {
				return nil, errors.Wrapf(err, "parse price for service %s", svc.Code)
			}
		}
		options = append(options, shipping.DeliveryOption{
			Name:  svc.Name,
			Code:  svc.Code,
			Price: price,
		})
	}
	return options, nil
}
