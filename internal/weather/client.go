package weather

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

var (
	ErrUpstream      = errors.New("weather upstream error")
	ErrNotConfigured = errors.New("weather api key not configured")
)

type Condition string

const (
	Clear  Condition = "clear"
	Cloudy Condition = "cloudy"
	Rain   Condition = "rain"
	Snow   Condition = "snow"
	Storm  Condition = "storm"
	Fog    Condition = "fog"
	Other  Condition = "other"
)

type Current struct {
	City        string    `json:"city"`
	TempC       int       `json:"temp_c"`
	Description string    `json:"description"`
	Humidity    int       `json:"humidity"`
	Condition   Condition `json:"condition"`
}

type upstreamResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, timeout: timeout}
}

// Current fetches current conditions at the coordinates in metric units.
func (c *Client) Current(lat, lng float64) (Current, error) {
	if c.apiKey == "" {
		return Current{}, ErrNotConfigured
	}
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)

	agent := fiber.Get(c.baseURL + "?" + q.Encode()).Timeout(c.timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return Current{}, fmt.Errorf("%w: %v", ErrUpstream, errs[0])
	}
	if code != fiber.StatusOK {
		return Current{}, fmt.Errorf("%w: status %d", ErrUpstream, code)
	}

	var resp upstreamResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Current{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	out := Current{
		City:     resp.Name,
		TempC:    int(math.Trunc(resp.Main.Temp)),
		Humidity: int(resp.Main.Humidity),
	}
	if len(resp.Weather) > 0 {
		out.Description = resp.Weather[0].Description
	}
	out.Condition = Simplify(out.Description)
	return out, nil
}

var conditionKeywords = []struct {
	cond  Condition
	words []string
}{
	{Clear, []string{"clear", "sun"}},
	{Cloudy, []string{"cloud", "overcast"}},
	{Rain, []string{"rain", "drizzle", "shower"}},
	{Snow, []string{"snow", "sleet"}},
	{Storm, []string{"storm", "thunder"}},
	{Fog, []string{"fog", "mist", "haze"}},
}

// Simplify buckets a free-text description. The first matching bucket wins.
func Simplify(description string) Condition {
	lower := strings.ToLower(description)
	for _, kw := range conditionKeywords {
		for _, w := range kw.words {
			if strings.Contains(lower, w) {
				return kw.cond
			}
		}
	}
	return Other
}
