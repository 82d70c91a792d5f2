package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLookupFailed covers both transport failures and responses the geocoder
// could not resolve to a point.
var ErrLookupFailed = errors.New("geocoder lookup failed")

const cacheTTL = 24 * time.Hour

type Point struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Name string  `json:"name"`
}

type Client struct {
	key        string
	geocodeURL string
	loaderURL  string
	http       *http.Client
	cache      *redis.Client
}

func NewClient(key string, cache *redis.Client) *Client {
	return &Client{
		key:        key,
		geocodeURL: "https://geocode-maps.yandex.ru/1.x/",
		loaderURL:  "https://api-maps.yandex.ru/v3/",
		http:       &http.Client{Timeout: 10 * time.Second},
		cache:      cache,
	}
}

// Geocode resolves a free-text location description to coordinates. Results
// are cached in redis so repeated route-detail views don't re-hit the API.
func (c *Client) Geocode(ctx context.Context, query string) (Point, error) {
	cacheKey := "geo:" + query
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey).Result(); err == nil {
			var p Point
			if json.Unmarshal([]byte(cached), &p) == nil {
				return p, nil
			}
		}
	}

	params := url.Values{
		"apikey":  {c.key},
		"format":  {"json"},
		"lang":    {"ru_RU"},
		"geocode": {query},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.geocodeURL+"?"+params.Encode(), nil)
	if err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Point{}, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var payload geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	members := payload.Response.GeoObjectCollection.FeatureMember
	if len(members) == 0 {
		return Point{}, fmt.Errorf("%w: no results for %q", ErrLookupFailed, query)
	}
	obj := members[0].GeoObject

	// pos is "lng lat"
	parts := strings.Fields(obj.Point.Pos)
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("%w: malformed point", ErrLookupFailed)
	}
	lng, errLng := strconv.ParseFloat(parts[0], 64)
	lat, errLat := strconv.ParseFloat(parts[1], 64)
	if errLng != nil || errLat != nil {
		return Point{}, fmt.Errorf("%w: malformed point", ErrLookupFailed)
	}

	point := Point{Lat: lat, Lng: lng, Name: obj.Name}
	if c.cache != nil {
		if raw, err := json.Marshal(point); err == nil {
			c.cache.Set(ctx, cacheKey, raw, cacheTTL)
		}
	}
	return point, nil
}

// LoaderJS proxies the maps JS API so the key never reaches the browser.
func (c *Client) LoaderJS(ctx context.Context) (string, error) {
	params := url.Values{
		"apikey": {c.key},
		"lang":   {"ru_RU"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.loaderURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	return strings.ReplaceAll(string(body), c.key, "api_key_hidden"), nil
}

type geocodeResponse struct {
	Response struct {
		GeoObjectCollection struct {
			FeatureMember []struct {
				GeoObject struct {
					Name  string `json:"name"`
					Point struct {
						Pos string `json:"pos"`
					} `json:"Point"`
				} `json:"GeoObject"`
			} `json:"featureMember"`
		} `json:"GeoObjectCollection"`
	} `json:"response"`
}
