package catalog

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// DefaultSourceURL is the upstream catalog endpoint queried when no
// override is configured.
const DefaultSourceURL = "https://api.keeptrack.space/v2/sats"

// DefaultFetchTimeout bounds a single upstream fetch.
const DefaultFetchTimeout = 30 * time.Second

// FetchError indicates the upstream catalog service could not be reached
// or returned a non-success status. Fetch errors abort the whole cycle
// and are retried at the next scheduled tick, never within a cycle.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("catalog fetch from %s failed: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError indicates the upstream payload could not be decoded at all.
// Individual malformed records are skipped and counted instead.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("catalog payload parse failed: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Object is the canonical, metadata-only view of one tracked catalog
// entry. Everything past the client boundary works with this shape;
// loosely-typed upstream JSON never escapes this package.
type Object struct {
	NoradID    int64
	SourceID   int64
	Name       string
	Country    string
	Operator   string
	OrbitClass string
	Mission    string
	Payload    string
	Launched   *time.Time
	Decayed    *time.Time
}

// Elements is one time-stamped orbital state for an object. A zero
// SemiMajorAxis means the elements could not be derived; downstream
// classification treats such snapshots as non-comparable.
type Elements struct {
	Epoch         time.Time
	Line1         string
	Line2         string
	SemiMajorAxis float64
	Eccentricity  float64
	Inclination   float64
	RAAN          float64
	ArgPerigee    float64
	MeanAnomaly   float64
}

// Record pairs an object's metadata with the element set carried by the
// same upstream entry.
type Record struct {
	Object   Object
	Elements Elements
}

// FetchResult is the outcome of one upstream fetch: the normalized
// records, the count of entries skipped for missing required fields,
// and a content hash of the raw response body for lineage auditing.
type FetchResult struct {
	Records     []Record
	Skipped     int
	ContentHash string
}

// Client fetches and normalizes catalog records from the upstream
// tracking service. It holds no persistent state and is restartable.
type Client struct {
	URL            string
	Timeout        time.Duration
	GeoToleranceKm float64
	HTTPClient     *http.Client
}

// NewClient returns a client against the given endpoint with default
// timeout and GEO tolerance. An empty url selects the default source.
func NewClient(url string) *Client {
	if url == "" {
		url = DefaultSourceURL
	}
	return &Client{
		URL:            url,
		Timeout:        DefaultFetchTimeout,
		GeoToleranceKm: DefaultGeoToleranceKm,
		HTTPClient:     &http.Client{},
	}
}

// rawRecord mirrors the upstream JSON shape. Unknown fields are ignored
// and every field is optional; validation happens in normalize.
type rawRecord struct {
	SatID         *int64   `json:"satid"`
	Name          string   `json:"name"`
	Country       string   `json:"country"`
	Operator      string   `json:"operator"`
	Type          string   `json:"type"`
	Payload       string   `json:"payload"`
	LaunchDate    string   `json:"launchDate"`
	DecayDate     string   `json:"decayDate"`
	Line1         string   `json:"line1"`
	Line2         string   `json:"line2"`
	SemiMajorAxis *float64 `json:"semiMajorAxis"`
	Eccentricity  *float64 `json:"eccentricity"`
	Inclination   *float64 `json:"inclination"`
	RAAN          *float64 `json:"raan"`
	ArgOfPerigee  *float64 `json:"argOfPerigee"`
	MeanAnomaly   *float64 `json:"meanAnomaly"`
}

// envelope is the documented upstream response shape. Some deployments
// return a bare array instead; FetchAll accepts both.
type envelope struct {
	Sats []rawRecord `json:"sats"`
}

// FetchAll performs one fetch against the upstream service and returns
// the normalized records. Individual records missing the required field
// set (catalog id plus both element lines) are skipped and counted, not
// fatal; only transport failures and undecodable payloads are errors.
func (c *Client) FetchAll(ctx context.Context) (*FetchResult, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, &FetchError{URL: c.URL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: c.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: c.URL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: c.URL, Err: err}
	}

	raws, err := decodePayload(body)
	if err != nil {
		return nil, err
	}

	result := &FetchResult{
		ContentHash: fmt.Sprintf("%x", sha256.Sum256(body)),
	}
	for _, raw := range raws {
		rec, err := c.normalize(raw)
		if err != nil {
			result.Skipped++
			log.Printf("skipping catalog record: %v", err)
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

// decodePayload accepts either the {"sats":[...]} envelope or a bare
// JSON array of records.
func decodePayload(body []byte) ([]rawRecord, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raws []rawRecord
		if err := json.Unmarshal(body, &raws); err != nil {
			return nil, &ParseError{Err: err}
		}
		return raws, nil
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ParseError{Err: err}
	}
	return env.Sats, nil
}

// normalize converts one raw upstream entry into the canonical record,
// rejecting entries that lack the minimum required field set.
func (c *Client) normalize(raw rawRecord) (Record, error) {
	if raw.SatID == nil {
		return Record{}, fmt.Errorf("record missing catalog id (name %q)", raw.Name)
	}
	if raw.Line1 == "" || raw.Line2 == "" {
		return Record{}, fmt.Errorf("record %d missing element lines", *raw.SatID)
	}

	epoch, err := ParseEpoch(raw.Line1)
	if err != nil {
		return Record{}, fmt.Errorf("record %d: %v", *raw.SatID, err)
	}

	el := Elements{
		Epoch: epoch,
		Line1: raw.Line1,
		Line2: raw.Line2,
	}

	// Prefer the elements the service pre-derived; recover anything
	// missing from line 2 of the element set itself.
	line2, line2Err := parseLine2(raw.Line2)

	el.SemiMajorAxis = floatOr(raw.SemiMajorAxis, 0)
	el.Eccentricity = floatOr(raw.Eccentricity, 0)
	el.Inclination = floatOr(raw.Inclination, 0)
	el.RAAN = floatOr(raw.RAAN, 0)
	el.ArgPerigee = floatOr(raw.ArgOfPerigee, 0)
	el.MeanAnomaly = floatOr(raw.MeanAnomaly, 0)

	if line2Err == nil {
		if raw.SemiMajorAxis == nil {
			el.SemiMajorAxis = semiMajorAxisFromMeanMotion(line2.MeanMotion)
		}
		if raw.Eccentricity == nil {
			el.Eccentricity = line2.Eccentricity
		}
		if raw.Inclination == nil {
			el.Inclination = line2.Inclination
		}
		if raw.RAAN == nil {
			el.RAAN = line2.RAAN
		}
		if raw.ArgOfPerigee == nil {
			el.ArgPerigee = line2.ArgPerigee
		}
		if raw.MeanAnomaly == nil {
			el.MeanAnomaly = line2.MeanAnomaly
		}
	}

	geoTol := c.GeoToleranceKm
	if geoTol <= 0 {
		geoTol = DefaultGeoToleranceKm
	}

	obj := Object{
		NoradID:    *raw.SatID,
		SourceID:   *raw.SatID,
		Name:       raw.Name,
		Country:    raw.Country,
		Operator:   raw.Operator,
		OrbitClass: ClassifyOrbit(el.SemiMajorAxis, geoTol),
		Mission:    raw.Type,
		Payload:    raw.Payload,
		Launched:   parseDate(raw.LaunchDate),
		Decayed:    parseDate(raw.DecayDate),
	}

	return Record{Object: obj, Elements: el}, nil
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// parseDate accepts RFC 3339 timestamps or bare dates; anything else
// maps to nil rather than failing the record.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
