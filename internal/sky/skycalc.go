package sky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/astrogo/fitsio"
	"gonum.org/v1/gonum/interp"
)

const (
	// DefaultSkyCalcURL is the ESO SkyCalc model endpoint.
	DefaultSkyCalcURL = "https://etimecalret-002.eso.org/observing/etc/api/skycalc"

	// skyTablePath is where SkyCalc publishes the spectrum of a run,
	// relative to the server root.
	skyTablePath = "/observing/etc/tmp/%s/skytable.fits"

	defaultTimeout = 30 * time.Second

	// maxBodyBytes bounds each response held in memory.
	maxBodyBytes = 50 << 20

	// wavelengthStep is the requested spectral sampling in nm.
	wavelengthStep = 0.5
)

// StatusError is returned when SkyCalc answers with a non-200 status.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.Code, e.URL)
}

// Unwrap makes a StatusError match ErrUnavailable.
func (e *StatusError) Unwrap() error { return ErrUnavailable }

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// ServiceError is returned when SkyCalc accepts the request but reports
// that the model run failed.
type ServiceError struct {
	Status  string
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("skycalc run status %q", e.Status)
	}
	return fmt.Sprintf("skycalc run status %q: %s", e.Status, e.Message)
}

// SkyCalc queries the ESO SkyCalc sky model for a background spectrum and
// integrates it through the filter. A lookup is two requests: the model
// parameters are POSTed to the API, which answers with the temporary
// directory holding skytable.fits, and the table is then fetched and read.
type SkyCalc struct {
	url        string
	httpClient *http.Client
	timeout    time.Duration
	maxBody    int64
	logger     *slog.Logger
}

// SkyCalcOption configures a SkyCalc client.
type SkyCalcOption func(*SkyCalc)

// WithHTTPClient replaces the HTTP client. The client is used as given;
// WithTimeout does not modify it.
func WithHTTPClient(c *http.Client) SkyCalcOption {
	return func(s *SkyCalc) {
		s.httpClient = c
	}
}

// WithTimeout sets the per-request timeout of the client built by
// NewSkyCalc. It has no effect together with WithHTTPClient.
func WithTimeout(d time.Duration) SkyCalcOption {
	return func(s *SkyCalc) {
		s.timeout = d
	}
}

// WithMaxBodyBytes overrides the response size limit.
func WithMaxBodyBytes(n int64) SkyCalcOption {
	return func(s *SkyCalc) {
		s.maxBody = n
	}
}

// NewSkyCalc creates a SkyCalc client. An empty url selects
// DefaultSkyCalcURL and a nil logger uses slog.Default.
func NewSkyCalc(url string, logger *slog.Logger, opts ...SkyCalcOption) *SkyCalc {
	if url == "" {
		url = DefaultSkyCalcURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &SkyCalc{
		url:     url,
		timeout: defaultTimeout,
		maxBody: maxBodyBytes,
		logger:  logger.With("component", "skycalc"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: s.timeout}
	}
	return s
}

// Name returns "skycalc".
func (s *SkyCalc) Name() string { return "skycalc" }

// URL returns the configured endpoint.
func (s *SkyCalc) URL() string { return s.url }

type skyCalcRequest struct {
	Observatory string  `json:"observatory"`
	Airmass     float64 `json:"airmass"`
	PWVMode     string  `json:"pwv_mode,omitempty"`
	PWV         float64 `json:"pwv,omitempty"`
	WMin        float64 `json:"wmin"`
	WMax        float64 `json:"wmax"`
	WDelta      float64 `json:"wdelta"`
	WGridMode   string  `json:"wgrid_mode"`
	*Moon
}

// skyCalcEnvelope is the API answer to a model run.
type skyCalcEnvelope struct {
	Status string `json:"status"`
	TmpDir string `json:"tmpdir"`
	Error  string `json:"error"`
}

// skyTableRow holds the skytable.fits columns used here. The table carries
// more columns (transmission, flux uncertainties) which are ignored.
type skyTableRow struct {
	Lam  float64 `fits:"lam"`  // nm
	Flux float64 `fits:"flux"` // ph s^-1 m^-2 um^-1 arcsec^-2
}

type skySpectrum struct {
	Lam  []float64
	Flux []float64
}

// Background requests the sky emission spectrum over the filter's
// wavelength range and integrates it with the throughput.
func (s *SkyCalc) Background(ctx context.Context, band Band, q Query) (Background, error) {
	if err := q.Validate(); err != nil {
		return Background{}, err
	}
	lo, hi := band.Limits(LimitThreshold)
	if hi <= lo {
		return Background{}, fmt.Errorf("%w: filter %s has no throughput above %.1f", ErrNoData, band.Name(), LimitThreshold)
	}

	params := skyCalcRequest{
		Observatory: "paranal",
		Airmass:     q.Airmass,
		WMin:        lo * 1000,
		WMax:        hi * 1000,
		WDelta:      wavelengthStep,
		WGridMode:   "fixed_wavelength_step",
		Moon:        q.Moon,
	}
	if q.PWV > 0 {
		params.PWVMode = "pwv"
		params.PWV = q.PWV
	}

	tableURL, err := s.run(ctx, params)
	if err != nil {
		return Background{}, err
	}
	spectrum, err := s.fetchTable(ctx, tableURL)
	if err != nil {
		return Background{}, err
	}

	lam := make([]float64, len(spectrum.Lam))
	for i, l := range spectrum.Lam {
		lam[i] = l / 1000
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(lam, spectrum.Flux); err != nil {
		return Background{}, fmt.Errorf("%w: interpolating sky spectrum: %w", ErrInvalidResponse, err)
	}

	rate := band.Integrate(pl.Predict)
	s.logger.Debug("sky background integrated",
		"filter", band.Name(),
		"wmin_nm", params.WMin,
		"wmax_nm", params.WMax,
		"points", len(lam),
		"photon_rate", rate,
	)
	return Background{PhotonRate: rate, Source: s.Name()}, nil
}

// run submits the model parameters and returns the URL of the resulting
// sky table.
func (s *SkyCalc) run(ctx context.Context, params skyCalcRequest) (string, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encoding skycalc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := s.do(req)
	if err != nil {
		return "", err
	}

	var env skyCalcEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("%w: decoding skycalc answer: %w", ErrInvalidResponse, err)
	}
	if env.Status != "success" {
		return "", &ServiceError{Status: env.Status, Message: env.Error}
	}
	tableURL, err := s.tableURL(env.TmpDir)
	if err != nil {
		return "", err
	}
	s.logger.Debug("skycalc run finished", "tmpdir", env.TmpDir)
	return tableURL, nil
}

// tableURL builds the skytable.fits location for tmpdir on the API host.
func (s *SkyCalc) tableURL(tmpdir string) (string, error) {
	if tmpdir == "" || strings.ContainsAny(tmpdir, "/\\?#") || strings.Contains(tmpdir, "..") {
		return "", fmt.Errorf("%w: unusable tmpdir %q", ErrInvalidResponse, tmpdir)
	}
	base, err := url.Parse(s.url)
	if err != nil {
		return "", fmt.Errorf("parsing skycalc url: %w", err)
	}
	u := url.URL{Scheme: base.Scheme, Host: base.Host, Path: fmt.Sprintf(skyTablePath, tmpdir)}
	return u.String(), nil
}

func (s *SkyCalc) fetchTable(ctx context.Context, tableURL string) (*skySpectrum, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tableURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	body, err := s.do(req)
	if err != nil {
		return nil, err
	}

	spectrum, err := decodeSkyTable(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if err := spectrum.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	s.logger.Debug("sky spectrum fetched", "bytes", len(body), "points", len(spectrum.Lam))
	return spectrum, nil
}

// do sends req and returns the size-limited body of a 200 response.
func (s *SkyCalc) do(req *http.Request) ([]byte, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.String()}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %w", ErrUnavailable, err)
	}
	if int64(len(body)) > s.maxBody {
		return nil, fmt.Errorf("%w: response exceeds %d byte limit", ErrInvalidResponse, s.maxBody)
	}
	return body, nil
}

// decodeSkyTable reads the lam and flux columns of the first binary table
// in a FITS file.
func decodeSkyTable(data []byte) (*skySpectrum, error) {
	f, err := fitsio.Open(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening sky table: %w", err)
	}
	defer f.Close()

	var table *fitsio.Table
	for _, hdu := range f.HDUs() {
		if t, ok := hdu.(*fitsio.Table); ok {
			table = t
			break
		}
	}
	if table == nil {
		return nil, errors.New("sky table has no table extension")
	}
	for _, col := range []string{"lam", "flux"} {
		if table.Index(col) < 0 {
			return nil, fmt.Errorf("sky table has no %q column", col)
		}
	}

	rows, err := table.Read(0, table.NumRows())
	if err != nil {
		return nil, fmt.Errorf("reading sky table: %w", err)
	}
	defer rows.Close()

	spectrum := &skySpectrum{}
	for rows.Next() {
		var row skyTableRow
		if err := rows.Scan(&row); err != nil {
			return nil, fmt.Errorf("scanning sky table row: %w", err)
		}
		spectrum.Lam = append(spectrum.Lam, row.Lam)
		spectrum.Flux = append(spectrum.Flux, row.Flux)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading sky table: %w", err)
	}
	return spectrum, nil
}

func (r *skySpectrum) validate() error {
	if len(r.Lam) < 2 {
		return fmt.Errorf("sky spectrum has %d samples, need at least 2", len(r.Lam))
	}
	if len(r.Lam) != len(r.Flux) {
		return fmt.Errorf("sky spectrum has %d wavelengths but %d fluxes", len(r.Lam), len(r.Flux))
	}
	for i := range r.Lam {
		if math.IsNaN(r.Lam[i]) || math.IsInf(r.Lam[i], 0) || math.IsNaN(r.Flux[i]) || math.IsInf(r.Flux[i], 0) {
			return fmt.Errorf("sky spectrum sample %d is not finite", i)
		}
		if r.Flux[i] < 0 {
			return fmt.Errorf("sky spectrum sample %d has negative flux %g", i, r.Flux[i])
		}
		if i > 0 && r.Lam[i] <= r.Lam[i-1] {
			return fmt.Errorf("sky spectrum wavelengths not increasing at sample %d", i)
		}
	}
	return nil
}
