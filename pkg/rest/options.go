package rest

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/types"
)

// EnvAPIURL is read by the default FetchURL.
const EnvAPIURL = "API_URL"

const defaultTimeout = 30 * time.Second

// Options customizes how a Client builds and handles requests. Every field
// is optional.
type Options struct {
	// FetchURL returns the server base URL. Defaults to $API_URL.
	FetchURL func() string

	// ApplyHeaders adjusts request headers for a verb, e.g. to add an
	// authorization token. Content-Type is already set to JSON.
	ApplyHeaders func(verb types.Verb, h http.Header) http.Header

	// PreProcessResponse runs on every response before its status is
	// checked and its body decoded.
	PreProcessResponse func(resp *http.Response) (*http.Response, error)

	// CollectionAPIPath maps a kind name to its collection path. Defaults to
	// the kind's BasePath.
	CollectionAPIPath func(kindName string) string

	// APIPath overrides the path for a verb. The record is nil for SEARCH,
	// which receives its query instead. Returning "" selects the default.
	APIPath func(verb types.Verb, r *record.Record, query string) string

	// HTTPClient performs requests. Defaults to a client with Timeout.
	HTTPClient *http.Client

	// Timeout bounds each request when HTTPClient is nil.
	Timeout time.Duration

	// Logger defaults to a no-op logger.
	Logger *zap.SugaredLogger

	// Registerer receives the client's metrics. Nil leaves them
	// unregistered.
	Registerer prometheus.Registerer
}

func (o Options) withDefaults() Options {
	if o.FetchURL == nil {
		o.FetchURL = func() string { return os.Getenv(EnvAPIURL) }
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return o
}
