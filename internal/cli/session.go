package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/rim/internal/logging"
	"github.com/mesh-intelligence/rim/internal/snapshot"
	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/rest"
	"github.com/mesh-intelligence/rim/pkg/service"
	"github.com/mesh-intelligence/rim/pkg/types"
)

// sessionKind identifies the record carried by cross-cutting verbs.
var sessionKind = &record.Kind{Name: "Session", Identity: record.NoIdentity{}}

// session is one CLI invocation's view of the configured collections: a
// service per collection on a shared hub, restored from the snapshot store
// and saved back when the command finishes.
type session struct {
	settings settings
	logger   *zap.Logger
	log      *zap.SugaredLogger
	hub      *service.Hub
	services map[string]*service.Service
	store    *snapshot.Store
	client   *rest.Client
}

// openSession loads configuration, attaches the snapshot store, and restores
// every collection from it. The caller must call close.
func openSession(ctx context.Context, flags *rootFlags) (*session, error) {
	st, err := loadSettings(flags)
	if err != nil {
		return nil, err
	}
	logger := logging.New(st.LogLevel, st.LogFormat)
	s := &session{
		settings: st,
		logger:   logger,
		log:      logging.For(logger, "rimctl"),
		services: make(map[string]*service.Service, len(st.Collections)),
	}
	s.hub = service.NewHub(logging.For(logger, "hub"))
	s.client = rest.NewClient(rest.Options{
		FetchURL:     func() string { return st.APIURL },
		ApplyHeaders: userAgent,
		Timeout:      st.Timeout,
		Logger:       logging.For(logger, "rest"),
		Registerer:   prometheus.NewRegistry(),
	})

	for _, c := range st.Collections {
		svc := service.New(record.KindFor(c),
			service.WithExecutor(s.client),
			service.WithStrict(st.Strict),
			service.WithLogger(logging.For(logger, "service")),
		)
		s.hub.Register(svc)
		s.services[c.Name] = svc
	}

	s.store = snapshot.NewStore(logging.For(logger, "snapshot"))
	if err := s.store.Attach(st.DataDir); err != nil {
		return nil, fmt.Errorf("attach snapshot store: %w", err)
	}
	for name, svc := range s.services {
		n, err := s.store.Restore(ctx, svc)
		if err != nil {
			_ = s.store.Detach()
			return nil, fmt.Errorf("restore %s: %w", name, err)
		}
		s.log.Debugw("Collection restored", "collection", name, "records", n)
	}
	return s, nil
}

func userAgent(_ types.Verb, h http.Header) http.Header {
	h.Set("User-Agent", "rimctl/"+Version)
	return h
}

// service returns the service of the named collection.
func (s *session) service(name string) (*service.Service, error) {
	svc, ok := s.services[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (configured: %v)", types.ErrUnknownCollection, name, s.names())
	}
	return svc, nil
}

func (s *session) names() []string {
	out := make([]string, 0, len(s.settings.Collections))
	for _, c := range s.settings.Collections {
		out = append(out, c.Name)
	}
	return out
}

// save writes every collection back to the snapshot store.
func (s *session) save(ctx context.Context) error {
	var errs []error
	for _, name := range s.names() {
		info, err := s.store.Save(ctx, name, s.services[name].State())
		if err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", name, err))
			continue
		}
		s.log.Debugw("Collection saved", "collection", name, "records", info.Records, "snapshot", info.SnapshotID)
	}
	return errors.Join(errs...)
}

// close saves the snapshot when persist is set, then releases the store.
func (s *session) close(ctx context.Context, persist bool) error {
	var err error
	if persist {
		err = s.save(ctx)
	}
	err = errors.Join(err, s.store.Detach())
	_ = s.logger.Sync()
	return err
}

// withSession runs fn inside an open session and saves the collections if
// fn succeeds.
func withSession(ctx context.Context, flags *rootFlags, fn func(*session) error) error {
	s, err := openSession(ctx, flags)
	if err != nil {
		return err
	}
	runErr := fn(s)
	return errors.Join(runErr, s.close(ctx, runErr == nil))
}
