// Package fakeapi is an in-memory REST backend that speaks the conventions
// rest.Client expects. rimctl serve runs it for local development, and the
// integration tests run against it.
package fakeapi

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/rest"
	"github.com/mesh-intelligence/rim/pkg/types"
)

// DeletedKey marks soft-deleted documents.
const DeletedKey = "deleted"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type collection struct {
	kind *record.Kind
	docs map[string]types.Document
}

// Server holds collections in memory. It is safe for concurrent use.
type Server struct {
	mu          sync.RWMutex
	collections map[string]*collection
	order       []string
	sessions    map[string]string // token -> user

	log      *zap.SugaredLogger
	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

// New creates a server for the configured collections.
func New(cfgs []types.CollectionConfig, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{
		collections: make(map[string]*collection, len(cfgs)),
		sessions:    make(map[string]string),
		log:         log,
		registry:    prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rim",
			Subsystem: "fakeapi",
			Name:      "requests_total",
			Help:      "Requests by method, route, and status",
		}, []string{"method", "route", "status"}),
	}
	s.registry.MustRegister(s.requests)
	for _, c := range cfgs {
		s.collections[c.Name] = &collection{kind: record.KindFor(c), docs: make(map[string]types.Document)}
		s.order = append(s.order, c.Name)
	}
	return s
}

// Seed stores docs in the named collection as if they had been created.
func (s *Server) Seed(name string, docs ...types.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return types.ErrUnknownCollection
	}
	for _, d := range docs {
		doc := c.kind.New(d).Data()
		c.docs[c.kind.IdentityStrategy().ID(doc)] = doc
	}
	return nil
}

// Docs returns the stored documents of a collection ordered by identity.
func (s *Server) Docs(name string) []types.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	return c.sorted("")
}

// Router returns the gin engine serving every collection plus the session
// endpoints and /metrics.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.observe)

	r.GET(rest.PathHydrate, s.hydrate)
	r.POST(rest.PathLogin, s.login)
	r.POST(rest.PathLogout, s.logout)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	for _, name := range s.order {
		c := s.collections[name]
		g := r.Group(c.kind.BasePath())
		g.GET("", s.list(c))
		g.POST("", s.create(c))
		item := "/:id"
		if c.kind.Composite() {
			item = "/:left/:right"
		}
		g.GET(item, s.read(c))
		g.PUT(item, s.update(c))
		g.DELETE(item, s.remove(c))
	}
	return r
}

func (s *Server) observe(ctx *gin.Context) {
	start := time.Now()
	ctx.Next()
	route := ctx.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := ctx.Writer.Status()
	s.requests.WithLabelValues(ctx.Request.Method, route, http.StatusText(status)).Inc()
	s.log.Debugw("Request served",
		"method", ctx.Request.Method,
		"path", ctx.Request.URL.Path,
		"status", status,
		"elapsed", time.Since(start))
}

func (s *Server) envelope() map[string]any {
	out := make(map[string]any, len(s.order))
	for _, name := range s.order {
		c := s.collections[name]
		out[c.kind.HydratePath()] = c.sorted("")
	}
	return out
}

func (s *Server) hydrate(ctx *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctx.JSON(http.StatusOK, s.envelope())
}

func (s *Server) login(ctx *gin.Context) {
	body, ok := bindDocument(ctx)
	if !ok {
		return
	}
	user := record.FormatID(body["user"])
	if user == "" {
		ctx.JSON(http.StatusUnauthorized, ErrorResponse{Error: "user is required"})
		return
	}
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = user
	out := s.envelope()
	out["token"] = token
	out["user"] = user
	ctx.JSON(http.StatusOK, out)
}

func (s *Server) logout(ctx *gin.Context) {
	token := strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	ctx.JSON(http.StatusOK, gin.H{})
}

func (s *Server) list(c *collection) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		ctx.JSON(http.StatusOK, c.sorted(ctx.Query(rest.SearchParam)))
	}
}

func (s *Server) create(c *collection) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		doc, ok := bindDocument(ctx)
		if !ok {
			return
		}
		if key := c.kind.IDKey(); key != "" {
			id := record.FormatID(doc[key])
			if id == "" || id == c.kind.Placeholder() {
				doc[key] = newID()
			}
		}
		doc = c.kind.New(doc).Data()
		id := c.kind.IdentityStrategy().ID(doc)

		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := c.docs[id]; exists {
			ctx.JSON(http.StatusConflict, ErrorResponse{Error: id + " already exists"})
			return
		}
		c.docs[id] = doc
		ctx.JSON(http.StatusCreated, doc)
	}
}

func (s *Server) read(c *collection) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		doc, ok := c.docs[itemID(ctx, c)]
		if !ok {
			ctx.JSON(http.StatusNotFound, ErrorResponse{Error: types.ErrNotFound.Error()})
			return
		}
		ctx.JSON(http.StatusOK, doc)
	}
}

func (s *Server) update(c *collection) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		body, ok := bindDocument(ctx)
		if !ok {
			return
		}
		id := itemID(ctx, c)

		s.mu.Lock()
		defer s.mu.Unlock()
		doc, found := c.docs[id]
		if !found {
			ctx.JSON(http.StatusNotFound, ErrorResponse{Error: types.ErrNotFound.Error()})
			return
		}
		merged := make(types.Document, len(doc)+len(body))
		for k, v := range doc {
			merged[k] = v
		}
		for k, v := range body {
			merged[k] = v
		}
		if c.kind.IdentityStrategy().ID(merged) != id {
			ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: types.ErrInvalidID.Error()})
			return
		}
		c.docs[id] = merged
		ctx.JSON(http.StatusOK, merged)
	}
}

func (s *Server) remove(c *collection) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := itemID(ctx, c)

		s.mu.Lock()
		defer s.mu.Unlock()
		doc, ok := c.docs[id]
		if !ok {
			ctx.JSON(http.StatusNotFound, ErrorResponse{Error: types.ErrNotFound.Error()})
			return
		}
		if c.kind.SoftDelete {
			marked := c.kind.New(doc).UpdateFieldIn([]string{DeletedKey}, true, false)
			c.docs[id] = marked.Data()
		} else {
			delete(c.docs, id)
		}
		ctx.Status(http.StatusNoContent)
	}
}

// sorted returns the documents matching query ordered by identity. A
// document matches when any string field contains query, ignoring case.
func (c *collection) sorted(query string) []types.Document {
	ids := make([]string, 0, len(c.docs))
	for id := range c.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	q := strings.ToLower(query)
	out := make([]types.Document, 0, len(ids))
	for _, id := range ids {
		doc := c.docs[id]
		if q == "" || matches(doc, q) {
			out = append(out, doc)
		}
	}
	return out
}

func matches(doc types.Document, q string) bool {
	for _, v := range doc {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

func itemID(ctx *gin.Context, c *collection) string {
	if c.kind.Composite() {
		return record.JoinID(ctx.Param("left"), ctx.Param("right"))
	}
	return ctx.Param("id")
}

func bindDocument(ctx *gin.Context) (types.Document, bool) {
	raw, err := ctx.GetRawData()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return nil, false
	}
	doc := types.Document{}
	if len(raw) == 0 {
		return doc, true
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON: " + err.Error()})
		return nil, false
	}
	return doc, true
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
