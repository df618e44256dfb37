package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/dmitrijs2005/nestwatch/internal/common"
	"github.com/dmitrijs2005/nestwatch/internal/logging"
	"github.com/dmitrijs2005/nestwatch/internal/models"
	"github.com/dmitrijs2005/nestwatch/internal/server/metrics"
	"github.com/dmitrijs2005/nestwatch/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxSiteBody  = 8 << 20
	maxImageBody = 32 << 20
)

// SyncService is the site synchronisation backend.
type SyncService interface {
	Manifest(ctx context.Context, region string) ([]models.ManifestEntry, error)
	Sites(ctx context.Context, region string) ([]models.Site, error)
	Inspections(ctx context.Context, region string) ([]models.Inspection, error)
	Site(ctx context.Context, id string) (*models.Site, error)
	Upsert(ctx context.Context, userID, region string, site models.Site) (*models.UpsertResult, error)
	RemoveDuplicates(ctx context.Context) (int, error)
}

type RegionService interface {
	Sync(ctx context.Context, userID string, regions []models.Region) ([]models.Region, error)
	CheckAccess(ctx context.Context, userID, region string) error
}

// Pinger reports database readiness; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	sync     SyncService
	regions  RegionService
	blobs    services.BlobStorage
	db       Pinger
	logger   logging.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	secret   []byte
}

func NewHandler(sync SyncService, regions RegionService, blobs services.BlobStorage, db Pinger,
	logger logging.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer, secretKey string) *Handler {
	return &Handler{
		sync:     sync,
		regions:  regions,
		blobs:    blobs,
		db:       db,
		logger:   logger.With("module", "http_api"),
		metrics:  m,
		gatherer: gatherer,
		secret:   []byte(secretKey),
	}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(h.instrument)
	r.Use(h.logRequests)

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authenticate)
		r.Get("/db", h.getDB)
		r.Post("/db", h.postDB)
		r.Post("/regions", h.postRegions)
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Error(ctx, "readiness check failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) getDB(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		out any
		err error
	)
	switch what := q.Get("what"); what {
	case "chg", "nk", "ctrls":
		var region string
		if region, err = h.region(r); err == nil {
			out, err = h.list(ctx, what, region)
		}
	case "site":
		out, err = h.site(r)
	case "img":
		h.getImage(w, r)
		return
	case "dpl":
		var n int
		if n, err = h.sync.RemoveDuplicates(ctx); err == nil {
			out = map[string]int{"count": n}
		}
	default:
		err = fmt.Errorf("%w: %q", errUnknownWhat, what)
	}

	if err != nil {
		respondError(ctx, w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) list(ctx context.Context, what, region string) (any, error) {
	switch what {
	case "chg":
		return h.sync.Manifest(ctx, region)
	case "nk":
		return h.sync.Sites(ctx, region)
	default:
		return h.sync.Inspections(ctx, region)
	}
}

func (h *Handler) site(r *http.Request) (*models.Site, error) {
	id := r.URL.Query().Get("id")
	if id == "" {
		return nil, errMissingID
	}

	site, err := h.sync.Site(r.Context(), id)
	if err != nil {
		return nil, err
	}

	userID, _ := UserID(r.Context())
	if err := h.regions.CheckAccess(r.Context(), userID, site.Region); err != nil {
		return nil, err
	}
	return site, nil
}

func (h *Handler) getImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := r.URL.Query().Get("imgPath")

	data, err := h.blobs.Get(ctx, p)
	if err != nil {
		respondError(ctx, w, h.logger, err)
		return
	}

	ct := mime.TypeByExtension(path.Ext(p))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) postDB(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		out any
		err error
	)
	switch what := r.URL.Query().Get("what"); what {
	case "nk":
		out, err = h.upsert(w, r)
	case "img":
		out, err = h.putImage(w, r)
	default:
		err = fmt.Errorf("%w: %q", errUnknownWhat, what)
	}

	if err != nil {
		respondError(ctx, w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) (*models.UpsertResult, error) {
	region, err := h.region(r)
	if err != nil {
		return nil, err
	}

	var site models.Site
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSiteBody)).Decode(&site); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadBody, err)
	}
	if site.Region == "" {
		site.Region = region
	}
	if err := models.Validate(site); err != nil {
		return nil, err
	}

	userID, _ := UserID(r.Context())
	return h.sync.Upsert(r.Context(), userID, region, site)
}

func (h *Handler) putImage(w http.ResponseWriter, r *http.Request) (map[string]int, error) {
	p := r.URL.Query().Get("imgPath")
	if err := services.CheckBlobPath(p); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadBody, err)
	}
	if err := h.blobs.Put(r.Context(), p, data); err != nil {
		return nil, err
	}
	return map[string]int{"ok": len(data)}, nil
}

func (h *Handler) postRegions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var regions []models.Region
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSiteBody)).Decode(&regions); err != nil {
		respondError(ctx, w, h.logger, fmt.Errorf("%w: %v", errBadBody, err))
		return
	}
	for _, reg := range regions {
		if err := models.Validate(reg); err != nil {
			respondError(ctx, w, h.logger, err)
			return
		}
	}

	userID, _ := UserID(ctx)
	out, err := h.regions.Sync(ctx, userID, regions)
	if err != nil {
		respondError(ctx, w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// region returns the region parameter after checking the caller may use it.
// A missing parameter fails before any data access.
func (h *Handler) region(r *http.Request) (string, error) {
	region := r.URL.Query().Get(common.RegionParam)
	if region == "" {
		return "", common.ErrMissingRegion
	}

	userID, _ := UserID(r.Context())
	if err := h.regions.CheckAccess(r.Context(), userID, region); err != nil {
		return "", err
	}
	return region, nil
}
