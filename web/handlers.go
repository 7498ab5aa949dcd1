package web

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/machimap/machimap/distance"
	"github.com/machimap/machimap/geoloc"
	"github.com/machimap/machimap/pipeline"
	"github.com/machimap/machimap/search"
	"github.com/machimap/machimap/venue"
)

type server struct {
	pipe    *pipeline.Pipeline
	events  *pipeline.Pipeline
	dist    *distance.Engine
	session *geoloc.Session
	engine  *search.Engine
	proxy   *imageProxy
	log     *zap.Logger
}

func newServer(cfg Config, client *http.Client) Server {
	ans := server{
		pipe:    cfg.Pipeline,
		events:  cfg.Events,
		dist:    cfg.Distances,
		session: cfg.Session,
		engine:  cfg.Search,
		proxy:   newImageProxy(client, cfg.AllowedHosts, cfg.Logger),
		log:     cfg.Logger,
	}

	return &ans
}

type venuesResponse struct {
	SnapshotID string         `json:"snapshot_id"`
	FromCache  bool           `json:"from_cache"`
	Total      int            `json:"total"`
	Offset     int            `json:"offset"`
	Count      int            `json:"count"`
	Venues     []venue.Record `json:"venues"`
}

func (s *server) Venues(c echo.Context) error {
	return s.listing(c, s.pipe)
}

// Events serves the event collection through the same filter/sort/paginate
// surface as the venues.
func (s *server) Events(c echo.Context) error {
	if s.events == nil {
		return echo.NewHTTPError(http.StatusNotFound, map[string]string{
			"error": "events_not_configured",
		})
	}

	return s.listing(c, s.events)
}

func (s *server) listing(c echo.Context, pipe *pipeline.Pipeline) error {
	snap, err := currentSnapshot(pipe)
	if err != nil {
		return err
	}

	q := search.Query{
		Text:     c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Area:     c.QueryParam("area"),
		Tag:      c.QueryParam("tag"),
		OpenNow:  boolParam(c, "open"),
		Parking:  boolParam(c, "parking"),
	}

	records := snap.Records

	// distance is attached only when a position is known; consumers sort
	// without it otherwise
	if pos := s.session.Current(); pos != nil {
		withDistance, err := s.dist.Compute(c.Request().Context(), records, *pos)
		if err == nil {
			records = withDistance
		} else {
			s.log.Warn("distance computation skipped", zap.Error(err))
		}
	}

	result := s.engine.Apply(records, q)

	offset := intParam(c, "offset", 0)

	// an explicit limit wins; otherwise the window starts at one screenful
	// and grows by one increment per requested "more"
	limit := intParam(c, "limit", 0)
	if limit <= 0 {
		pager := search.NewPager(len(result))
		for n := intParam(c, "more", 0); n > 0; n-- {
			pager.More()
		}

		limit = pager.Visible()
	}

	page := search.Slice(result, offset, limit)

	return c.JSON(http.StatusOK, venuesResponse{
		SnapshotID: snap.ID,
		FromCache:  snap.FromCache,
		Total:      len(result),
		Offset:     offset,
		Count:      len(page),
		Venues:     page,
	})
}

type facetsResponse struct {
	Categories []search.Facet `json:"categories"`
	Areas      []search.Facet `json:"areas"`
}

func (s *server) Facets(c echo.Context) error {
	snap, err := currentSnapshot(s.pipe)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, facetsResponse{
		Categories: search.CategoryFacets(snap.Records),
		Areas:      search.AreaFacets(snap.Records),
	})
}

func (s *server) Images(c echo.Context) error {
	snap, err := currentSnapshot(s.pipe)
	if err != nil {
		return err
	}

	listing := pipeline.ImageListing(c.Request().Context(), snap.Records)

	return c.JSON(http.StatusOK, map[string]any{
		"count":  len(listing),
		"images": listing,
	})
}

func (s *server) ImageProxy(c echo.Context) error {
	return s.proxy.handle(c)
}

// Refresh triggers a position refresh and reports the session state. The
// device source decides whether a reading is possible; failure degrades to
// position-unknown.
func (s *server) Refresh(c echo.Context) error {
	err := s.session.Refresh(c.Request().Context())

	pos := s.session.Current()
	ans := map[string]any{"position": pos}

	if err != nil {
		ans["error"] = err.Error()
	}

	return c.JSON(http.StatusOK, ans)
}

// currentSnapshot returns the published collection, or a 503 when the very
// first load failed with nothing cached to fall back on.
func currentSnapshot(pipe *pipeline.Pipeline) (pipeline.Snapshot, error) {
	snap, err := pipe.Snapshot()
	if len(snap.Records) == 0 {
		if err == nil {
			err = pipeline.ErrNoRecords
		}

		return pipeline.Snapshot{}, echo.NewHTTPError(http.StatusServiceUnavailable, map[string]string{
			"error":   "data_unavailable",
			"message": err.Error(),
		})
	}

	return snap, nil
}

func boolParam(c echo.Context, name string) bool {
	switch c.QueryParam(name) {
	case "1", "true", "yes":
		return true
	}

	return false
}

func intParam(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}

	return n
}
