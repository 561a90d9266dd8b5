package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/choosethere/internal/backup"
	"github.com/fyrsmithlabs/choosethere/internal/logging"
	"github.com/fyrsmithlabs/choosethere/internal/nearby"
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
	"github.com/fyrsmithlabs/choosethere/internal/roulette"
	"github.com/fyrsmithlabs/choosethere/internal/visits"
)

const maxBackupBytes = 32 << 20

// handleCreateDraw starts a draw session and performs its first draw.
// No candidates is a normal outcome and still creates the session, so the
// client can reroll after the catalog changes.
func (s *Server) handleCreateDraw(c echo.Context) error {
	var pc restaurant.PreferenceContext
	if err := c.Bind(&pc); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid draw request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	id, ds := s.sessions.create(pc)
	ctx := logging.WithSessionID(c.Request().Context(), id)

	ds.mu.Lock()
	defer ds.mu.Unlock()

	outcome, err := s.svc.Roulette.Draw(ctx, ds.session)
	if err != nil {
		s.sessions.remove(id)
		return storageHTTPError(err)
	}
	return c.JSON(http.StatusCreated, newDrawResponse(id, outcome, ds.session))
}

func (s *Server) handleGetDraw(c echo.Context) error {
	id := c.Param("id")
	ds, ok := s.sessions.get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "draw session not found")
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	last, _ := ds.session.Last()
	return c.JSON(http.StatusOK, newDrawResponse(id, last, ds.session))
}

func (s *Server) handleReroll(c echo.Context) error {
	id := c.Param("id")
	ds, ok := s.sessions.get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "draw session not found")
	}
	ctx := logging.WithSessionID(c.Request().Context(), id)

	ds.mu.Lock()
	defer ds.mu.Unlock()

	outcome, err := s.svc.Roulette.Reroll(ctx, ds.session)
	if errors.Is(err, roulette.ErrRerollExhausted) {
		return echo.NewHTTPError(http.StatusConflict, "no rerolls left")
	}
	if err != nil {
		return storageHTTPError(err)
	}
	return c.JSON(http.StatusOK, newDrawResponse(id, outcome, ds.session))
}

func (s *Server) handleDeleteDraw(c echo.Context) error {
	if !s.sessions.remove(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "draw session not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// handleAvailability reports how many restaurants a draw for the posted
// context could pick without relaxing recency exclusion.
func (s *Server) handleAvailability(c echo.Context) error {
	var pc restaurant.PreferenceContext
	if err := c.Bind(&pc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()

	available, err := s.svc.Roulette.AvailableCount(ctx, pc, roulette.State{})
	if err != nil {
		return storageHTTPError(err)
	}
	relax, err := s.svc.Roulette.WouldRelax(ctx, pc, roulette.State{})
	if err != nil {
		return storageHTTPError(err)
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{Available: available, WouldRelax: relax})
}

func (s *Server) handleSetFavorite(c echo.Context) error {
	if s.svc.Favorites == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "favorites are not available")
	}
	var req FavoriteRequest
	if err := c.Bind(&req); err != nil || req.Favorite == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "favorite is required")
	}

	err := s.svc.Favorites.SetFavorite(c.Request().Context(), c.Param("id"), *req.Favorite)
	switch {
	case errors.Is(err, restaurant.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "restaurant not found")
	case err != nil:
		return storageHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleRecordVisit stores a rated visit. Learning runs after the response
// is decided and its failure never changes the status.
func (s *Server) handleRecordVisit(c echo.Context) error {
	var req visits.RecordRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid visit request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RestaurantID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "restaurant_id is required")
	}

	visit, err := s.svc.Visits.Submit(c.Request().Context(), req)
	switch {
	case errors.Is(err, visits.ErrInvalidRating):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, restaurant.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "restaurant not found")
	case err != nil:
		return storageHTTPError(err)
	}
	return c.JSON(http.StatusCreated, visit)
}

func (s *Server) handleGetPreferences(c echo.Context) error {
	prefs := s.svc.Learner.Store().Snapshot()
	resp := PreferencesResponse{
		LearningEnabled: s.svc.Learner.Enabled(),
		Version:         prefs.Version,
		Entries:         prefs.Entries(),
	}
	if !prefs.UpdatedAt.IsZero() {
		t := prefs.UpdatedAt
		resp.UpdatedAt = &t
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleResetPreferences(c echo.Context) error {
	if err := s.svc.Learner.Reset(c.Request().Context()); err != nil {
		return storageHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleNearbyDraw(c echo.Context) error {
	if s.svc.Nearby == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "nearby search is disabled")
	}

	var req NearbyDrawRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Lat == nil || req.Lng == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "lat and lng are required")
	}

	res, err := s.svc.Nearby.Draw(c.Request().Context(), nearby.Request{
		Context:  req.Context,
		Location: restaurant.Location{Lat: *req.Lat, Lng: *req.Lng},
		CityHint: req.City,
		State:    roulette.State{Drawn: req.Drawn},
	})
	switch {
	case errors.Is(err, nearby.ErrInvalidCoordinate):
		return echo.NewHTTPError(http.StatusBadRequest, "coordinate out of range")
	case errors.Is(err, nearby.ErrNoResults):
		return echo.NewHTTPError(http.StatusNotFound, "no places found nearby")
	case errors.Is(err, nearby.ErrAllFiltered):
		return c.JSON(http.StatusOK, newNearbyDrawResponse(res))
	case errors.Is(err, nearby.ErrSearchFailed):
		return echo.NewHTTPError(http.StatusBadGateway, "place search failed").SetInternal(err)
	case err != nil:
		return storageHTTPError(err)
	}
	return c.JSON(http.StatusOK, newNearbyDrawResponse(res))
}

func (s *Server) handleExportBackup(c echo.Context) error {
	data, err := s.svc.Backup.ExportJSON(c.Request().Context())
	if err != nil {
		return storageHTTPError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+backup.DefaultFileName+`"`)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

func (s *Server) handleImportBackup(c echo.Context) error {
	mode, err := backup.ParseMode(c.QueryParam("mode"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	data, err := readBody(c)
	if err != nil {
		return err
	}

	res, err := s.svc.Backup.ImportJSON(c.Request().Context(), data, mode)
	if err != nil {
		return backupHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handlePreviewBackup(c echo.Context) error {
	data, err := readBody(c)
	if err != nil {
		return err
	}
	preview, err := s.svc.Backup.Codec().Preview(data)
	if err != nil {
		return backupHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, preview)
}

func readBody(c echo.Context) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBackupBytes+1))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to read body").SetInternal(err)
	}
	if len(data) > maxBackupBytes {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "backup too large")
	}
	return data, nil
}

func backupHTTPError(c echo.Context, err error) error {
	var ve *backup.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusUnprocessableEntity, BackupErrorResponse{Message: ve.Error(), Kind: ve.Kind})
	}
	return storageHTTPError(err)
}
