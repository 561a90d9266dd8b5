package http

import (
	"time"

	"github.com/fyrsmithlabs/choosethere/internal/backup"
	"github.com/fyrsmithlabs/choosethere/internal/nearby"
	"github.com/fyrsmithlabs/choosethere/internal/preferences"
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
	"github.com/fyrsmithlabs/choosethere/internal/roulette"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse is the response body for GET /api/v1/status.
type StatusResponse struct {
	Status          string       `json:"status"`
	Version         string       `json:"version,omitempty"`
	Counts          StatusCounts `json:"counts"`
	LearningEnabled bool         `json:"learning_enabled"`
	NearbyEnabled   bool         `json:"nearby_enabled"`
	MaxRerolls      int          `json:"max_rerolls"`
}

// StatusCounts contains record counts. -1 means the count is unavailable.
type StatusCounts struct {
	Restaurants    int `json:"restaurants"`
	Visits         int `json:"visits"`
	LearnedWeights int `json:"learned_weights"`
	DrawSessions   int `json:"draw_sessions"`
}

// AvailabilityResponse is the response body for POST /api/v1/availability.
type AvailabilityResponse struct {
	Available  int  `json:"available"`
	WouldRelax bool `json:"would_relax"`
}

// FavoriteRequest is the request body for PUT /api/v1/restaurants/:id/favorite.
type FavoriteRequest struct {
	Favorite *bool `json:"favorite"`
}

// DrawResponse is returned by the draw endpoints.
type DrawResponse struct {
	SessionID   string                `json:"session_id"`
	Outcome     string                `json:"outcome"`
	Restaurant  *restaurant.Candidate `json:"restaurant,omitempty"`
	Weight      float64               `json:"weight,omitempty"`
	Relaxation  string                `json:"relaxation"`
	Matched     int                   `json:"matched"`
	Eligible    int                   `json:"eligible"`
	RerollsLeft int                   `json:"rerolls_left"`
}

func newDrawResponse(id string, outcome roulette.Outcome, session *roulette.Session) DrawResponse {
	resp := DrawResponse{
		SessionID:   id,
		Outcome:     outcome.Kind.String(),
		Relaxation:  outcome.Relaxation.String(),
		Matched:     outcome.Matched,
		Eligible:    outcome.Eligible,
		RerollsLeft: session.RerollsLeft(),
	}
	if outcome.Picked() {
		c := outcome.Candidate
		resp.Restaurant = &c
		resp.Weight = outcome.Weight
	}
	return resp
}

// PreferencesResponse is the response body for GET /api/v1/preferences.
type PreferencesResponse struct {
	LearningEnabled bool                `json:"learning_enabled"`
	Version         int                 `json:"version"`
	UpdatedAt       *time.Time          `json:"updated_at,omitempty"`
	Entries         []preferences.Entry `json:"entries"`
}

// NearbyDrawRequest is the request body for POST /api/v1/nearby/draws.
type NearbyDrawRequest struct {
	Context restaurant.PreferenceContext `json:"context"`
	Lat     *float64                     `json:"lat"`
	Lng     *float64                     `json:"lng"`
	City    string                       `json:"city,omitempty"`
	// Drawn lists ids already shown in this nearby flow.
	Drawn []string `json:"drawn,omitempty"`
}

// NearbyDrawResponse is the response body for POST /api/v1/nearby/draws.
type NearbyDrawResponse struct {
	Outcome        string                `json:"outcome"`
	Restaurant     *restaurant.Candidate `json:"restaurant,omitempty"`
	Place          *nearby.Place         `json:"place,omitempty"`
	FromLocalBase  bool                  `json:"from_local_base"`
	DistanceMeters float64               `json:"distance_m,omitempty"`
	RadiusKm       int                   `json:"radius_km"`
	FellBack       bool                  `json:"fell_back,omitempty"`
	Drawn          []string              `json:"drawn"`
}

func newNearbyDrawResponse(res nearby.Result) NearbyDrawResponse {
	resp := NearbyDrawResponse{
		Outcome:        res.Outcome.Kind.String(),
		Place:          res.Place,
		FromLocalBase:  res.FromLocalBase,
		DistanceMeters: res.DistanceMeters,
		RadiusKm:       res.RadiusKm,
		FellBack:       res.Outcome.FellBack,
		Drawn:          res.State.Drawn,
	}
	if resp.Drawn == nil {
		resp.Drawn = []string{}
	}
	if res.Outcome.Picked() {
		c := res.Outcome.Candidate
		resp.Restaurant = &c
	}
	return resp
}

// BackupErrorResponse reports a rejected backup.
type BackupErrorResponse struct {
	Message string      `json:"message"`
	Kind    backup.Kind `json:"kind"`
}
