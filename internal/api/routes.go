package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ivlev/scenescript/internal/plan"
)

// MaxPlanWindow bounds the number of frames one /plan request may return.
const MaxPlanWindow = 10000

// ClampedHeader is set on /frames responses whose frame lies outside the
// timeline.
const ClampedHeader = "X-Frame-Clamped"

func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Get("/summary", summaryHandler(cfg))
	r.Get("/scenes", listScenesHandler(cfg))
	r.Get("/scenes/{id}", getSceneHandler(cfg))
	r.Get("/frames/{frame}", frameHandler(cfg))
	r.Get("/plan", planHandler(cfg))

	return r
}

func healthHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
			Script:  cfg.Timeline.Script().Source(),
		})
	}
}

func summaryHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := plan.Summarize(cfg.Timeline.Script())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INVALID_SCRIPT")
			return
		}
		WriteJSON(w, http.StatusOK, sum)
	}
}

func listScenesHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := cfg.Timeline.Script()
		spans := cfg.Timeline.Spans()
		resp := ScenesResponse{Scenes: make([]SceneResponse, len(spans))}
		for i, sp := range spans {
			resp.Scenes[i] = SceneToResponse(&s.Scenes[i], sp)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getSceneHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s := cfg.Timeline.Script()
		for _, sp := range cfg.Timeline.Spans() {
			if sp.ID != id {
				continue
			}
			sc := &s.Scenes[sp.Index]
			WriteJSON(w, http.StatusOK, SceneDetailResponse{
				SceneResponse: SceneToResponse(sc, sp),
				Scene:         sc,
			})
			return
		}
		WriteError(w, http.StatusNotFound, "scene not found", "NOT_FOUND")
	}
}

func frameHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame, err := strconv.Atoi(chi.URLParam(r, "frame"))
		if err != nil || frame < 0 {
			WriteError(w, http.StatusBadRequest, "frame must be a non-negative integer", "BAD_REQUEST")
			return
		}
		if cfg.Timeline.Clamped(frame) {
			w.Header().Set(ClampedHeader, "true")
		}
		WriteJSON(w, http.StatusOK, cfg.Timeline.Build(frame, cfg.Context))
	}
}

func planHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		total := cfg.Timeline.TotalFrames()

		from, err := queryInt(r, "from", 0)
		if err != nil || from < 0 {
			WriteError(w, http.StatusBadRequest, "from must be a non-negative integer", "BAD_REQUEST")
			return
		}
		to, err := queryInt(r, "to", from+MaxPlanWindow)
		if err != nil || to < from {
			WriteError(w, http.StatusBadRequest, "to must be an integer not less than from", "BAD_REQUEST")
			return
		}
		if to-from > MaxPlanWindow {
			WriteError(w, http.StatusBadRequest, "window exceeds "+strconv.Itoa(MaxPlanWindow)+" frames", "BAD_REQUEST")
			return
		}
		to = min(to, total)
		from = min(from, to)

		if cfg.Store != nil && cfg.PlanID != 0 {
			entries, err := cfg.Store.Range(r.Context(), cfg.PlanID, from, to)
			if err != nil {
				cfg.Logger.Error("failed to read stored plan", "plan_id", cfg.PlanID, "error", err)
				WriteError(w, http.StatusInternalServerError, "failed to read plan", "INTERNAL_ERROR")
				return
			}
			if entries == nil {
				entries = []plan.Entry{}
			}
			WriteJSON(w, http.StatusOK, entries)
			return
		}

		WriteJSON(w, http.StatusOK, plan.Entries(plan.Range(cfg.Timeline, from, to, cfg.Context)))
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
