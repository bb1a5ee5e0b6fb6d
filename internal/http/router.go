package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Events        *EventHandler
	Registrations *RegistrationHandler
	Attendance    *AttendanceHandler
	Streams       *StreamHandler
	Middleware    []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Events != nil {
		mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Events.List(w, r)
			case http.MethodPost:
				cfg.Events.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/events/", func(w http.ResponseWriter, r *http.Request) {
			cfg.routeEvent(w, r)
		})
	}

	if cfg.Attendance != nil {
		mux.HandleFunc("/attendance", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Attendance.List(w, r)
		})
	}

	if cfg.Streams != nil {
		mux.HandleFunc("/attendance/stream", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Streams.StreamAll(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// routeEvent dispatches everything below /events/{id}. The path shapes are
// shallow enough that segment splitting stays clearer than a third-party
// router would be here.
func (cfg RouterConfig) routeEvent(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/events/")
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		http.NotFound(w, r)
		return
	}

	eventID := segments[0]
	r = r.WithContext(ContextWithEventID(r.Context(), eventID))

	switch len(segments) {
	case 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		cfg.Events.Get(w, r)
	case 2:
		switch segments[1] {
		case "status":
			if r.Method != http.MethodPut {
				methodNotAllowed(w, http.MethodPut)
				return
			}
			cfg.Events.UpdateStatus(w, r)
		case "registrations":
			if cfg.Registrations == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Registrations.Create(w, r)
		case "attendance":
			if cfg.Attendance == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Attendance.GetSummary(w, r)
		default:
			http.NotFound(w, r)
		}
	case 3:
		switch segments[1] {
		case "registrations":
			if cfg.Registrations == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			r = r.WithContext(ContextWithUserID(r.Context(), segments[2]))
			cfg.Registrations.Delete(w, r)
		case "checkins":
			if cfg.Attendance == nil {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithUserID(r.Context(), segments[2]))
			switch r.Method {
			case http.MethodPut:
				cfg.Attendance.CheckIn(w, r)
			case http.MethodDelete:
				cfg.Attendance.UndoCheckIn(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		case "attendance":
			if segments[2] != "stream" || cfg.Streams == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Streams.StreamEvent(w, r)
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
