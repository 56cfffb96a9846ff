package storywall

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

// middleware is a convenient type for declaring middlewares.
type middleware func(httprouter.Handle) httprouter.Handle

// withMiddlewares is a helper function to declare routes with middlewares
// more easily. The caller declares its routes in the body of the f function,
// calling f's argument on its httprouter.Handle to wrap them.
func withMiddlewares(f func(middleware), middlewares ...middleware) {
	wrapper := func(handle httprouter.Handle) httprouter.Handle {
		h := handle
		for i := len(middlewares) - 1; i >= 0; i-- {
			m := middlewares[i]
			h = m(h)
		}
		return h
	}

	f(wrapper)
}

// statusRecorder captures the status code written by a handler so the
// metrics middleware can record it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// recordMetricsMiddleware counts requests per route and status and observes
// their latency.
func (s *Server) recordMetricsMiddleware() middleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return httprouter.Handle(func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next(rec, r, p)

			s.metrics.RecordRequest(r.URL.Path, rec.status)
			s.metrics.RecordLatency(time.Since(start))
		})
	}
}
