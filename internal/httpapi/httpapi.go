// Package httpapi exposes the query engine as a read-only JSON API.
//
// Endpoints:
//
//	GET /api/lines?from=<n>&to=<n>  (from alone runs to the last line)
//	GET /api/summary
//	GET /api/sections/{id}
//	GET /api/search?term=<t>[&language=oe|me]
//	GET /api/dictionary/{headword}
//	GET /api/dictionary?like=<prefix> | ?search=<t>[&field=<f>]
//	GET /api/abbreviations/{key}
//	GET /api/abbreviations?search=<partial>
//	GET /api/tokens?lemma=<l> | like=<p> | search=<t>[&field=<f>] | line=<n> | fitt=<n>
//	GET /api/verse?from=<n>&to=<n> | ?lemma=<l>
//	GET /healthz
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"

	"github.com/kokistudios/beodata/internal/align"
	"github.com/kokistudios/beodata/internal/query"
	"github.com/kokistudios/beodata/internal/ui"
)

type errorResponse struct {
	Error string `json:"error"`
}

type countedResponse[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

func counted[T any](res []T) countedResponse[T] {
	if res == nil {
		res = []T{}
	}
	return countedResponse[T]{Count: len(res), Results: res}
}

type halfLineJSON struct {
	align.HalfLine
	Text string `json:"text"`
}

// Server serves the JSON API over one Engine.
type Server struct {
	engine  *query.Engine
	handler http.Handler
}

// New builds the API handler. allowedOrigins feeds the CORS policy; an
// empty list allows no cross-origin callers.
func New(engine *query.Engine, allowedOrigins []string) *Server {
	s := &Server{engine: engine}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/lines", s.handleLines)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/sections/{id}", s.handleSection)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/dictionary", s.handleDictionaryQuery)
	mux.HandleFunc("GET /api/dictionary/{headword}", s.handleDictionaryLookup)
	mux.HandleFunc("GET /api/abbreviations", s.handleAbbreviationSearch)
	mux.HandleFunc("GET /api/abbreviations/{key}", s.handleAbbreviation)
	mux.HandleFunc("GET /api/tokens", s.handleTokens)
	mux.HandleFunc("GET /api/verse", s.handleVerse)

	opts := cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	}
	if len(allowedOrigins) == 0 {
		// cors treats an empty list as "*".
		opts.AllowOriginFunc = func(string) bool { return false }
	}
	c := cors.New(opts)
	s.handler = c.Handler(logRequests(mux))
	return s
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		ui.Logger.Info("HTTP API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ui.Logger.Info("HTTP API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		ui.Logger.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		ui.Logger.Error("encode error", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), errorResponse{Error: err.Error()})
}

// statusOf maps query errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, query.ErrInvalidRange), errors.Is(err, query.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, query.ErrUnknownSection), errors.Is(err, query.ErrNoMatch),
		errors.Is(err, query.ErrUnknownAbbreviation):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// intParam parses a required integer query parameter.
func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, fmt.Errorf("%w: missing %q query parameter", query.ErrInvalidQuery, name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", query.ErrInvalidQuery, name, v)
	}
	return n, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLines(w http.ResponseWriter, r *http.Request) {
	m := s.engine.Model()
	from, to := m.First(), m.Last()
	q := r.URL.Query()
	var err error
	if q.Has("from") {
		if from, err = intParam(r, "from"); err != nil {
			writeError(w, err)
			return
		}
	}
	if q.Has("to") {
		if to, err = intParam(r, "to"); err != nil {
			writeError(w, err)
			return
		}
	}
	lines, err := s.engine.GetLines(from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counted(lines))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Summary())
}

func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: section id %q", query.ErrInvalidQuery, r.PathValue("id")))
		return
	}
	sl, err := s.engine.GetSection(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sl)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var field string
	switch strings.ToLower(q.Get("language")) {
	case "":
	case "oe":
		field = query.FieldOldEnglish
	case "me":
		field = query.FieldModernEnglish
	default:
		writeError(w, fmt.Errorf("%w: language must be oe or me", query.ErrInvalidQuery))
		return
	}
	lines, err := s.engine.SearchLines(q.Get("term"), field)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counted(lines))
}

func (s *Server) handleDictionaryLookup(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.DictionaryLookup(r.PathValue("headword"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counted(res))
}

func (s *Server) handleDictionaryQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case q.Has("like"):
		res, err := s.engine.DictionaryLookupLike(q.Get("like"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, counted(res))
	case q.Has("search"):
		res, err := s.engine.DictionarySearch(q.Get("search"), q.Get("field"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, counted(res))
	default:
		writeError(w, fmt.Errorf("%w: one of 'like' or 'search' is required", query.ErrInvalidQuery))
	}
}

func (s *Server) handleAbbreviation(w http.ResponseWriter, r *http.Request) {
	ab, err := s.engine.ExpandAbbreviation(r.PathValue("key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ab)
}

func (s *Server) handleAbbreviationSearch(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.SearchAbbreviations(r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counted(res))
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		res any
		err error
	)
	switch {
	case q.Has("lemma"):
		res, err = wrap(s.engine.TokensByLemma(q.Get("lemma")))
	case q.Has("like"):
		res, err = wrap(s.engine.TokensByLemmaPrefix(q.Get("like")))
	case q.Has("search"):
		res, err = wrap(s.engine.SearchTokens(q.Get("search"), q.Get("field")))
	case q.Has("line"):
		var n int
		if n, err = intParam(r, "line"); err == nil {
			res, err = wrap(s.engine.TokensByLine(n))
		}
	case q.Has("fitt"):
		var n int
		if n, err = intParam(r, "fitt"); err == nil {
			res, err = wrap(s.engine.TokensBySection(n))
		}
	default:
		err = fmt.Errorf("%w: one of lemma, like, search, line or fitt is required", query.ErrInvalidQuery)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func wrap[T any](res []T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return counted(res), nil
}

func (s *Server) handleVerse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		res []align.HalfLine
		err error
	)
	if q.Has("lemma") {
		res, err = s.engine.VerseByLemma(q.Get("lemma"))
	} else {
		var from, to int
		if from, err = intParam(r, "from"); err == nil {
			if to, err = intParam(r, "to"); err == nil {
				res, err = s.engine.HalfLines(from, to)
			}
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]halfLineJSON, len(res))
	for i, h := range res {
		out[i] = halfLineJSON{HalfLine: h, Text: h.Text()}
	}
	writeJSON(w, http.StatusOK, counted(out))
}
