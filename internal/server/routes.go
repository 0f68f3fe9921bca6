package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/OCAP2/pathrecorder/internal/catalog"
	"github.com/OCAP2/pathrecorder/internal/codec"
	"github.com/OCAP2/pathrecorder/internal/dispatcher"
	"github.com/OCAP2/pathrecorder/internal/geo"
	"github.com/OCAP2/pathrecorder/pkg/core"
)

const maxBodyBytes = 1 << 20

// Source is the path being served.
type Source interface {
	Snapshot() core.Path
}

// Dispatcher accepts inbound points.
type Dispatcher interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// Catalog lists saved recordings.
type Catalog interface {
	List(ctx context.Context) ([]catalog.Recording, error)
}

// Options wires the router. Only Source is required; the ingest routes exist
// when Dispatcher is set, /path/stream when Stream is set and /recordings
// when Catalog is set.
type Options struct {
	Source     Source
	FrameID    string
	Dispatcher Dispatcher
	Stream     http.Handler
	Catalog    Catalog
	Logger     *slog.Logger
	Clock      func() time.Time
}

type routes struct {
	opts Options
}

// NewRouter builds the HTTP handler.
func NewRouter(opts Options) *mux.Router {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	rt := &routes{opts: opts}

	r := mux.NewRouter()
	r.Use(logRequests(opts.Logger))

	r.Methods(http.MethodGet).Path("/path").HandlerFunc(rt.getPath)
	r.Methods(http.MethodGet).Path("/path/summary").HandlerFunc(rt.getSummary)
	if opts.Stream != nil {
		r.Methods(http.MethodGet).Path("/path/stream").Handler(opts.Stream)
	}
	if opts.Dispatcher != nil {
		r.Methods(http.MethodPost).Path("/points").HandlerFunc(rt.postPoint)
		r.Methods(http.MethodPost).Path("/points/raw").HandlerFunc(rt.postRawPoint)
		r.Methods(http.MethodPost).Path("/fixes").HandlerFunc(rt.postFix)
	}
	if opts.Catalog != nil {
		r.Methods(http.MethodGet).Path("/recordings").HandlerFunc(rt.getRecordings)
	}
	return r
}

func (rt *routes) getPath(w http.ResponseWriter, r *http.Request) {
	data, err := codec.Marshal(rt.opts.Source.Snapshot())
	if err != nil {
		rt.fail(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (rt *routes) getSummary(w http.ResponseWriter, r *http.Request) {
	s, err := geo.Summarize(rt.opts.Source.Snapshot())
	if err != nil {
		rt.fail(w, http.StatusInternalServerError, err)
		return
	}
	rt.json(w, http.StatusOK, s)
}

func (rt *routes) getRecordings(w http.ResponseWriter, r *http.Request) {
	recs, err := rt.opts.Catalog.List(r.Context())
	if err != nil {
		rt.fail(w, http.StatusInternalServerError, err)
		return
	}
	if recs == nil {
		recs = []catalog.Recording{}
	}
	rt.json(w, http.StatusOK, recs)
}

func (rt *routes) postPoint(w http.ResponseWriter, r *http.Request) {
	body, ok := rt.readBody(w, r)
	if !ok {
		return
	}
	p, hasHeader, err := codec.UnmarshalPointStamped(body)
	if err != nil {
		rt.fail(w, http.StatusBadRequest, err)
		return
	}
	if !hasHeader {
		p.Header = rt.header()
	}
	rt.dispatch(w, dispatcher.TopicPoint, p)
}

type rawPointRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (rt *routes) postRawPoint(w http.ResponseWriter, r *http.Request) {
	var req rawPointRequest
	if !rt.decode(w, r, &req) {
		return
	}
	if req.X == nil || req.Y == nil {
		rt.fail(w, http.StatusBadRequest, fmt.Errorf("%w: x and y are required", core.ErrDecode))
		return
	}
	rt.dispatch(w, dispatcher.TopicPointRaw, dispatcher.RawPoint{X: *req.X, Y: *req.Y})
}

type fixRequest struct {
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
	Altitude  float64  `json:"altitude"`
}

func (rt *routes) postFix(w http.ResponseWriter, r *http.Request) {
	var req fixRequest
	if !rt.decode(w, r, &req) {
		return
	}
	if req.Longitude == nil || req.Latitude == nil {
		rt.fail(w, http.StatusBadRequest, fmt.Errorf("%w: longitude and latitude are required", core.ErrDecode))
		return
	}
	pt, err := geo.PointFromGeodetic(*req.Longitude, *req.Latitude, req.Altitude)
	if err != nil {
		rt.fail(w, http.StatusBadRequest, err)
		return
	}
	rt.dispatch(w, dispatcher.TopicFix, core.PointStamped{Header: rt.header(), Point: pt})
}

func (rt *routes) header() core.Header {
	return core.Header{
		Stamp:   core.TimeFromStd(rt.opts.Clock()),
		FrameID: rt.opts.FrameID,
	}
}

func (rt *routes) dispatch(w http.ResponseWriter, topic string, payload any) {
	_, err := rt.opts.Dispatcher.Dispatch(dispatcher.Event{
		Topic:     topic,
		Payload:   payload,
		Timestamp: rt.opts.Clock(),
	})
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case errors.Is(err, dispatcher.ErrQueueFull):
		rt.fail(w, http.StatusTooManyRequests, err)
	case errors.Is(err, dispatcher.ErrUnknownTopic), errors.Is(err, dispatcher.ErrClosed):
		rt.fail(w, http.StatusServiceUnavailable, err)
	default:
		rt.fail(w, http.StatusInternalServerError, err)
	}
}

func (rt *routes) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		rt.fail(w, http.StatusBadRequest, fmt.Errorf("%w: %w", core.ErrIO, err))
		return nil, false
	}
	return body, true
}

func (rt *routes) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, ok := rt.readBody(w, r)
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		rt.fail(w, http.StatusBadRequest, fmt.Errorf("%w: %w", core.ErrDecode, err))
		return false
	}
	return true
}

type errorResponse struct {
	Error string `json:"error"`
}

func (rt *routes) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		rt.opts.Logger.Error("request failed", "status", status, "error", err)
	}
	rt.json(w, status, errorResponse{Error: err.Error()})
}

func (rt *routes) json(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rt.opts.Logger.Warn("failed to write response", "error", err)
	}
}
