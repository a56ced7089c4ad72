// Package server exposes a running host loop over HTTP. Handlers never touch
// the map or the scope directly; everything goes through Loop.Do.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/anrid/covid-scope/pkg/camera"
	"github.com/anrid/covid-scope/pkg/hostmap"
	"github.com/anrid/covid-scope/pkg/logger"
	"github.com/anrid/covid-scope/pkg/scope"
	"github.com/anrid/covid-scope/pkg/stats"
)

const requestTimeout = 5 * time.Second

var errBadRequest = errors.New("bad request")

// Snapshotter copies the visible framebuffer.
type Snapshotter interface {
	Image() *image.RGBA
}

type Server struct {
	loop  *hostmap.Loop
	m     *hostmap.Map
	scope *scope.Scope
	snap  Snapshotter
}

func New(loop *hostmap.Loop, m *hostmap.Map, sc *scope.Scope, snap Snapshotter) *Server {
	return &Server{loop: loop, m: m, scope: sc, snap: snap}
}

// Routes returns a chi.Router serving the whole surface.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.getHealthz)
	r.Get("/model", s.getModel)
	r.Get("/state", s.getState)
	r.Get("/frame.png", s.getFrame)
	r.Get("/pick", s.getPick)

	r.Post("/camera", s.postCamera)
	r.Post("/day", s.postDay)
	r.Post("/row", s.postRow)
	r.Post("/mode", s.postMode)
	r.Post("/play", s.postPlay)
	r.Post("/pause", s.postPause)
	r.Post("/select", s.postSelect)
	r.Post("/deselect", s.postDeselect)
	r.Post("/click", s.postClick)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.With(r.Context(), "request_id", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		logger.Debugf(ctx, "%s %s %d %v", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	js, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("encode response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(js)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, hostmap.ErrStopped):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		logger.Errorf(r.Context(), "%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}

// do runs fn on the loop and answers with the resulting state.
func (s *Server) do(w http.ResponseWriter, r *http.Request, fn func() error) {
	var (
		st    stateResponse
		fnErr error
	)
	err := s.loop.Do(r.Context(), func() {
		if fnErr = fn(); fnErr == nil {
			st = s.state()
		}
	})
	if err == nil {
		err = fnErr
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) getHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type regionResponse struct {
	ID   int     `json:"id"`
	Name string  `json:"name"`
	Lng  float64 `json:"lng"`
	Lat  float64 `json:"lat"`
}

type countryResponse struct {
	ID      int              `json:"id"`
	Name    string           `json:"name"`
	Regions []regionResponse `json:"regions"`
}

type modelResponse struct {
	DayCount  int                `json:"dayCount"`
	Epoch     string             `json:"epoch"`
	MaxValues map[string]float64 `json:"maxValues"`
	Countries []countryResponse  `json:"countries"`
}

// getModel needs no loop round trip: the model is immutable.
func (s *Server) getModel(w http.ResponseWriter, r *http.Request) {
	m := s.scope.Model()
	resp := modelResponse{
		DayCount:  m.DayCount,
		Epoch:     m.Epoch.Format("2006-01-02"),
		MaxValues: make(map[string]float64),
		Countries: make([]countryResponse, 0, len(m.Countries)),
	}
	for _, mt := range stats.Metrics {
		resp.MaxValues[mt.String()] = m.MaxValues.Get(mt)
	}
	for _, c := range m.Countries {
		cr := countryResponse{ID: c.ID, Name: c.Name, Regions: make([]regionResponse, 0, len(c.Regions))}
		for _, rg := range c.Regions {
			cr.Regions = append(cr.Regions, regionResponse{ID: rg.ID, Name: rg.Name, Lng: rg.Lng, Lat: rg.Lat})
		}
		resp.Countries = append(resp.Countries, cr)
	}
	writeJSON(w, http.StatusOK, resp)
}

type cameraBody struct {
	Lng     float64 `json:"lng"`
	Lat     float64 `json:"lat"`
	Zoom    float64 `json:"zoom"`
	Bearing float64 `json:"bearing"`
	Pitch   float64 `json:"pitch"`
	Width   int     `json:"width,omitempty"`
	Height  int     `json:"height,omitempty"`
}

type refResponse struct {
	Country int `json:"country"`
	Region  int `json:"region"`
}

type stateResponse struct {
	Day         float64       `json:"day"`
	Date        string        `json:"date"`
	Row         string        `json:"row"`
	Mode        string        `json:"mode"`
	Playing     bool          `json:"playing"`
	Selection   []refResponse `json:"selection"`
	Camera      cameraBody    `json:"camera"`
	PickerReady bool          `json:"pickerReady"`
}

// state must run on the loop.
func (s *Server) state() stateResponse {
	sc := s.scope
	cam := s.m.Camera()

	sel := sc.Selection()
	refs := make([]refResponse, len(sel))
	for i, ref := range sel {
		refs[i] = refResponse{Country: ref.Country, Region: ref.Region}
	}

	return stateResponse{
		Day:       sc.Day(),
		Date:      sc.Date(),
		Row:       sc.Row().String(),
		Mode:      sc.DeltaMode().String(),
		Playing:   sc.IsPlaying(),
		Selection: refs,
		Camera: cameraBody{
			Lng:     cam.Center.Lng,
			Lat:     cam.Center.Lat,
			Zoom:    cam.Zoom,
			Bearing: cam.Bearing,
			Pitch:   cam.Pitch,
			Width:   cam.Width,
			Height:  cam.Height,
		},
		PickerReady: sc.PickerValid(),
	}
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, func() error { return nil })
}

func (s *Server) getFrame(w http.ResponseWriter, r *http.Request) {
	var img *image.RGBA
	err := s.loop.Do(r.Context(), func() {
		s.scope.Refresh()
		img = s.snap.Image()
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if img.Bounds().Empty() {
		s.fail(w, r, fmt.Errorf("%w: viewport is empty", errBadRequest))
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		s.fail(w, r, fmt.Errorf("encode frame: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func queryInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0, fmt.Errorf("%w: query %s: %v", errBadRequest, name, err)
	}
	return v, nil
}

type pickResponse struct {
	Hit     bool           `json:"hit"`
	Region  *refResponse   `json:"region,omitempty"`
	Tooltip *scope.Tooltip `json:"tooltip,omitempty"`
}

func (s *Server) getPick(w http.ResponseWriter, r *http.Request) {
	x, err := queryInt(r, "x")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	y, err := queryInt(r, "y")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var resp pickResponse
	err = s.loop.Do(r.Context(), func() {
		tip, ok := s.scope.Hover(x, y)
		if !ok {
			return
		}
		resp.Hit = true
		resp.Region = &refResponse{Country: tip.Region.Country, Region: tip.Region.Region}
		resp.Tooltip = &tip
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) postCamera(w http.ResponseWriter, r *http.Request) {
	var body cameraBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.Width < 0 || body.Height < 0 {
		s.fail(w, r, fmt.Errorf("%w: negative viewport", errBadRequest))
		return
	}

	s.do(w, r, func() error {
		if body.Width > 0 && body.Height > 0 {
			s.m.Resize(body.Width, body.Height)
		}
		s.m.Jump(camera.State{
			Center:  camera.LngLat{Lng: body.Lng, Lat: body.Lat},
			Zoom:    body.Zoom,
			Bearing: body.Bearing,
			Pitch:   body.Pitch,
		})
		return nil
	})
}

type dayBody struct {
	Day float64 `json:"day"`
}

func (s *Server) postDay(w http.ResponseWriter, r *http.Request) {
	var body dayBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	s.do(w, r, func() error {
		s.scope.SetDay(body.Day)
		return nil
	})
}

type rowBody struct {
	Row string `json:"row"`
}

func (s *Server) postRow(w http.ResponseWriter, r *http.Request) {
	var body rowBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	row, err := stats.ParseRow(body.Row)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	s.do(w, r, func() error {
		s.scope.SetRow(row)
		return nil
	})
}

type modeBody struct {
	Mode string `json:"mode"`
}

func (s *Server) postMode(w http.ResponseWriter, r *http.Request) {
	var body modeBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	mode, err := stats.ParseDeltaMode(body.Mode)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	s.do(w, r, func() error {
		s.scope.SetDeltaMode(mode)
		return nil
	})
}

func (s *Server) postPlay(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, func() error {
		s.scope.Play()
		return nil
	})
}

func (s *Server) postPause(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, func() error {
		s.scope.Pause()
		return nil
	})
}

// selectBody selects one region, or the whole country when Region is
// omitted. Focus moves the camera onto the selection.
type selectBody struct {
	Country int  `json:"country"`
	Region  *int `json:"region"`
	Focus   bool `json:"focus"`
}

func (s *Server) postSelect(w http.ResponseWriter, r *http.Request) {
	var body selectBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}

	s.do(w, r, func() error {
		m := s.scope.Model()
		c := m.Country(body.Country)
		if c == nil {
			return fmt.Errorf("%w: unknown country %d", errBadRequest, body.Country)
		}

		var focus []*stats.Region
		if body.Region == nil {
			s.scope.SelectCountry(c.ID)
			focus = c.Regions
		} else {
			rg := m.Region(stats.RegionRef{Country: c.ID, Region: *body.Region})
			if rg == nil {
				return fmt.Errorf("%w: unknown region %d of country %d", errBadRequest, *body.Region, c.ID)
			}
			s.scope.SelectRegion(rg.Ref())
			focus = []*stats.Region{rg}
		}

		if body.Focus {
			s.focusOn(focus)
		}
		return nil
	})
}

// focusOn centers the camera on the mean position of regions, keeping zoom,
// bearing and pitch.
func (s *Server) focusOn(regions []*stats.Region) {
	if len(regions) == 0 {
		return
	}
	var lng, lat float64
	for _, rg := range regions {
		lng += rg.Lng
		lat += rg.Lat
	}
	n := float64(len(regions))

	st := s.m.Camera()
	st.Center = camera.LngLat{Lng: lng / n, Lat: lat / n}
	s.m.Jump(st)
}

func (s *Server) postDeselect(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, func() error {
		s.scope.Deselect()
		return nil
	})
}

type clickBody struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// postClick selects the clicked region, or clears the selection when the
// click hit no column.
func (s *Server) postClick(w http.ResponseWriter, r *http.Request) {
	var body clickBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	s.do(w, r, func() error {
		ref, ok := s.scope.Click(body.X, body.Y)
		if ok {
			s.scope.SelectRegion(ref)
		} else {
			s.scope.Deselect()
		}
		return nil
	})
}
