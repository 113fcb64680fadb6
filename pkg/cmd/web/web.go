package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/igolaizola/timeslip/pkg/ambience"
	"github.com/igolaizola/timeslip/pkg/broadcast"
	"github.com/igolaizola/timeslip/pkg/filestore"
	"github.com/igolaizola/timeslip/pkg/narration"
	"github.com/igolaizola/timeslip/pkg/ngrok"
	"github.com/igolaizola/timeslip/pkg/openai"
	"github.com/igolaizola/timeslip/pkg/program"
	"github.com/igolaizola/timeslip/pkg/remote"
	"github.com/igolaizola/timeslip/pkg/script"
	"github.com/igolaizola/timeslip/pkg/video"
	"github.com/igolaizola/timeslip/pkg/youtube"
)

type Config struct {
	Debug bool
	Proxy string

	Addr        string
	Credentials map[string]string
	Delay       time.Duration

	OpenAIToken   string
	OpenAIBaseURL string
	Model         string
	SpeechModel   string
	Voice         string
	Language      string
	Segments      int

	YoutubeKey string

	// AmbienceFile is served to the client as its ambience loop.
	AmbienceFile string

	// Ngrok exposes the server through an ngrok tunnel.
	Ngrok    bool
	NgrokBin string

	FSType string
	FSConn string
}

//go:embed static/*
var staticContent embed.FS

type generator interface {
	Generate(ctx context.Context, period program.Period) (program.Program, error)
}

type synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type service struct {
	orchestrator *broadcast.Orchestrator
	device       *remote.Device
	generator    generator
	synth        synthesizer
	search       video.Searcher
}

// Serve starts the broadcast service.
func Serve(ctx context.Context, cfg *Config) error {
	log.Println("web: server started")
	defer log.Println("web: server ended")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	debug := func(format string, args ...interface{}) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	ai, err := openai.New(&openai.Config{
		Debug:       cfg.Debug,
		Token:       cfg.OpenAIToken,
		BaseURL:     cfg.OpenAIBaseURL,
		Proxy:       cfg.Proxy,
		Model:       cfg.Model,
		SpeechModel: cfg.SpeechModel,
		Voice:       cfg.Voice,
	})
	if err != nil {
		return fmt.Errorf("web: couldn't create openai client: %w", err)
	}
	var synth narration.Synthesizer = ai
	if cfg.FSType != "" {
		store, err := filestore.New(ctx, cfg.FSType, cfg.FSConn, cfg.Debug)
		if err != nil {
			return fmt.Errorf("web: couldn't create file storage: %w", err)
		}
		synth = narration.NewCache(ai, store, ai.Voice(), cfg.Debug)
		debug("web: narration cache enabled (%s)", cfg.FSType)
	}

	var search video.Searcher
	if cfg.YoutubeKey != "" {
		yt, err := youtube.New(ctx, cfg.YoutubeKey, cfg.Debug)
		if err != nil {
			return fmt.Errorf("web: couldn't create youtube client: %w", err)
		}
		search = yt
	} else {
		log.Println("web: no youtube key, music videos are skipped")
	}

	gen := script.New(ai, &script.Config{
		Debug:    cfg.Debug,
		Segments: cfg.Segments,
		Language: cfg.Language,
	})

	device := remote.New(cfg.Debug)
	amb := ambience.New(device.Ambience(), cfg.Debug)
	defer amb.Close()
	orchestrator := broadcast.New(&broadcast.Config{
		Debug: cfg.Debug,
		Delay: cfg.Delay,
	}, amb, narration.New(synth, device, amb, cfg.Debug), video.New(search, device, cfg.Debug), gen)
	go func() {
		if err := orchestrator.Run(ctx); err != nil {
			log.Printf("web: orchestrator stopped: %v\n", err)
		}
		cancel()
	}()

	mux, err := newRouter(&service{
		orchestrator: orchestrator,
		device:       device,
		generator:    gen,
		synth:        synth,
		search:       search,
	}, cfg)
	if err != nil {
		return err
	}

	// Create server
	split := strings.Split(cfg.Addr, ":")
	if len(split) != 2 {
		return fmt.Errorf("web: invalid address: %s", cfg.Addr)
	}
	host := split[0]
	port, err := strconv.Atoi(split[1])
	if err != nil {
		return fmt.Errorf("web: invalid port: %s", split[1])
	}
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: mux,
	}
	go func() {
		note := fmt.Sprintf("http://%s:%d", host, port)
		if host == "" {
			note = fmt.Sprintf("all interfaces http://localhost:%d", port)
		}
		log.Printf("Starting server on %s", note)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v\n", err)
			cancel()
		}
	}()

	if cfg.Ngrok {
		u, err := ngrok.Tunnel(ctx, &ngrok.Config{Bin: cfg.NgrokBin}, strconv.Itoa(port))
		if err != nil {
			log.Printf("web: couldn't open ngrok tunnel: %v\n", err)
		} else {
			log.Printf("web: tune in at %s\n", u)
		}
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("web: couldn't shutdown server: %v\n", err)
	}
	return nil
}

type searchResponse struct {
	VideoID string `json:"videoId,omitempty"`
}

type segmentResponse struct {
	program.Segment
	AppleMusicURL string `json:"appleMusicUrl,omitempty"`
}

type programResponse struct {
	Session  string            `json:"session,omitempty"`
	Index    int               `json:"index"`
	Segments []segmentResponse `json:"segments"`
}

type stateResponse struct {
	broadcast.State
	Cue      *remote.Cue `json:"cue,omitempty"`
	Ambience bool        `json:"ambience"`
}

func newRouter(s *service, cfg *Config) (http.Handler, error) {
	// Create static content
	staticFS, err := iofs.Sub(staticContent, "static")
	if err != nil {
		return nil, fmt.Errorf("web: couldn't load static content: %w", err)
	}

	// Create router
	mux := chi.NewRouter()

	// Add middleware
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)

	// Add BasicAuth middleware
	if len(cfg.Credentials) > 0 {
		mux.Use(middleware.BasicAuth("timeslip", cfg.Credentials))
	}

	// Handler to serve the static files
	mux.Get("/*", http.StripPrefix("/", http.FileServer(http.FS(staticFS))).ServeHTTP)
	if cfg.AmbienceFile != "" {
		mux.Get("/ambience.mp3", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, cfg.AmbienceFile)
		})
	}

	// Create subrouter for api endpoints
	r := mux.Group(func(r chi.Router) {
		if cfg.Debug {
			r.Use(middleware.Logger)
		}
	})

	// Generation and synthesis can take minutes, the rest must be quick.
	slow := r.With(middleware.Timeout(5 * time.Minute))
	fast := r.With(middleware.Timeout(30 * time.Second))

	slow.Post("/api/generate-script", func(w http.ResponseWriter, r *http.Request) {
		var period program.Period
		if err := json.NewDecoder(r.Body).Decode(&period); err != nil {
			http.Error(w, fmt.Sprintf("couldn't decode period: %v", err), http.StatusBadRequest)
			return
		}
		p, err := s.generator.Generate(r.Context(), period)
		if err != nil {
			log.Println("web: couldn't generate script:", err)
			http.Error(w, fmt.Sprintf("couldn't generate script: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"segments": p})
	})

	slow.Post("/api/tts", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("couldn't decode request: %v", err), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			http.Error(w, "missing text", http.StatusBadRequest)
			return
		}
		audio, err := s.synth.Synthesize(r.Context(), req.Text)
		if err != nil {
			log.Println("web: couldn't synthesize speech:", err)
			http.Error(w, fmt.Sprintf("couldn't synthesize speech: %v", err), http.StatusInternalServerError)
			return
		}
		writeAudio(w, audio)
	})

	fast.Post("/api/search-video", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Q string `json:"q"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("couldn't decode request: %v", err), http.StatusBadRequest)
			return
		}
		if s.search == nil {
			http.Error(w, "video search is not configured", http.StatusServiceUnavailable)
			return
		}
		id, err := s.search.Search(r.Context(), req.Q)
		if err != nil {
			log.Println("web: couldn't search video:", err)
			http.Error(w, fmt.Sprintf("couldn't search video: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, searchResponse{VideoID: id})
	})

	fast.Post("/api/program", func(w http.ResponseWriter, r *http.Request) {
		var period program.Period
		if err := json.NewDecoder(r.Body).Decode(&period); err != nil {
			http.Error(w, fmt.Sprintf("couldn't decode period: %v", err), http.StatusBadRequest)
			return
		}
		if err := s.orchestrator.Generate(r.Context(), period); err != nil {
			writeCommandError(w, err)
			return
		}
		writeState(w, s, http.StatusAccepted)
	})

	fast.Put("/api/program", func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, fmt.Sprintf("couldn't read program: %v", err), http.StatusBadRequest)
			return
		}
		p, err := program.Parse(b)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.orchestrator.Load(r.Context(), p); err != nil {
			writeCommandError(w, err)
			return
		}
		writeState(w, s, http.StatusOK)
	})

	fast.Get("/api/program", func(w http.ResponseWriter, r *http.Request) {
		st := s.orchestrator.State()
		p := s.orchestrator.Program()
		if p == nil {
			writeCommandError(w, broadcast.ErrNoProgram)
			return
		}
		resp := programResponse{
			Session:  st.Session,
			Index:    st.Index,
			Segments: make([]segmentResponse, 0, len(p)),
		}
		for _, seg := range p {
			resp.Segments = append(resp.Segments, segmentResponse{
				Segment:       seg,
				AppleMusicURL: seg.AppleMusicURL(),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	})

	fast.Get("/api/state", func(w http.ResponseWriter, r *http.Request) {
		writeState(w, s, http.StatusOK)
	})

	fast.Post("/api/segments/{index}/play", func(w http.ResponseWriter, r *http.Request) {
		i, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid index: %v", err), http.StatusBadRequest)
			return
		}
		if err := s.orchestrator.Play(r.Context(), i); err != nil {
			writeCommandError(w, err)
			return
		}
		writeState(w, s, http.StatusOK)
	})

	fast.Post("/api/next", func(w http.ResponseWriter, r *http.Request) {
		if err := s.orchestrator.Next(r.Context()); err != nil {
			writeCommandError(w, err)
			return
		}
		writeState(w, s, http.StatusOK)
	})

	fast.Post("/api/stop", func(w http.ResponseWriter, r *http.Request) {
		if err := s.orchestrator.Stop(r.Context()); err != nil {
			writeCommandError(w, err)
			return
		}
		writeState(w, s, http.StatusOK)
	})

	fast.Get("/api/cues/{id}/audio", func(w http.ResponseWriter, r *http.Request) {
		audio, err := s.device.Audio(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeAudio(w, audio)
	})

	fast.Post("/api/cues/{id}/started", func(w http.ResponseWriter, r *http.Request) {
		if err := s.device.Started(chi.URLParam(r, "id")); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	fast.Post("/api/cues/{id}/ended", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Error string `json:"error"`
		}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				http.Error(w, fmt.Sprintf("couldn't decode request: %v", err), http.StatusBadRequest)
				return
			}
		}
		var cause error
		if req.Error != "" {
			cause = errors.New(req.Error)
		}
		if err := s.device.Ended(chi.URLParam(r, "id"), cause); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux, nil
}

func writeState(w http.ResponseWriter, s *service, code int) {
	resp := stateResponse{
		State:    s.orchestrator.State(),
		Ambience: s.device.AmbiencePlaying(),
	}
	if c, ok := s.device.Current(); ok {
		resp.Cue = &c
	}
	writeJSON(w, code, resp)
}

func writeCommandError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, broadcast.ErrNoProgram):
		code = http.StatusConflict
	case errors.Is(err, broadcast.ErrOutOfRange):
		code = http.StatusNotFound
	case errors.Is(err, broadcast.ErrNoGenerate):
		code = http.StatusServiceUnavailable
	case errors.Is(err, program.ErrMalformedProgram), errors.Is(err, program.ErrInvalidPeriod):
		code = http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("web: couldn't encode response:", err)
	}
}

func writeAudio(w http.ResponseWriter, audio []byte) {
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	if _, err := w.Write(audio); err != nil {
		log.Println("web: couldn't write audio:", err)
	}
}
