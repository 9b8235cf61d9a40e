package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/matt-g-everett/ansitx/stream"
	"pkt.systems/pslog"
)

const shutdownTimeout = 5 * time.Second

// Opener resolves animation names into streamers.
type Opener interface {
	Names() []string
	Open(ctx context.Context, name string, opts stream.Options) (*stream.Streamer, error)
}

// Api serves animations to terminal clients over HTTP.
type Api struct {
	opener Opener
	router chi.Router
}

// NewApi creates an Api backed by opener.
func NewApi(opener Opener) *Api {
	a := new(Api)
	a.opener = opener

	r := chi.NewRouter()
	r.Use(withRequestLogging)
	r.Get("/", a.handleIndex)
	r.Get("/healthz", a.handleHealth)
	r.Get("/a", a.handleList)
	r.Get("/a/{name}", a.handleStream)
	a.router = r
	return a
}

// ServeHTTP implements http.Handler.
func (a *Api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Serve listens on addr until ctx is cancelled.
func (a *Api) Serve(ctx context.Context, addr string) error {
	logger := pslog.Ctx(ctx)
	server := &http.Server{
		Addr:     addr,
		Handler:  a,
		ErrorLog: pslog.LogLoggerWithLevel(logger, pslog.ErrorLevel),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("http server listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *Api) handleIndex(w http.ResponseWriter, r *http.Request) {
	if isBrowser(r) {
		writeText(w, http.StatusOK, browserHint)
		return
	}
	writeText(w, http.StatusOK, indexText)
}

func (a *Api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

func (a *Api) handleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(a.opener.Names())
}

func (a *Api) handleStream(w http.ResponseWriter, r *http.Request) {
	if isBrowser(r) {
		writeText(w, http.StatusOK, browserHint)
		return
	}
	name := chi.URLParam(r, "name")
	opts, err := parseStreamOptions(r.URL.Query())
	if err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}

	log := pslog.Ctx(r.Context()).With("animation", name, "transport", "http")
	ctx := pslog.ContextWithLogger(r.Context(), log)
	streamer, err := a.opener.Open(ctx, name, opts)
	if err != nil {
		log.Warn("animation open failed", "err", err)
		writeText(w, statusFor(err), err.Error())
		return
	}

	annotateStream(r.Context(), name, streamer.ID)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := streamer.Run(ctx, w); err != nil {
		log.Debug("http stream ended", "err", err)
	}
}

// parseStreamOptions reads delay, alt, banner and color query parameters.
func parseStreamOptions(q url.Values) (stream.Options, error) {
	var opts stream.Options
	if v := q.Get("delay"); v != "" {
		delay, err := strconv.ParseFloat(v, 64)
		if err != nil || delay <= 0 || delay > stream.MaxDelay {
			return opts, fmt.Errorf("delay must be a number in (0, %v]", stream.MaxDelay)
		}
		opts.Delay = delay
	}
	if v := q.Get("alt"); v != "" {
		alt, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New("alt must be a boolean")
		}
		opts.AltScreen = &alt
	}
	if v := q.Get("banner"); v != "" {
		if _, err := stream.ParseBannerKind(v); err != nil {
			return opts, errors.New("banner must be block, big or ticker")
		}
		opts.Banner = v
	}
	if v := q.Get("color"); v != "" {
		colour, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New("color must be a boolean")
		}
		opts.NoColour = !colour
	}
	return opts, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, stream.ErrUnknownAnimation):
		return http.StatusNotFound
	case errors.Is(err, stream.ErrNotFound), errors.Is(err, stream.ErrInvalidFormat):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if len(text) > 0 && text[len(text)-1] != '\n' {
		text += "\n"
	}
	_, _ = w.Write([]byte(text))
}
