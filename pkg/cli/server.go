package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mchmarny/duanju/pkg/data"
	"github.com/mchmarny/duanju/pkg/exercise"
	"github.com/mchmarny/duanju/pkg/logging"
	"github.com/mchmarny/duanju/pkg/segment"
	"github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 30
	serverMaxHeaderBytes      = 20
	serverMaxBodyBytes        = 1 << 16
	serverPortDefault         = 8080
)

var (
	portFlag = &cli.IntFlag{
		Name:  "port",
		Usage: "Port on which the server will listen",
		Value: serverPortDefault,
	}

	logJSONFlag = &cli.BoolFlag{
		Name:  "log-json",
		Usage: "Write server logs as JSON",
	}

	serverCmd = &cli.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start local HTTP scoring server",
		Action:  cmdStartServer,
		Flags: []cli.Flag{
			portFlag,
			logJSONFlag,
		},
	}
)

func cmdStartServer(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)
	address := fmt.Sprintf("127.0.0.1:%d", cmd.Int(portFlag.Name))

	logger := slog.Default()
	if cmd.Bool(logJSONFlag.Name) {
		level := "info"
		if cfg.Debug {
			level = "debug"
		}
		logger = logging.NewServerLogger(os.Stderr, level)
	}

	s := &http.Server{
		Addr:           address,
		Handler:        logRequests(logger, makeRouter(cfg)),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("server started", "address", "http://"+address)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("starting server: %w", err)
		}
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("error shutting down server", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

func makeRouter(cfg *appConfig) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("POST /api/score", scoreAPIHandler(cfg))
	mux.HandleFunc("GET /api/history", historyAPIHandler(cfg.DB))
	mux.HandleFunc("GET /api/history/{id}", attemptAPIHandler(cfg.DB))
	mux.HandleFunc("GET /api/stats", statsAPIHandler(cfg.DB))

	return mux
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
}

type scoreRequest struct {
	Sentence   string `json:"sentence"`
	Answer     string `json:"answer"`
	Breaks     []int  `json:"breaks"`
	Source     string `json:"source,omitempty"`
	ExerciseID int64  `json:"exercise_id,omitempty"`
	Save       bool   `json:"save,omitempty"`
}

type scoreResponse struct {
	Text      string `json:"text"`
	AttemptID string `json:"attempt_id,omitempty"`
	segment.Result
}

func scoreAPIHandler(cfg *appConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, serverMaxBodyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Sentence == "" || req.Answer == "" {
			writeError(w, http.StatusBadRequest, "sentence and answer are required")
			return
		}
		src, err := parseSourceOrDefault(req.Source)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var e *exercise.Exercise
		if req.Save {
			if req.ExerciseID <= 0 {
				writeError(w, http.StatusBadRequest, "exercise_id is required to save an attempt")
				return
			}
			if e, err = exercise.New(exercise.Record{ID: req.ExerciseID, Content: req.Sentence, Answer: req.Answer}, src); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		chars := segment.Chars(req.Sentence)
		res := scoreBreaks(cfg, chars, req.Answer, req.Breaks, src)
		out := &scoreResponse{
			Text:   segment.TextFromBreaks(chars, res.UserBreaks, cfg.Config.Marker),
			Result: res,
		}

		if e != nil {
			a := data.NewAttempt(e, res)
			if err := data.SaveAttempt(cfg.DB, a); err != nil {
				slog.Error("failed to save attempt", "error", err)
				writeError(w, http.StatusInternalServerError, "failed to save attempt")
				return
			}
			out.AttemptID = a.ID
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func attemptAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := data.GetAttempt(db, r.PathValue("id"))
		if err != nil {
			if errors.Is(err, data.ErrAttemptNotFound) {
				writeError(w, http.StatusNotFound, "attempt not found")
				return
			}
			slog.Error("failed to get attempt", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get attempt")
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func historyAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := &data.AttemptCriteria{Limit: historyLimitDefault}
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			q.Limit = n
		}
		if v := r.URL.Query().Get("source"); v != "" {
			src, err := exercise.ParseSource(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			s := string(src)
			q.Source = &s
		}

		list, err := data.ListAttempts(db, q)
		if err != nil {
			slog.Error("failed to list attempts", "error", err)
			writeError(w, http.StatusInternalServerError, "error querying attempts")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func statsAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		stats, err := data.GetStats(db)
		if err != nil {
			slog.Error("failed to get stats", "error", err)
			writeError(w, http.StatusInternalServerError, "error querying stats")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
