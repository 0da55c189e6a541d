package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizhub-service/internal/app"
	"quizhub-service/internal/logger"
)

// Handler serves the quiz attempt API over REST and websockets.
type Handler struct {
	service  *app.QuizService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewHandler(service *app.QuizService, l *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.OrNop(l),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes builds the chi router.
func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(h.accessLog)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(IdentityMiddleware)

		r.Get("/quizzes/{quizID}", h.getQuiz)
		r.Post("/quizzes/{quizID}/attempts", h.startAttempt)

		r.Route("/attempts/{attemptID}", func(r chi.Router) {
			r.Get("/", h.getAttempt)
			r.Delete("/", h.discardAttempt)
			r.Post("/answers", h.selectOption)
			r.Post("/navigation", h.navigate)
			r.Post("/submit", h.submit)
			r.Get("/ws", h.ServeWS)
		})

		r.Get("/submissions/{submissionID}/review", h.review)
		r.Get("/users/{userID}/history", h.history)
		r.Get("/users/{userID}/quizzes/{quizID}/best", h.bestResult)
		r.Get("/leaderboard", h.leaderboard)
	})
	return router
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
