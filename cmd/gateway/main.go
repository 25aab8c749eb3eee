package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	api "github.com/sirdavid001/online-exam-system/internal/api/http"
	auth "github.com/sirdavid001/online-exam-system/internal/auth/middleware"
	"github.com/sirdavid001/online-exam-system/internal/config"
	"github.com/sirdavid001/online-exam-system/internal/db"
	"github.com/sirdavid001/online-exam-system/internal/exam"
	"github.com/sirdavid001/online-exam-system/internal/rbac"
	"github.com/sirdavid001/online-exam-system/internal/session"
	"github.com/sirdavid001/online-exam-system/internal/storage"
	syncx "github.com/sirdavid001/online-exam-system/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := exam.NewSQLStore(dbh, cfg.DBDriver)

	// --- Sessions ---
	var sessions session.Store
	switch cfg.SessionBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
	default:
		sessions = session.NewMemoryStore()
	}

	svc := exam.NewService(store, sessions)
	events := syncx.NewEventRepo(dbh, cfg.SiteID)

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, true))

		// Student flow
		pr.With(rbac.Require("course:view")).
			Get("/courses", api.ListCoursesHandler(store))
		pr.With(rbac.Require("course:view")).
			Get("/courses/{courseID}/summary", api.CourseSummaryHandler(store, svc))
		pr.With(rbac.Require("attempt:start")).
			Post("/courses/{courseID}/attempts", api.StartAttemptHandler(svc))
		pr.With(rbac.Require("attempt:submit")).
			Post("/courses/{courseID}/attempts/submit", api.SubmitAttemptHandler(svc, events))
		pr.With(rbac.Require("result:view-own")).
			Get("/courses/{courseID}/results", api.MyResultsHandler(store))

		// Teacher surface
		pr.With(rbac.Require("course:create")).
			Post("/teacher/courses", api.CreateCourseHandler(store))
		pr.With(rbac.Require("course:view")).
			Get("/teacher/courses", api.ListAllCoursesHandler(store))
		pr.With(rbac.Require("course:update")).
			Put("/teacher/courses/{courseID}", api.UpdateCourseHandler(store))
		pr.With(rbac.Require("course:delete")).
			Delete("/teacher/courses/{courseID}", api.DeleteCourseHandler(store))

		pr.With(rbac.Require("question:create")).
			Post("/teacher/courses/{courseID}/questions", api.AddQuestionHandler(store))
		pr.With(rbac.Require("question:create")).
			Post("/teacher/courses/{courseID}/questions/upload", api.UploadQuestionsHandler(store, bs, events))
		pr.With(rbac.Require("question:view")).
			Get("/teacher/courses/{courseID}/questions", api.ListQuestionsHandler(store))
		pr.With(rbac.Require("question:view")).
			Get("/teacher/uploads/*", api.DownloadUploadHandler(bs))
		pr.With(rbac.Require("question:delete")).
			Delete("/teacher/questions/{questionID}", api.DeleteQuestionHandler(store))

		// Reporting
		pr.With(rbac.Require("result:view-all")).
			Get("/admin/results", api.ListResultsHandler(store))
		pr.With(rbac.Require("result:view-all")).
			Get("/admin/results/export", api.ExportResultsHandler(store))
		pr.With(rbac.Require("result:delete")).
			Delete("/admin/results/{resultID}", api.DeleteResultHandler(store))

		// Users (admin)
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s, sessions=%s)", cfg.HTTPAddr, cfg.DBDriver, cfg.SessionBackend)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
