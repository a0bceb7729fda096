package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/taskboard-api/internal/api"
	apiMiddleware "github.com/phrazzld/taskboard-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	completedHandler := api.NewCompletedTaskHandler(
		app.completedService,
		app.config.Job.ArchiveThresholdDays,
		app.logger,
	)
	userHandler := api.NewUserHandler(app.userStore, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Task endpoints
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", taskHandler.Create)
			r.Get("/", taskHandler.ListByUser)
			r.Post("/bulk-assign", taskHandler.BulkAssign)
			r.Get("/statistics", taskHandler.Statistics)
			r.Get("/overdue", taskHandler.Overdue)

			r.Get("/{id}", taskHandler.Get)
			r.Patch("/{id}", taskHandler.Update)
			r.Delete("/{id}", taskHandler.Delete)
			r.Post("/{id}/complete", taskHandler.Complete)
			r.Post("/{id}/restore", taskHandler.Restore)
		})

		// Completed-task view endpoints
		r.Route("/completed-tasks", func(r chi.Router) {
			r.Get("/", completedHandler.Recent)
			r.Get("/report", completedHandler.Report)
			r.Get("/{id}", completedHandler.Get)
			r.Post("/{id}/archive", completedHandler.Archive)
		})

		// User endpoints
		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.Create)
			r.Get("/", userHandler.List)
			r.Get("/{id}", userHandler.Get)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
