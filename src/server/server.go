package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"github.com/faculax/shanghai-commercial-bank/src/handler"
	"github.com/faculax/shanghai-commercial-bank/src/live"
	"github.com/faculax/shanghai-commercial-bank/src/service"
)

// NewRouter wires the import lifecycle and live pipeline onto the HTTP
// surface.
func NewRouter(svc *service.ImportService, pipeline *live.Pipeline) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/imports", func(r chi.Router) {
			r.Get("/", handler.ListImportsHandler(svc))
			r.Delete("/", handler.ClearImportsHandler(svc))
			r.Post("/upload", handler.UploadCSVHandler(svc))

			r.Route("/{importID}", func(r chi.Router) {
				r.Get("/", handler.GetImportHandler(svc))
				r.Delete("/", handler.DeleteImportHandler(svc))
				r.Post("/consolidate", handler.ConsolidateHandler(svc))
				r.Post("/documents/generate", handler.GenerateDocumentsHandler(svc))
				r.Post("/push", handler.PushHandler(svc))
				r.Get("/trades", handler.GetTradesHandler(svc))
				r.Get("/documents", handler.ListDocumentsHandler(svc))
				r.Get("/archive", handler.DownloadArchiveHandler(svc))
			})
		})

		r.Get("/documents/{documentID}", handler.DownloadDocumentHandler(svc))

		r.Route("/live", func(r chi.Router) {
			r.Post("/trades", handler.SubmitLiveTradeHandler(pipeline))
			r.Get("/trades/pending", handler.PendingTradesHandler(pipeline))
			r.Post("/flush", handler.FlushLiveTradesHandler(pipeline))
			r.Get("/config", handler.GetLiveConfigHandler(pipeline))
			r.Put("/config", handler.UpdateLiveConfigHandler(pipeline))
			r.Get("/feed", handler.LiveFeedHandler(pipeline))
		})
	})

	return r
}

// StartServer runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully and stops the live pipeline's scheduled jobs.
func StartServer(port string, svc *service.ImportService, pipeline *live.Pipeline) {
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: NewRouter(svc, pipeline),
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	pipeline.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
