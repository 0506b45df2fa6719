package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hendrikreh/chessmate/internal/config"
	"github.com/hendrikreh/chessmate/internal/openings"
	"github.com/hendrikreh/chessmate/internal/queryfilter"
	"github.com/hendrikreh/chessmate/internal/repository"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "help", false, "Show help information")
	flag.BoolVar(&showHelp, "h", false, "Show help information")
	flag.Parse()

	if showHelp {
		showHelpMessage()
		return
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	pool, err := repository.Open(cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database pool")
	}
	defer pool.Close()
	repo := repository.New(pool)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", healthHandler(repo)).Methods(http.MethodGet)
	router.HandleFunc("/games/search", searchHandler(repo)).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting chessmate query server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down query server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("query server exited")
}

func healthHandler(repo *repository.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := repo.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"capacity": stats.Capacity,
			"in_use":   stats.InUse,
			"waiting":  stats.Waiting,
		})
	}
}

// searchHandler dispatches to C3's free-text filter inference, then C6's
// search_games, merging the whitelisted query-string fields on top of
// whatever the text implied (spec §4.6's query path).
func searchHandler(repo *repository.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var filters []queryfilter.Filter

		if text := q.Get("q"); text != "" {
			for _, f := range openings.FiltersForText(strings.ToLower(text)) {
				if f.Field == "opening" {
					filters = append(filters, queryfilter.Filter{Field: f.Field, Value: f.Value})
				}
			}
		}
		for _, field := range []string{"opening", "white", "black", "event", "eco"} {
			if v := q.Get(field); v != "" {
				filters = append(filters, queryfilter.Filter{Field: field, Value: v})
			}
		}

		limit := 20
		if l := q.Get("limit"); l != "" {
			fmt.Sscanf(l, "%d", &limit)
		}

		games, err := repo.SearchGames(r.Context(), filters, queryfilter.RatingFilter{}, limit)
		if err != nil {
			http.Error(w, "search failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(games)
	}
}

func showHelpMessage() {
	fmt.Println(`chessmate-server

DESCRIPTION:
    Thin HTTP shell exposing pool health and game search over the
    chessmate ingestion/embedding pipeline.

USAGE:
    chessmate-server [OPTIONS]

OPTIONS:
    -h, --help    Show this help message

CONFIGURATION:
    Configured entirely through environment variables: DATABASE_URL,
    OPENAI_API_KEY (required by the shared config loader),
    CHESSMATE_DB_POOL_SIZE, CHESSMATE_SERVER_HOST, CHESSMATE_SERVER_PORT.

ENDPOINTS:
    GET /healthz       pool {capacity, in_use, waiting} snapshot
    GET /games/search  text + whitelisted field filters over games
`)
}
