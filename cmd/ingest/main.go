package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hendrikreh/chessmate/internal/config"
	"github.com/hendrikreh/chessmate/internal/metadata"
	"github.com/hendrikreh/chessmate/internal/pgn"
	"github.com/hendrikreh/chessmate/internal/repository"
)

type options struct {
	DB       string `long:"db" description:"database DSN, overrides DATABASE_URL" value-name:"dsn"`
	File     string `long:"file" short:"f" description:"read PGN from file, rather than stdin" value-name:"path"`
	Stdin    bool   `long:"stdin" description:"read PGN from stdin (default when --file is omitted)"`
	PoolSize int    `long:"pool-size" description:"connection pool size, overrides CHESSMATE_DB_POOL_SIZE" value-name:"n"`
	Help     bool   `long:"help" short:"h" description:"show this help"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[options]"
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		return
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	dsn := cfg.Database.URL
	if opts.DB != "" {
		dsn = opts.DB
	}
	poolSize := cfg.Database.PoolSize
	if opts.PoolSize > 0 {
		poolSize = opts.PoolSize
	}

	pool, err := repository.Open(dsn, poolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database pool")
	}
	defer pool.Close()
	repo := repository.New(pool)

	var reader io.Reader = os.Stdin
	if opts.File != "" {
		f, err := os.Open(opts.File)
		if err != nil {
			log.Fatal().Err(err).Str("file", opts.File).Msg("failed to open PGN file")
		}
		defer f.Close()
		reader = f
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read PGN input")
	}

	ctx := context.Background()
	inserted, total := 0, 0
	err = pgn.FoldGames(string(raw), func(index int, err error) bool {
		log.Error().Err(err).Int("game_index", index).Msg("failed to parse game, skipping")
		total++
		return true
	}, func(gr pgn.GameResult) error {
		total++
		md := metadata.Extract(gr.Game.Headers)
		gameID, n, err := repo.InsertGame(ctx, md, gr.Raw, gr.Game.Moves)
		if err != nil {
			log.Error().Err(err).Int("game_index", gr.Index).Msg("failed to insert game, skipping")
			return nil
		}
		log.Info().Str("game_id", gameID).Int("positions", n).Msg("ingested game")
		inserted++
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse PGN")
	}

	log.Info().Int("ingested", inserted).Int("total", total).Msg("ingestion complete")
}
