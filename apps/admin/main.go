package main

import (
	"os"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	"github.com/trezcool/academia/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewZerolog(conf).With().Str("component", "admin").Logger()

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal().Err(err).Msg("creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening database")
	}

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
		out:     os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error().Err(err).Msg("command failed")
		}
		os.Exit(1)
	}
}
