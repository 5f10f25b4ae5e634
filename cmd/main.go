package main

import (
	"fmt"
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/faculax/shanghai-commercial-bank/src/database"
	"github.com/faculax/shanghai-commercial-bank/src/live"
	"github.com/faculax/shanghai-commercial-bank/src/server"
	"github.com/faculax/shanghai-commercial-bank/src/service"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "fxconsolidator"
	app.Usage = "FX trade consolidation service command line interface"
	app.Version = Version

	app.Commands = []cli.Command{
		serveCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var serveCMD = cli.Command{
	Name:        "serve",
	Usage:       "run the consolidation API server",
	Action:      serveAction,
	ArgsUsage:   "",
	Flags:       []cli.Flag{},
	Description: `Run the trade import API with the live intake pipeline`,
}

func serveAction(_ *cli.Context) error {
	setupLogger()

	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		return err
	}

	svc := service.NewImportService(database.MainDB)
	pipeline := live.NewPipeline(svc)
	pipeline.Reconfigure(live.GetConfig())

	server.StartServer(server.GetConfig().Port, svc, pipeline)
	return nil
}

func setupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.InfoLevel
	}

	logger.SetLevel(level)
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		logger.SetFormatter(&logger.JSONFormatter{})
	} else {
		logger.SetFormatter(&logger.TextFormatter{
			FullTimestamp: true,
		})
	}
}
