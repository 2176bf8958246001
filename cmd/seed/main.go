package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"construction-api/internal/config"
	"construction-api/internal/logging"
	"construction-api/internal/store"
	"construction-api/pkg/importer"
)

const (
	dirFlagName       = "dir"
	suppliersFlagName = "suppliers"
	projectsFlagName  = "projects"
	driverFlagName    = "driver"
	uriFlagName       = "mongodb-uri"
	databaseFlagName  = "database"
	dsnFlagName       = "dsn"
	jsonFlagName      = "json"
)

func main() {
	_ = godotenv.Load()

	app := cli.NewApp()
	app.Name = "seed"
	app.Usage = "load suppliers and projects seed files into the document store"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  fmt.Sprintf("%s, d", dirFlagName),
			Usage: "directory holding suppliers.json and projects.json (or .xlsx)",
			Value: ".",
		},
		cli.StringFlag{
			Name:  suppliersFlagName,
			Usage: "suppliers file, relative to --dir",
		},
		cli.StringFlag{
			Name:  projectsFlagName,
			Usage: "projects file, relative to --dir",
		},
		cli.StringFlag{
			Name:  driverFlagName,
			Usage: "store driver (mongo, postgres, memory)",
		},
		cli.StringFlag{
			Name:  uriFlagName,
			Usage: "MongoDB connection string",
		},
		cli.StringFlag{
			Name:  databaseFlagName,
			Usage: "MongoDB database name",
		},
		cli.StringFlag{
			Name:  dsnFlagName,
			Usage: "PostgreSQL connection string",
		},
		cli.BoolFlag{
			Name:  jsonFlagName,
			Usage: "print the load summary as JSON",
		},
	}
	app.Action = seed

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seed(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}
	if c.IsSet(driverFlagName) {
		cfg.StoreDriver = c.String(driverFlagName)
	}
	if c.IsSet(uriFlagName) {
		cfg.MongoURI = c.String(uriFlagName)
	}
	if c.IsSet(databaseFlagName) {
		cfg.MongoDatabase = c.String(databaseFlagName)
	}
	if c.IsSet(dsnFlagName) {
		cfg.PostgresDSN = c.String(dsnFlagName)
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "validating configuration")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return errors.Wrap(err, "initializing logger")
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	db, err := store.Open(ctx, store.Options{
		Driver:         cfg.StoreDriver,
		MongoURI:       cfg.MongoURI,
		Database:       cfg.MongoDatabase,
		PostgresDSN:    cfg.PostgresDSN,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	cancel()
	if err != nil {
		return errors.Wrapf(err, "connecting to %s store", cfg.StoreDriver)
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}()

	summary := importer.Run(context.Background(), db, importer.Options{
		Dir:           c.String(dirFlagName),
		SuppliersFile: c.String(suppliersFlagName),
		ProjectsFile:  c.String(projectsFlagName),
	}, logger)

	if c.Bool(jsonFlagName) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(summary), "writing summary")
	}
	fmt.Printf("inserted %d, invalid %d, failed %d\n", summary.Inserted, summary.Invalid, summary.Failed)
	return nil
}
