// Copyright 2018-2019 CERN
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// In applying this license, CERN does not waive the privileges and immunities
// granted to it by virtue of its status as an Intergovernmental Organization
// or submit itself to any jurisdiction.

// Command workpkgsvcd runs the work package service: it wires every
// collaborator explicitly (no plugin registry, no DI container, per the
// service's design notes) and serves HTTP until signalled to stop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/sdk/trace"

	wpshttp "github.com/bioarchive/workpkgsvc/internal/http"
	"github.com/bioarchive/workpkgsvc/pkg/accessoracle"
	"github.com/bioarchive/workpkgsvc/pkg/appctx"
	"github.com/bioarchive/workpkgsvc/pkg/config"
	"github.com/bioarchive/workpkgsvc/pkg/dataset"
	datasetmongo "github.com/bioarchive/workpkgsvc/pkg/dataset/mongostore"
	"github.com/bioarchive/workpkgsvc/pkg/datasetfeed"
	"github.com/bioarchive/workpkgsvc/pkg/identity"
	"github.com/bioarchive/workpkgsvc/pkg/manager"
	"github.com/bioarchive/workpkgsvc/pkg/tokencodec"
	"github.com/bioarchive/workpkgsvc/pkg/workpackage"
	workpackagemongo "github.com/bioarchive/workpkgsvc/pkg/workpackage/mongostore"
)

var configFlag = flag.String("c", "/etc/workpkgsvcd/workpkgsvcd.yaml", "set configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %s\n", err.Error())
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	ctx := appctx.WithLogger(context.Background(), &log)

	mongoClient, err := connectMongo(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("error connecting to mongo")
		os.Exit(1)
	}
	defer mongoClient.Disconnect(ctx) //nolint:errcheck

	db := mongoClient.Database("workpkgsvc")
	datasetStore := datasetmongo.New(db)
	workpackageStore := workpackagemongo.New(db)

	codec, err := tokencodec.New(cfg.WorkPackageSigningKey)
	if err != nil {
		log.Error().Err(err).Msg("error parsing work package signing key")
		os.Exit(1)
	}

	identityVerifier, err := identity.New(cfg.AuthKey, cfg.AuthAlgs)
	if err != nil {
		log.Error().Err(err).Msg("error parsing internal assertion verification key")
		os.Exit(1)
	}
	oracle := accessoracle.New(cfg.AccessURL)

	mgr := manager.New(
		identityVerifier,
		datasetStore,
		workpackageStore,
		oracle,
		codec,
		cfg.ServiceInstanceID,
		time.Duration(cfg.ValidDays)*24*time.Hour,
	)

	tracerProvider := trace.NewTracerProvider()
	defer tracerProvider.Shutdown(ctx) //nolint:errcheck

	server := wpshttp.New(mgr, wpshttp.Options{
		Logger:             log,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Tracer:             tracerProvider.Tracer("workpkgsvc"),
	})

	subscriberDone := make(chan error, 1)
	subscriber := newSubscriber(cfg, datasetStore)
	subCtx, cancelSub := context.WithCancel(ctx)
	defer cancelSub()
	go func() { subscriberDone <- subscriber.Run(subCtx) }()

	if cfg.SweepEnabled {
		go runSweeper(subCtx, &log, workpackageStore, time.Duration(cfg.SweepInterval)*time.Second)
	}

	httpServer := &http.Server{Addr: cfg.Address, Handler: server}
	go func() {
		log.Info().Str("address", cfg.Address).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	cancelSub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down http server")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Int("pid", os.Getpid()).Logger()
}

func connectMongo(ctx context.Context, cfg *config.Settings) (*mongo.Client, error) {
	timeout := time.Duration(cfg.MongoTimeoutSeconds) * time.Second
	connCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return mongo.Connect(connCtx, options.Client().ApplyURI(cfg.MongoDSN).SetTimeout(timeout))
}

func newSubscriber(cfg *config.Settings, store dataset.Store) *datasetfeed.Subscriber {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.KafkaServers,
		Topic:   cfg.DatasetChangeTopic,
		GroupID: cfg.ConsumerGroup,
	})

	sub := datasetfeed.New(reader, store, cfg.DatasetUpsertType, cfg.DatasetDeletionType)

	dlqWriter := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaServers...),
		Balancer: &kafka.LeastBytes{},
	}
	return sub.WithDeadLetter(dlqWriter, cfg.DatasetChangeTopic+"_dlq")
}

func runSweeper(ctx context.Context, log *zerolog.Logger, store *workpackagemongo.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Sweep(ctx, time.Now().UTC())
			if err != nil {
				log.Error().Err(err).Msg("sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int64("deleted", n).Msg("swept expired work packages")
			}
		}
	}
}

var _ workpackage.Store = (*workpackagemongo.Store)(nil)
