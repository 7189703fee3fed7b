package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/sognelys/hanport/pkg/hanport"
	"github.com/sognelys/hanport/pkg/hanport/config"
	"github.com/sognelys/hanport/pkg/hanport/output"
	"github.com/sognelys/hanport/pkg/hanport/source"
	"github.com/sognelys/hanport/pkg/hanport/status"
	"github.com/sognelys/hanport/pkg/util"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	configFile := flag.String("config", "hanport.yaml", "YAML config file")
	verbose := flag.Bool("v", false, "debug logging")
	quiet := flag.Bool("quiet", false, "suppress telegram JSON on stdout")

	flag.Parse()
	if *verbose {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}

	configContents, err := os.ReadFile(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("error reading config file")
	}
	var cfg config.Config
	if err := yaml.Unmarshal(configContents, &cfg); err != nil {
		log.Fatal().Err(err).Msg("error unmarshaling yaml file")
	}

	var src source.Source
	kind := cfg.Source.Kind
	if cfg.Source.Path != "" {
		kind = "file"
	}

	switch kind {
	case "file":
		log.Info().Str("source", "file").Str("path", cfg.Source.Path).Msg("opening source...")
		f, err := source.NewFile(cfg.Source.Path, cfg.Source.Chunk,
			time.Duration(cfg.Source.DelayMS)*time.Millisecond)
		if err != nil {
			log.Fatal().Str("source", "file").Err(err).Msg("failed to open capture file")
		}
		defer f.Close()
		src = f
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	default:
		kind = "serial"
		log.Info().Str("source", "serial").Str("device", cfg.Source.Device).Msg("opening source...")
		p, err := source.OpenSerial(cfg.Source.Device, cfg.Source.Baud)
		if err != nil {
			log.Fatal().Str("source", "serial").Err(err).Msg("failed to open serial port")
		}
		defer p.Close()
		src = p
	}

	var writeAPI api.WriteAPI = &util.MockWriteAPI{}
	if cfg.InfluxDB.URL != "" {
		writeAPI = influxdb2.NewClient(cfg.InfluxDB.URL, "").
			WriteAPI(cfg.InfluxDB.Organization, cfg.InfluxDB.Bucket)
	}
	measurement := cfg.InfluxDB.Measurement
	if measurement == "" {
		measurement = "han"
	}

	opts := []hanport.Option{
		hanport.WithLogger(log.Logger),
		hanport.WithInfluxDB(writeAPI, measurement),
		hanport.WithSourceKind(kind),
	}
	if cfg.Source.Chunk > 0 {
		opts = append(opts, hanport.WithChunkSize(cfg.Source.Chunk))
	}
	reader := hanport.NewReader(src, opts...)

	var outputs []output.Output
	if !*quiet {
		outputs = append(outputs, output.NewWriter(os.Stdout))
	}
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer nc.Close()
		subject := cfg.NATS.Subject
		if subject == "" {
			subject = "han.telegram"
		}
		outputs = append(outputs, output.NewNATS(nc, subject))
	}

	var statusServer *status.Server
	if cfg.Status.Listen != "" {
		statusServer = status.NewServer(cfg.Status.Listen, reader.Stats)
	}

	eg, ctx := errgroup.WithContext(context.Background())
	ctx, cancel := context.WithCancel(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	eg.Go(func() error {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	for _, out := range outputs {
		thisOutput := out
		eg.Go(func() error {
			err := thisOutput.Start(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if statusServer != nil {
		eg.Go(func() error {
			return statusServer.Run(ctx)
		})
	}

	eg.Go(func() error {
		defer cancel()
		for {
			t, err := reader.Next(ctx)
			if err != nil {
				if hanport.IsDecodeError(err) {
					// The frame checked out but its APDU did not; for a
					// long-running collector the right policy is to log and
					// keep listening.
					log.Warn().Err(err).Msg("undecodable frame")
					continue
				}
				if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
					stats := reader.Stats()
					log.Info().
						Uint64("accepted", stats.FramesAccepted).
						Uint64("rejected", stats.FramesRejected).
						Uint64("bytes", stats.BytesRead).
						Msg("source drained")
					return nil
				}
				return err
			}

			if statusServer != nil {
				statusServer.SetLast(t)
			}

			skippedOutputs := 0
			for _, out := range outputs {
				select {
				case out.Receive() <- t:
					// We will not wait on blocked channels.
				default:
					skippedOutputs++
				}
			}
			if skippedOutputs > 0 {
				log.Debug().Int("skipped_outputs", skippedOutputs).Msg("slow outputs skipped")
			}
		}
	})

	if err := eg.Wait(); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("exited program")
	}
}
