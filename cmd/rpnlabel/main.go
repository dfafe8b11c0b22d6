package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-rpn/batch"
	"github.com/nvr-ai/go-rpn/config"
	"github.com/nvr-ai/go-rpn/dataset"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to YAML or JSON configuration file (or $RPN_CONFIG)")
		annotations = flag.String("annotations", "", "Annotation file or directory of annotation files")
		outputDir   = flag.String("output", "", "Output directory for target tensors")
		seed        = flag.Uint64("seed", 0, "Batch seed; overrides the configuration when set")
		workers     = flag.Int("workers", 0, "Images labeled concurrently; overrides the configuration when set")
		timeout     = flag.Duration("timeout", 30*time.Minute, "Run timeout duration")
		level       = flag.String("level", "info", "Log level (debug, info, warn, error)")
		envFile     = flag.String("env", ".env", "Optional .env file with RPN_* overrides")
		verify      = flag.Bool("verify", false, "Decode every image's targets and warn when boxes are lost")
		verifyIoU   = flag.Float64("verify-iou", 0.5, "Suppression IoU threshold used by -verify")
		strict      = flag.Bool("strict", false, "With -verify, fail the run when decoded targets lose boxes")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(*level)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	log.SetLevel(lvl)

	if err := config.LoadEnv(*envFile); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}

	if *configFile == "" {
		*configFile = os.Getenv(config.EnvConfig)
	}
	cfg := config.DefaultConfig()
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("Failed to apply environment: %v", err)
	}

	// Flags win over file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "annotations":
			cfg.Batch.Annotations = *annotations
		case "output":
			cfg.Batch.OutputDir = *outputDir
		case "seed":
			cfg.Batch.Seed = *seed
		case "workers":
			cfg.Batch.Workers = *workers
		case "verify":
			cfg.Batch.Verify.Enabled = *verify
		case "verify-iou":
			cfg.Batch.Verify.IoUThreshold = *verifyIoU
		case "strict":
			cfg.Batch.Verify.Strict = *strict
		}
	})

	if cfg.Batch.Annotations == "" {
		log.Fatal("Annotations path is required (-annotations)")
	}

	anns, err := dataset.Load(cfg.Batch.Annotations)
	if err != nil {
		log.Fatalf("Failed to load annotations: %v", err)
	}

	runner, err := batch.NewRunner(cfg, log)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	sink, err := batch.NpyWriter(cfg.Batch.OutputDir)
	if err != nil {
		log.Fatalf("Failed to prepare output: %v", err)
	}

	if v := cfg.Batch.Verify; v.Enabled {
		sink = batch.Verify(cfg.RPN, v.IoUThreshold, v.Strict, log, sink)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.WithFields(logrus.Fields{
		"images":  len(anns),
		"workers": cfg.Batch.Workers,
		"seed":    cfg.Batch.Seed,
		"output":  cfg.Batch.OutputDir,
	}).Info("labeling anchors")

	summary, runErr := runner.Run(ctx, anns, sink)

	if err := batch.WriteSummary(cfg.Batch.OutputDir, summary); err != nil {
		log.Errorf("Failed to write summary: %v", err)
	}
	if runErr != nil {
		log.Fatalf("Labeling failed after %d of %d images: %v", len(summary.Images), len(anns), runErr)
	}

	fmt.Printf("Labeled %d images in %v\n", len(summary.Images), summary.Duration)
	fmt.Printf("  positive: %d  negative: %d  neutral: %d  fallback: %d  unmatched: %d\n",
		summary.Totals.Positive,
		summary.Totals.Negative,
		summary.Totals.Neutral,
		summary.Totals.Fallback,
		summary.Totals.Unmatched)
	fmt.Printf("Targets saved to: %s\n", cfg.Batch.OutputDir)
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "Generates RPN classification and regression targets from box annotations.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -annotations ./annotations -output ./targets\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  %s -config ./rpn.yaml -seed 42 -workers 8\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  %s -annotations ./annotations -verify -verify-iou 0.7 -strict\n", filepath.Base(os.Args[0]))
	}
}
