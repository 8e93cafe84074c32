// Package main (in watermark-subfolder) is the command line exporter
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/UnendingLoop/PhotoWatermark/internal/export"
	"github.com/UnendingLoop/PhotoWatermark/internal/imageproc"
	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/UnendingLoop/PhotoWatermark/internal/repository"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "Error:", err)
		return 2
	}

	zlog.InitConsole()
	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	if err := zlog.SetLevel(level); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	cfg, err := resolveConfig(ctx, opts)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	sources, err := collectInputs(opts.input)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	if len(sources) == 0 {
		fmt.Fprintln(stderr, "No supported image files found.")
		return 1
	}

	output, err := opts.outputSpec(opts.input)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	renderer, err := imageproc.NewRenderer(imageproc.DefaultCacheSize)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	job := model.ExportJob{Config: cfg, Output: output}
	for _, s := range sources {
		job.Sources = append(job.Sources, model.ImageAsset{SourcePath: s})
	}

	fmt.Fprintf(stdout, "Processing: %s\n", opts.input)

	// Ctrl-C cancels ctx: dispatching stops, images in progress are still finished
	done := 0
	rep, err := export.NewCoordinator(renderer, opts.workers, nil).Run(ctx, job, func(ev model.ProgressEvent) {
		done++
		if !opts.quiet {
			printProgress(stdout, done, ev)
		}
	})
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	if !opts.quiet {
		printSummary(stdout, rep, output.Directory)
	}

	switch {
	case rep.State == model.StateCancelled:
		fmt.Fprintln(stderr, "Operation cancelled by user.")
		return 130
	case rep.Succeeded == 0:
		fmt.Fprintln(stderr, "No images were processed successfully.")
		return 1
	}
	fmt.Fprintln(stdout, "Completed successfully!")
	return 0
}

// resolveConfig loads or saves a template when asked to, otherwise builds the config from flags
func resolveConfig(ctx context.Context, opts options) (model.WatermarkConfig, error) {
	if opts.template == "" && opts.saveTemplate == "" {
		return opts.watermarkConfig()
	}

	repo, err := repository.NewFileTemplateRepo(opts.templatesDir)
	if err != nil {
		return model.WatermarkConfig{}, err
	}

	if opts.template != "" {
		rec, err := repo.Load(ctx, opts.template)
		if err != nil {
			return model.WatermarkConfig{}, fmt.Errorf("template %q: %w", opts.template, err)
		}
		return rec.Config, nil
	}

	cfg, err := opts.watermarkConfig()
	if err != nil {
		return model.WatermarkConfig{}, err
	}
	if err := repo.Save(ctx, &model.TemplateRecord{Name: opts.saveTemplate, Config: cfg}); err != nil {
		return model.WatermarkConfig{}, err
	}
	return cfg, nil
}

func printProgress(w io.Writer, done int, ev model.ProgressEvent) {
	status := "✓"
	if ev.Outcome.Kind != model.OutcomeSuccess {
		status = "✗"
	}
	pct := float64(done) / float64(ev.Total) * 100
	fmt.Fprintf(w, "[%d/%d] %s %s (%.1f%%)\n", done, ev.Total, status, filepath.Base(ev.SourcePath), pct)
	if ev.Outcome.Kind == model.OutcomeFailed {
		fmt.Fprintf(w, "        %s\n", ev.Outcome.Reason)
	}
}

func printSummary(w io.Writer, rep model.ExportReport, dir string) {
	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintf(w, "  Processed: %d images\n", rep.Succeeded)
	if rep.Failed > 0 {
		fmt.Fprintf(w, "  Failed: %d images\n", rep.Failed)
	}
	if rep.Skipped > 0 {
		fmt.Fprintf(w, "  Skipped: %d images\n", rep.Skipped)
	}
	fmt.Fprintf(w, "  Total: %d images\n", len(rep.Outcomes))
	fmt.Fprintf(w, "  Output directory: %s\n", dir)
}
