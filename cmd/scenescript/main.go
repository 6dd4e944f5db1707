package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ivlev/scenescript/internal/api"
	"github.com/ivlev/scenescript/internal/config"
	"github.com/ivlev/scenescript/internal/db"
	"github.com/ivlev/scenescript/internal/logging"
	"github.com/ivlev/scenescript/internal/plan"
	"github.com/ivlev/scenescript/internal/script"
	"github.com/ivlev/scenescript/internal/slate"
	"github.com/ivlev/scenescript/internal/source"
	"github.com/ivlev/scenescript/internal/system"
	"github.com/ivlev/scenescript/internal/timeline"
)

const usage = `usage: scenescript <command> [flags]

commands:
  validate      parse and validate a script, print a summary
  render-plan   write the per-frame render plan
  serve         serve render contexts over HTTP
  slates        write QR verification slates
  import-pdf    build a skeleton script from a PDF deck
  import-images build a skeleton script from a folder of slide images
  version       print version information
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[-] Config error: %v", err)
	}
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "validate":
		err = runValidate(cfg, logger, args)
	case "render-plan":
		err = runRenderPlan(cfg, logger, args)
	case "serve":
		err = runServe(cfg, logger, args)
	case "slates":
		err = runSlates(cfg, logger, args)
	case "import-pdf":
		err = runImport("import-pdf", "pdf", logger, args)
	case "import-images":
		err = runImport("import-images", "dir", logger, args)
	case "version":
		fmt.Printf("scenescript %s (%s)\n", config.Version, config.GitCommit)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("[-] %s: %v", cmd, err)
	}
}

// scriptPath resolves the script to load: the flag, then SCENESCRIPT_SCRIPT,
// then script/scenes.yaml, then the newest YAML file in script/.
func scriptPath(cfg config.Config, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if cfg.ScriptPath != "" && cfg.ScriptPath != config.DefaultScriptPath {
		return cfg.ScriptPath, nil
	}
	return system.ResolveScript("", config.DefaultScriptDir)
}

func loadScript(cfg config.Config, logger *slog.Logger, flagValue string) (*script.Script, error) {
	path, err := scriptPath(cfg, flagValue)
	if err != nil {
		return nil, err
	}
	s, err := script.ReadFile(path)
	if err != nil {
		return nil, err
	}
	for _, w := range script.Lint(s) {
		logging.WithScript(logger, path).Warn("lint", "field", w.Field, "message", w.Message)
	}
	return s, nil
}

func runValidate(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	scriptFlag := fs.String("script", "", "Path to the scene script (default: $SCENESCRIPT_SCRIPT, script/scenes.yaml or newest YAML in script/)")
	fs.Parse(args)

	s, err := loadScript(cfg, logger, *scriptFlag)
	if err != nil {
		return err
	}
	sum, err := plan.Summarize(s)
	if err != nil {
		return err
	}
	fmt.Println(sum)
	return nil
}

func runRenderPlan(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("render-plan", flag.ExitOnError)
	scriptFlag := fs.String("script", "", "Path to the scene script")
	outFlag := fs.String("out", cfg.PlanOut, "Output plan path")
	jsonlFlag := fs.Bool("jsonl", cfg.JSONL, "Write JSON Lines instead of a JSON array")
	dbFlag := fs.String("db", cfg.DBPath, "Also store the plan in this SQLite database")
	workersFlag := fs.Int("workers", cfg.Workers, "Parallel workers (0: physical cores)")
	fs.Parse(args)

	s, err := loadScript(cfg, logger, *scriptFlag)
	if err != nil {
		return err
	}
	sum, err := plan.Summarize(s)
	if err != nil {
		return err
	}
	if err := system.CheckPlanMemory(sum.TotalFrames); err != nil {
		fmt.Printf("[!] %v\n", err)
	}

	workers := *workersFlag
	if workers <= 0 {
		workers = system.DefaultWorkers()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	contexts, err := plan.Build(ctx, s, plan.Options{
		Context: timeline.Options{DefaultBackground: cfg.Background},
		Workers: workers,
	})
	if err != nil {
		return err
	}
	entries := plan.Entries(contexts)

	if *jsonlFlag {
		err = plan.WriteJSONLFile(*outFlag, entries)
	} else {
		err = plan.WriteJSON(*outFlag, entries)
	}
	if err != nil {
		return err
	}
	logging.WithComponent(logger, "plan").Info("plan written",
		"path", *outFlag, "frames", len(entries), "workers", workers, "duration_ms", time.Since(start).Milliseconds())

	if *dbFlag != "" {
		database, err := db.Open(*dbFlag, logging.WithComponent(logger, "db"))
		if err != nil {
			return err
		}
		defer database.Close()
		id, err := db.NewPlanStore(database).Save(ctx, s.Source(), sum, entries)
		if err != nil {
			return err
		}
		fmt.Printf("[*] Plan stored in %s (id %d)\n", *dbFlag, id)
	}

	fmt.Printf("[+] %s\n", sum)
	fmt.Printf("[+] Plan: %s\n", *outFlag)
	return nil
}

func runServe(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	scriptFlag := fs.String("script", "", "Path to the scene script")
	portFlag := fs.Int("port", cfg.Port, "Port to listen on (127.0.0.1)")
	dbFlag := fs.String("db", cfg.DBPath, "Serve /plan from the latest plan stored for this script")
	fs.Parse(args)

	s, err := loadScript(cfg, logger, *scriptFlag)
	if err != nil {
		return err
	}
	serverCfg := api.RouterConfig{
		Port:      *portFlag,
		Timeline:  timeline.New(s),
		Context:   timeline.Options{DefaultBackground: cfg.Background},
		Logger:    logging.WithComponent(logger, "api"),
		StartTime: time.Now(),
		Version:   config.Version,
	}

	if *dbFlag != "" {
		database, err := db.Open(*dbFlag, logging.WithComponent(logger, "db"))
		if err != nil {
			return err
		}
		defer database.Close()
		stored, err := api.UseStoredPlan(context.Background(), &serverCfg, db.NewPlanStore(database))
		switch {
		case err == nil:
			fmt.Printf("[*] Serving stored plan %d (%d frames)\n", stored.ID, stored.TotalFrames)
		case errors.Is(err, db.ErrNotFound):
			fmt.Printf("[!] No stored plan for %s, computing frames on demand\n", s.Source())
		case errors.Is(err, api.ErrStalePlan):
			fmt.Printf("[!] Stored plan %d is out of date for %s, computing frames on demand\n", stored.ID, s.Source())
		default:
			return err
		}
	}

	server := api.NewServer(serverCfg)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	fmt.Printf("[*] Listening on http://%s\n", server.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func runSlates(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("slates", flag.ExitOnError)
	scriptFlag := fs.String("script", "", "Path to the scene script")
	dirFlag := fs.String("dir", cfg.SlateDir, "Output directory")
	fromFlag := fs.Int("from", 0, "First frame")
	toFlag := fs.Int("to", -1, "Frame after the last one (-1: end of timeline)")
	widthFlag := fs.Int("width", 0, "Slate width (0: script width)")
	heightFlag := fs.Int("height", 0, "Slate height (0: script height)")
	workersFlag := fs.Int("workers", cfg.Workers, "Parallel workers (0: physical cores)")
	fs.Parse(args)

	system.InitResourceLimits(logger)

	s, err := loadScript(cfg, logger, *scriptFlag)
	if err != nil {
		return err
	}
	tl := timeline.New(s)
	to := *toFlag
	if to < 0 || to > tl.TotalFrames() {
		to = tl.TotalFrames()
	}
	if *fromFlag < 0 || *fromFlag > to {
		return fmt.Errorf("invalid frame range [%d, %d)", *fromFlag, to)
	}

	workers := *workersFlag
	if workers <= 0 {
		workers = system.DefaultWorkers()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	contexts := plan.Range(tl, *fromFlag, to, timeline.Options{DefaultBackground: cfg.Background})
	fmt.Printf("[*] Rendering %d slates to %s with %d workers\n", len(contexts), *dirFlag, workers)
	start := time.Now()
	opts := slate.Options{Width: *widthFlag, Height: *heightFlag}
	if err := slate.RenderAll(ctx, contexts, *dirFlag, opts, workers); err != nil {
		return err
	}
	fmt.Printf("[+] %d slates in %s\n", len(contexts), time.Since(start).Round(time.Millisecond))
	return nil
}

// runImport handles both import commands; input names the flag holding the
// PDF path or the image directory.
func runImport(name, input string, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	inFlag := fs.String(input, "", "Input to import")
	outFlag := fs.String("out", config.DefaultScriptPath, "Output script path")
	secondsFlag := fs.Float64("seconds", 5, "Seconds per page (0: spread -duration over pages)")
	durationFlag := fs.Float64("duration", 0, "Total duration spread over all pages")
	fpsFlag := fs.Int("fps", 30, "Frame rate")
	widthFlag := fs.Int("width", 1920, "Width")
	heightFlag := fs.Int("height", 1080, "Height")
	fitFlag := fs.Bool("fit-page", false, "Derive height from the first page's aspect ratio")
	themeFlag := fs.String("theme", "", "Theme name")
	fs.Parse(args)

	if *inFlag == "" {
		return fmt.Errorf("-%s is required", input)
	}

	opts := source.DefaultImportOptions()
	opts.SecondsPerPage = *secondsFlag
	opts.TotalSeconds = *durationFlag
	opts.FrameRate = *fpsFlag
	opts.Width, opts.Height = *widthFlag, *heightFlag
	opts.FitPage = *fitFlag
	opts.Theme = *themeFlag

	var s *script.Script
	var err error
	if input == "pdf" {
		s, err = source.ImportPDF(*inFlag, opts)
	} else {
		s, err = source.ImportImages(*inFlag, opts)
	}
	if err != nil {
		return err
	}
	if err := script.WriteFile(s, *outFlag); err != nil {
		return err
	}
	logging.WithComponent(logger, "import").Info("script written",
		"input", filepath.Base(*inFlag), "scenes", s.SceneCount(), "path", *outFlag)
	fmt.Printf("[+] %d scenes written to %s\n", s.SceneCount(), *outFlag)
	return nil
}
