// Command tracker ist ein Kommandozeilen-Client für den Paper-Tracker-Server.
//
//	tracker list [-status current]
//	tracker add -name ... -pdf ... -deadline 2024-05-01 [-status future]
//	tracker future|current|resume|delete <id>
//	tracker complete <id> [-summary ...] [-file review.pdf]
//	tracker sweep
//	tracker watch
package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"paper-tracker/lifecycle"
	"paper-tracker/models"
	"paper-tracker/tracker"
)

type clientConfig struct {
	ServerURL     string        `envconfig:"TRACKER_URL" default:"http://localhost:4242"`
	APIKey        string        `envconfig:"TRACKER_API_KEY"`
	Token         string        `envconfig:"TRACKER_TOKEN"`
	SweepSchedule string        `envconfig:"TRACKER_SWEEP_SCHEDULE" default:"@every 1h"`
	Debounce      time.Duration `envconfig:"TRACKER_DEBOUNCE" default:"30s"`
	Verbose       bool          `envconfig:"TRACKER_VERBOSE"`
}

func main() {
	_ = godotenv.Load()
	var cfg clientConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	logger := zap.NewNop()
	if cfg.Verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintln(os.Stderr, "logger:", err)
			os.Exit(2)
		}
	}
	defer logger.Sync()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	backend := tracker.NewHTTPBackend(cfg.ServerURL)
	backend.APIKey = cfg.APIKey
	backend.Token = cfg.Token
	adapter := tracker.NewAdapter(backend, logger, tracker.WithDebounce(cfg.Debounce))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, adapter, cfg, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tracker <list|add|future|current|resume|complete|delete|sweep|watch> [args]")
}

func run(ctx context.Context, a *tracker.Adapter, cfg clientConfig, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	switch cmd {
	case "list":
		status := fs.String("status", "", "nur Papers mit diesem Status")
		_ = fs.Parse(args)
		if err := a.Refresh(ctx); err != nil {
			return err
		}
		papers := a.Papers()
		if *status != "" {
			s, err := models.ParseStatus(*status)
			if err != nil {
				return err
			}
			papers = a.ByStatus(s)
		}
		printPapers(a, papers)
		return nil

	case "add":
		name := fs.String("name", "", "Titel")
		link := fs.String("pdf", "", "Link zum PDF")
		deadline := fs.String("deadline", "", "Deadline (YYYY-MM-DD)")
		status := fs.String("status", string(models.StatusCurrent), "current oder future")
		_ = fs.Parse(args)
		p, err := a.Add(ctx, tracker.NewPaper{Name: *name, PDFLink: *link, Deadline: *deadline, Status: models.Status(*status)})
		if err != nil {
			return err
		}
		fmt.Println(p.ID)
		return nil

	case "future", "current", "resume", "delete":
		_ = fs.Parse(args)
		id, err := singleID(fs)
		if err != nil {
			return err
		}
		switch cmd {
		case "future":
			return a.StoreForLater(ctx, id)
		case "current":
			return a.MoveToCurrent(ctx, id)
		case "resume":
			return a.Resume(ctx, id)
		}
		return a.Remove(ctx, id)

	case "complete":
		summary := fs.String("summary", "", "Zusammenfassung")
		file := fs.String("file", "", "Review-Datei (pdf, docx, txt)")
		_ = fs.Parse(reorder(args))
		id, err := singleID(fs)
		if err != nil {
			return err
		}
		var upload *lifecycle.Upload
		if *file != "" {
			if upload, err = readUpload(*file); err != nil {
				return err
			}
		}
		return a.Complete(ctx, id, *summary, upload)

	case "sweep":
		if err := a.Refresh(ctx); err != nil {
			return err
		}
		marked, err := a.SweepMissed(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d paper(s) marked missed\n", marked)
		return nil

	case "watch":
		if err := a.Start(ctx, cfg.SweepSchedule); err != nil {
			return err
		}
		defer a.Stop()
		printPapers(a, a.Papers())
		<-ctx.Done()
		return nil
	}
	usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func singleID(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: expected exactly one paper id", fs.Name())
	}
	return fs.Arg(0), nil
}

// reorder erlaubt "complete <id> -summary x": flag stoppt sonst beim ersten Positionsargument.
func reorder(args []string) []string {
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		return append(append([]string{}, args[1:]...), args[0])
	}
	return args
}

func readUpload(path string) (*lifecycle.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return &lifecycle.Upload{Name: filepath.Base(path), ContentType: ct, Data: data}, nil
}

func printPapers(a *tracker.Adapter, papers []models.Paper) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tDEADLINE\tNAME\t")
	for _, p := range papers {
		deadline := p.Deadline.String()
		if a.Overdue(p) {
			deadline += " (overdue)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", p.ID, p.Status, deadline, p.Name)
	}
	_ = w.Flush()
}
