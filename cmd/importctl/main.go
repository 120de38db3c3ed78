package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-ledger/internal/config"
	"go-ledger/internal/features/importjob"
	"go-ledger/internal/importflow"
)

// importctl drives the staged-import workflow from the terminal: stage a
// spreadsheet, map its columns, commit, and watch the job to completion.
func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "import":
		err = runImport(os.Args[2:])
	case "master":
		err = runMaster(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "watch":
		err = runWatch(os.Args[2:])
	case "errors":
		err = runErrors(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("importctl: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: importctl <command> [flags]

commands:
  import   stage a ledger spreadsheet, map columns, commit and watch
  master   upload a master chart-of-accounts file and watch
  stats    show chart-of-accounts matching statistics for a shop
  watch    poll an existing job until it finishes
  errors   list the row errors of a job`)
}

type mapFlags map[string]string

func (m mapFlags) String() string { return "" }

func (m mapFlags) Set(v string) error {
	parts := strings.SplitN(v, "=", 2)
	if len(parts) != 2 || parts[0] == "" {
		return fmt.Errorf("mapping %q is not target=source", v)
	}
	m[parts[0]] = parts[1]
	return nil
}

func newClient(fs *flag.FlagSet) (server, token *string) {
	server = fs.String("server", envOr("LEDGER_SERVER", "http://localhost:8080"), "API base URL")
	token = fs.String("token", os.Getenv("LEDGER_TOKEN"), "bearer token")
	return server, token
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// consoleNotifier prints workflow outcomes to the terminal.
type consoleNotifier struct{}

func (consoleNotifier) Refresh()               { fmt.Println("-- ledger view refreshed") }
func (consoleNotifier) Success(message string) { fmt.Println("OK  " + message) }
func (consoleNotifier) Warning(message string) { fmt.Println("WARN " + message) }
func (consoleNotifier) Danger(message string)  { fmt.Println("FAIL " + message) }

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	server, token := newClient(fs)
	program := fs.String("program", "", "program id")
	shop := fs.String("shop", "", "shop id")
	period := fs.String("period", "", "period (YYYY-MM)")
	file := fs.String("file", "", "spreadsheet path")
	sheet := fs.String("sheet", "", "sheet name (first sheet when empty)")
	importDate := fs.String("import-date", time.Now().Format("2006-01-02"), "import date")
	format := fs.String("format", string(importjob.FormatGeneralLedger), "import format")
	mappings := mapFlags{}
	fs.Var(mappings, "map", "column mapping target=source (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *program == "" || *shop == "" || *period == "" || *file == "" {
		return fmt.Errorf("-program, -shop, -period and -file are required")
	}

	ctx := context.Background()
	api := importflow.NewClient(*server, *token)
	notifier := consoleNotifier{}
	controller := importflow.NewSessionController(api, notifier, zap.NewNop())
	controller.SetFormatType(importjob.FormatType(*format))
	controller.SetSelection(importflow.SessionContext{
		ProgramID:  *program,
		ShopIDs:    []string{*shop},
		PeriodDate: *period,
	})

	if !controller.Next(ctx) {
		return fmt.Errorf("selection gate failed")
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	if !controller.Upload(ctx, *shop, filepath.Base(*file), *sheet, f) {
		return fmt.Errorf("staging failed")
	}
	if !controller.Next(ctx) {
		return fmt.Errorf("upload gate failed")
	}

	mapper := controller.Mapper()
	fields, err := mapper.LoadTargetFields(ctx)
	if err != nil {
		return err
	}
	for target, source := range mappings {
		mapper.SetMapping(target, source)
	}
	if !mapper.Committable() {
		var missing []string
		for _, fld := range fields {
			if fld.IsRequired && mappings[fld.FieldName] == "" {
				missing = append(missing, fld.FieldName)
			}
		}
		return fmt.Errorf("required fields not mapped: %s", strings.Join(missing, ", "))
	}

	job := controller.CommitSession(ctx, *importDate)
	if job == nil {
		return fmt.Errorf("commit failed")
	}
	fmt.Printf("committed as job %d\n", job.JobNumber)

	return watch(ctx, api, notifier, job.JobNumber)
}

func runMaster(args []string) error {
	fs := flag.NewFlagSet("master", flag.ExitOnError)
	server, token := newClient(fs)
	file := fs.String("file", "", "master account CSV or XLSX path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := context.Background()
	api := importflow.NewClient(*server, *token)
	job, err := api.SubmitMasterUpload(ctx, filepath.Base(*file), f)
	if err != nil {
		return err
	}
	fmt.Printf("uploaded as job %d\n", job.JobNumber)

	return watch(ctx, api, consoleNotifier{}, job.JobNumber)
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	server, token := newClient(fs)
	program := fs.String("program", "", "program id")
	shop := fs.String("shop", "", "shop id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *program == "" || *shop == "" {
		return fmt.Errorf("-program and -shop are required")
	}

	api := importflow.NewClient(*server, *token)
	stats, err := api.MatchingStats(context.Background(), *program, *shop)
	if err != nil {
		return err
	}
	fmt.Printf("shop accounts: %d\nmatched:       %d\nunmatched:     %d\nmatch rate:    %.1f%%\n",
		stats.TotalShopAccounts, stats.MatchedAccounts, stats.UnmatchedAccounts, stats.MatchRate)
	return nil
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	server, token := newClient(fs)
	jobNumber := fs.Int("job", 0, "job number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	api := importflow.NewClient(*server, *token)
	return watch(context.Background(), api, consoleNotifier{}, *jobNumber)
}

func runErrors(args []string) error {
	fs := flag.NewFlagSet("errors", flag.ExitOnError)
	server, token := newClient(fs)
	jobNumber := fs.Int("job", 0, "job number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	api := importflow.NewClient(*server, *token)
	rowErrors, err := api.ListJobErrors(context.Background(), *jobNumber)
	if err != nil {
		return err
	}
	printRowErrors(rowErrors)
	return nil
}

func watch(ctx context.Context, api importflow.API, notifier consoleNotifier, jobNumber int) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	poller := importflow.NewJobPoller(api, notifier, notifier, zap.NewNop(),
		importflow.WithPollInterval(cfg.PollInterval),
		importflow.WithMaxWait(cfg.PollMaxWait))
	if err := poller.Start(ctx, jobNumber); err != nil {
		return err
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-poller.Done():
			printRowErrors(poller.RowErrors())
			return nil
		case <-ticker.C:
			if job := poller.Job(); job != nil && !job.Status.Terminal() {
				fmt.Printf("  %s %.0f%% (%d/%d)\n",
					job.Status, job.PercentageComplete, job.ProcessedRecords, job.TotalRecords)
			}
		}
	}
}

func printRowErrors(rowErrors []importjob.ImportError) {
	for _, e := range rowErrors {
		if e.ColumnName != "" {
			fmt.Printf("  row %d [%s]: %s\n", e.RowNumber, e.ColumnName, e.ErrorMessage)
		} else {
			fmt.Printf("  row %d: %s\n", e.RowNumber, e.ErrorMessage)
		}
	}
}
