package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/meddocs/internal/app"
	"github.com/joseph-ayodele/meddocs/internal/entity"
	"github.com/joseph-ayodele/meddocs/internal/server"
)

var reprocessCmd = &cobra.Command{
	Use:   "reprocess [record-id]",
	Short: "Run a stored document's file through the pipeline again",
	Long: `Load a stored document, run its archived file through the pipeline --times
times and log how each run compares with the stored record. Nothing is written
unless --store is given, in which case the last successful run is saved as a
new record.`,
	Args: cobra.ExactArgs(1),
	RunE: runReprocess,
}

func init() {
	rootCmd.AddCommand(reprocessCmd)

	reprocessCmd.Flags().Int("times", 1, "number of pipeline runs")
	reprocessCmd.Flags().Bool("store", false, "save the last successful run as a new record")
}

func runReprocess(cmd *cobra.Command, args []string) error {
	times, _ := cmd.Flags().GetInt("times")
	store, _ := cmd.Flags().GetBool("store")
	if times < 1 {
		times = 1
	}
	if err := validate(true); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := server.ConnectStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	doc, err := st.Documents.Get(ctx, args[0])
	if err != nil {
		return err
	}
	raw, err := entity.NewRawDocumentFromPath(doc.FilePath, doc.Type)
	if err != nil {
		return fmt.Errorf("stored file unavailable: %w", err)
	}

	pipe, err := app.BuildPipeline(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer pipe.Close()

	log := logger.With("record_id", doc.ID.String(), "file", raw.Filename)
	var last *entity.Result
	for i := 1; i <= times; i++ {
		runCtx, cancel := context.WithTimeout(ctx, 3*time.Minute)
		start := time.Now()
		res := pipe.Assembler.Assemble(runCtx, raw, doc.Type, doc.PatientID, doc.CheckinID)
		cancel()

		if res.Failure != nil {
			log.Error("reprocess run failed", "iter", i, "error", res.Failure.Error)
			continue
		}
		log.Info("reprocess run ok",
			"iter", i,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"document_type", res.Record.DocumentType,
			"language", res.Record.OriginalLanguage.Code,
			"language_changed", res.Record.OriginalLanguage.Code != doc.Language,
		)
		last = &res
		if ctx.Err() != nil {
			break
		}
	}

	if last == nil {
		return fmt.Errorf("all %d runs failed", times)
	}
	if !store {
		fmt.Fprintf(cmd.OutOrStdout(), "%d run(s) complete for %s\n", times, doc.ID)
		return nil
	}
	proc := app.NewProcessor(cfg, staticAssembler{*last}, st.Documents, nil, nil, logger)
	out, err := proc.Process(ctx, raw, doc.Type, doc.PatientID, doc.CheckinID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored new record %s\n", out.RecordID)
	return nil
}

// staticAssembler replays an already computed result through the processor.
type staticAssembler struct{ res entity.Result }

func (s staticAssembler) Assemble(context.Context, entity.RawDocument, string, int64, *int64) entity.Result {
	return s.res
}
