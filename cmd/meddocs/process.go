package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/meddocs/internal/app"
	"github.com/joseph-ayodele/meddocs/internal/entity"
	"github.com/joseph-ayodele/meddocs/internal/server"
)

var processCmd = &cobra.Command{
	Use:   "process [file]",
	Short: "Run one document through the pipeline and print the result as JSON",
	Long: `Extract, detect, translate, classify and summarize a single document.

Without --store the structured record (or failure payload) is printed and
nothing is persisted. With --store the record is saved to the configured
database for --patient and a document.processed event is published when
KAFKA_BROKERS is set.`,
	Example: `  # Print the structured record
  meddocs process befund.pdf

  # Store it for patient 42, check-in 7
  meddocs process scan.heic --store --patient 42 --checkin 7 --type lab_result`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

type processOutput struct {
	RecordID string `json:"record_id,omitempty"`
	entity.Result
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().Int64("patient", 0, "patient id (required with --store)")
	processCmd.Flags().Int64("checkin", 0, "check-in id")
	processCmd.Flags().String("type", "", "declared document type hint, e.g. lab_result")
	processCmd.Flags().Bool("store", false, "persist the record")
}

func runProcess(cmd *cobra.Command, args []string) error {
	store, _ := cmd.Flags().GetBool("store")
	patientID, _ := cmd.Flags().GetInt64("patient")
	checkin, _ := cmd.Flags().GetInt64("checkin")
	declared, _ := cmd.Flags().GetString("type")
	if err := validate(store); err != nil {
		return err
	}
	if store && patientID <= 0 {
		return errors.New("--patient is required with --store")
	}
	var checkinID *int64
	if checkin > 0 {
		checkinID = &checkin
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	raw, err := entity.NewRawDocumentFromPath(args[0], declared)
	if err != nil {
		return err
	}
	if err := raw.Validate(); err != nil {
		return err
	}

	pipe, err := app.BuildPipeline(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer pipe.Close()

	var out processOutput
	if store {
		st, err := server.ConnectStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		pub := app.NewPublisher(cfg.Events, nil, logger)
		if pub != nil {
			defer pub.Close()
		}
		proc := app.NewProcessor(cfg, pipe.Assembler, st.Documents, pub, nil, logger)
		res, err := proc.Process(ctx, raw, declared, patientID, checkinID)
		if err != nil {
			return err
		}
		out = processOutput{RecordID: res.RecordID, Result: res.Result}
	} else {
		out.Result = pipe.Assembler.Assemble(ctx, raw, declared, patientID, checkinID)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if f := out.Failure; f != nil {
		return fmt.Errorf("processing failed: %s", f.Error)
	}
	return nil
}
