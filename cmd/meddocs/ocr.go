package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/meddocs/internal/app"
	"github.com/joseph-ayodele/meddocs/internal/entity"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [file]",
	Short: "Extract text from a document without further processing",
	Long: `Run only the text extraction stage: the PDF text layer first, then rendered
page OCR, image OCR for JPEG/PNG/TIFF and conversion plus OCR for HEIC.

OCR_ENGINE=vision switches image OCR to Google Cloud Vision.`,
	Example: `  meddocs ocr befund.pdf
  meddocs ocr scan.heic --json -o scan.json`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

type ocrOutput struct {
	entity.ExtractedText
	FileName           string `json:"file_name"`
	FileSize           int64  `json:"file_size"`
	ProcessingDuration string `json:"processing_duration"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Bool("json", false, "Output as JSON")
	ocrCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runOCR(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	raw, err := entity.NewRawDocumentFromPath(args[0], "")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	extractor, closeEngine, err := app.NewExtractor(ctx, cfg.OCR, logger)
	if err != nil {
		return err
	}
	defer closeEngine()

	start := time.Now()
	res, err := extractor.Extract(ctx, raw)
	if err != nil {
		return err
	}

	var data []byte
	if jsonOutput {
		data, err = json.MarshalIndent(ocrOutput{
			ExtractedText:      res,
			FileName:           raw.Filename,
			FileSize:           raw.Size,
			ProcessingDuration: time.Since(start).Round(time.Millisecond).String(),
		}, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')
	} else {
		data = []byte(res.Text + "\n")
	}

	if outputPath == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	logger.Info("ocr output written", "path", outputPath, "method", res.Method, "degraded", res.Degraded)
	return nil
}
