package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/meddocs/internal/app"
)

var detectCmd = &cobra.Command{
	Use:   "detect [text-file]",
	Short: "Detect the language of a text file or stdin",
	Example: `  echo "Der Patient klagt über Kopfschmerzen" | meddocs detect
  meddocs ocr befund.pdf | meddocs detect --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().Bool("json", false, "Output as JSON")
}

func runDetect(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return err
	}

	tag := app.NewDetector(logger).Detect(cmd.Context(), string(data))
	if jsonOutput {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(tag)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", tag.Code, tag.Name)
	return err
}
