// voice-fetch streams a Hugging Face voice dataset and keeps the
// samples matching one language, ready to use as reference voices or
// fine-tuning data.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leechanwoo-kor/chatterbox/internal/domain/dataset"
	"github.com/leechanwoo-kor/chatterbox/internal/platform/config"
	"github.com/leechanwoo-kor/chatterbox/internal/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "voice-fetch failed: %v\n", err)
		os.Exit(1)
	}
}

type fetchFlags struct {
	outputDir     string
	language      string
	maxSamples    int
	listLanguages bool
	checkSamples  int
	datasetName   string
	endpoint      string
	quiet         bool
}

func newRootCmd() *cobra.Command {
	flags := &fetchFlags{}

	cmd := &cobra.Command{
		Use:   "voice-fetch",
		Short: "Download voice samples of one language from a Hugging Face dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, flags)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "data/korean_voices",
		"Output directory for downloaded files")
	cmd.Flags().StringVar(&flags.language, "language", "Korean",
		"Language label to keep")
	cmd.Flags().IntVar(&flags.maxSamples, "max-samples", 0,
		"Maximum number of samples to download (0 = all)")
	cmd.Flags().BoolVar(&flags.listLanguages, "list-languages", false,
		"List available languages in the dataset instead of downloading")
	cmd.Flags().IntVar(&flags.checkSamples, "check-samples", 1000,
		"Number of samples to check when listing languages")
	cmd.Flags().StringVar(&flags.datasetName, "dataset", "",
		"Dataset repository (defaults to configuration)")
	cmd.Flags().StringVar(&flags.endpoint, "endpoint", "",
		"datasets-server base URL (defaults to configuration)")
	cmd.Flags().BoolVar(&flags.quiet, "quiet", false,
		"Disable the progress bar")

	return cmd
}

func run(cmd *cobra.Command, flags *fetchFlags) error {
	result, err := config.NewLoader().Load()
	if err != nil {
		return err
	}
	cfg := result.Config

	logger, err := utils.NewLogger(&utils.LogCfg{
		LogLevel: cfg.Log.Level,
		LogDir:   cfg.Log.Dir,
		LogFile:  "voice-fetch.log",
	})
	if err != nil {
		return err
	}
	defer logger.Close()

	datasetName := flags.datasetName
	if datasetName == "" {
		datasetName = cfg.Dataset.Name
	}
	endpoint := flags.endpoint
	if endpoint == "" {
		endpoint = cfg.Dataset.Endpoint
	}

	client, err := dataset.NewClient(dataset.ClientConfig{
		Endpoint: endpoint,
		Dataset:  datasetName,
		Config:   cfg.Dataset.Config,
		Split:    cfg.Dataset.Split,
		Token:    cfg.HFToken,
		PageSize: cfg.Dataset.PageSize,
	})
	if err != nil {
		return err
	}
	downloader, err := dataset.NewDownloader(client, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if flags.listLanguages {
		stats, checked, err := downloader.SurveyLanguages(ctx, flags.checkSamples)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Available languages (first %d samples):\n", checked)
		for _, stat := range stats {
			percentage := float64(stat.Count) / float64(checked) * 100
			fmt.Fprintf(out, "  - %s: %d samples (%.1f%%)\n", stat.Language, stat.Count, percentage)
		}
		return nil
	}

	fmt.Fprintf(out, "%s - %s voice downloader\n", datasetName, flags.language)
	fmt.Fprintf(out, "Output directory: %s\n", flags.outputDir)

	res, err := downloader.Run(ctx, dataset.DownloadOptions{
		OutputDir:  flags.outputDir,
		Language:   flags.language,
		MaxSamples: flags.maxSamples,
		Progress:   !flags.quiet,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nDownload completed!\n")
	fmt.Fprintf(out, "Downloaded %d %s voice files (%d skipped)\n",
		res.Downloaded, flags.language, res.Skipped)
	fmt.Fprintf(out, "Total processed: %d samples\n", res.TotalProcessed)
	fmt.Fprintf(out, "Metadata saved to: %s\n", res.MetadataPath)

	top := res.TopSpeakers(10)
	if len(top) > 0 {
		fmt.Fprintln(out, "\nSpeaker statistics:")
		for _, stat := range top {
			fmt.Fprintf(out, "  - %s: %d samples\n", stat.Speaker, stat.Count)
		}
		if rest := len(res.Speakers) - len(top); rest > 0 {
			fmt.Fprintf(out, "  ... and %d more speakers\n", rest)
		}
	}
	return nil
}
