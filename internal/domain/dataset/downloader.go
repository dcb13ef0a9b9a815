package dataset

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/leechanwoo-kor/chatterbox/internal/domain/audio"
	"github.com/leechanwoo-kor/chatterbox/internal/platform/errors"
	"github.com/leechanwoo-kor/chatterbox/internal/utils"
)

const metadataHeader = "filename|speaker|transcription|language|speaker_type"

// DownloadOptions controls one acquisition run.
type DownloadOptions struct {
	// OutputDir receives the WAV files and metadata.txt.
	OutputDir string
	// Language keeps only samples with this exact language label.
	Language string
	// MaxSamples stops after this many matching samples. Zero means
	// no limit.
	MaxSamples int
	// Progress renders a terminal progress bar when true.
	Progress bool
}

// Result summarizes a finished acquisition run.
type Result struct {
	Downloaded     int
	TotalProcessed int
	Skipped        int
	Speakers       map[string]int
	MetadataPath   string
}

// Downloader walks the dataset and keeps samples matching a language.
type Downloader struct {
	client *Client
	logger *utils.Logger
}

func NewDownloader(client *Client, logger *utils.Logger) (*Downloader, error) {
	if client == nil {
		return nil, errors.New(errors.KindDataset, "downloader.new", "client is required")
	}
	return &Downloader{client: client, logger: logger}, nil
}

// Run streams the dataset and writes matching samples as WAV files plus
// a pipe-separated metadata.txt. A sample that fails to download or
// decode is skipped, not fatal.
func (d *Downloader) Run(ctx context.Context, opts DownloadOptions) (*Result, error) {
	const op = "downloader.run"

	if opts.OutputDir == "" {
		return nil, errors.New(errors.KindDataset, op, "output directory is required")
	}
	if opts.Language == "" {
		return nil, errors.New(errors.KindDataset, op, "language filter is required")
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, errors.Wrap(errors.KindDataset, op, "create output directory", err)
	}

	metadataPath := filepath.Join(opts.OutputDir, "metadata.txt")
	meta, err := os.Create(metadataPath)
	if err != nil {
		return nil, errors.Wrap(errors.KindDataset, op, "create metadata file", err)
	}
	defer meta.Close()

	w := bufio.NewWriter(meta)
	defer w.Flush()
	fmt.Fprintln(w, metadataHeader)

	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Processing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
		)
	}

	result := &Result{
		Speakers:     make(map[string]int),
		MetadataPath: metadataPath,
	}

	offset := 0
	for {
		page, err := d.client.Rows(ctx, offset)
		if err != nil {
			return nil, err
		}
		if len(page.Samples) == 0 {
			break
		}

		for _, sample := range page.Samples {
			result.TotalProcessed++
			if bar != nil {
				bar.Add(1)
			}

			if sample.Language != opts.Language {
				continue
			}
			if err := d.saveSample(ctx, w, opts.OutputDir, sample, result); err != nil {
				result.Skipped++
				if d.logger != nil {
					d.logger.WarnTag("Dataset", "skipping sample %d: %v", sample.Index, err)
				}
				continue
			}

			if opts.MaxSamples > 0 && result.Downloaded >= opts.MaxSamples {
				return result, nil
			}
		}

		offset += len(page.Samples)
		if page.Total > 0 && offset >= page.Total {
			break
		}
	}
	return result, nil
}

func (d *Downloader) saveSample(ctx context.Context, w *bufio.Writer, dir string, sample Sample, result *Result) error {
	if sample.AudioURL == "" {
		return fmt.Errorf("sample has no audio")
	}

	data, err := d.client.FetchAudio(ctx, sample.AudioURL)
	if err != nil {
		return err
	}
	wav, err := audio.EnsureWAV(data)
	if err != nil {
		return err
	}

	speaker := sample.Speaker
	if speaker == "" {
		speaker = "unknown"
	}
	filename := fmt.Sprintf("%s_%04d.wav", sanitizeSpeaker(speaker), result.Downloaded)
	if err := os.WriteFile(filepath.Join(dir, filename), wav, 0o644); err != nil {
		return err
	}

	transcription := strings.ReplaceAll(sample.Transcription, "|", " ")
	fmt.Fprintf(w, "%s|%s|%s|%s|%s\n",
		filename, speaker, transcription, sample.Language, sample.SpeakerType)

	result.Downloaded++
	result.Speakers[speaker]++
	return nil
}

// sanitizeSpeaker keeps filename-safe characters from a speaker label.
func sanitizeSpeaker(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// SpeakerStat pairs a speaker with how many samples were kept.
type SpeakerStat struct {
	Speaker string
	Count   int
}

// TopSpeakers returns the most frequent speakers, highest first.
func (r *Result) TopSpeakers(n int) []SpeakerStat {
	stats := make([]SpeakerStat, 0, len(r.Speakers))
	for speaker, count := range r.Speakers {
		stats = append(stats, SpeakerStat{Speaker: speaker, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Speaker < stats[j].Speaker
	})
	if n > 0 && len(stats) > n {
		stats = stats[:n]
	}
	return stats
}

// LanguageStat pairs a language label with its sample count.
type LanguageStat struct {
	Language string
	Count    int
}

// SurveyLanguages samples the head of the dataset and counts the
// language labels seen.
func (d *Downloader) SurveyLanguages(ctx context.Context, maxCheck int) ([]LanguageStat, int, error) {
	if maxCheck <= 0 {
		maxCheck = 1000
	}

	counts := make(map[string]int)
	checked := 0
	offset := 0
	for checked < maxCheck {
		page, err := d.client.Rows(ctx, offset)
		if err != nil {
			return nil, checked, err
		}
		if len(page.Samples) == 0 {
			break
		}
		for _, sample := range page.Samples {
			lang := sample.Language
			if lang == "" {
				lang = "unknown"
			}
			counts[lang]++
			checked++
			if checked >= maxCheck {
				break
			}
		}
		offset += len(page.Samples)
		if page.Total > 0 && offset >= page.Total {
			break
		}
	}

	stats := make([]LanguageStat, 0, len(counts))
	for lang, count := range counts {
		stats = append(stats, LanguageStat{Language: lang, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Language < stats[j].Language
	})
	return stats, checked, nil
}
