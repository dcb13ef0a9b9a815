// Package dataset streams voice samples from the Hugging Face
// datasets-server rows API without materializing the whole dataset on
// disk.
package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"

	"github.com/leechanwoo-kor/chatterbox/internal/platform/errors"
)

const defaultPageSize = 100

// Sample is one row of the voice dataset.
type Sample struct {
	Index         int
	Speaker       string
	Transcription string
	Language      string
	SpeakerType   string
	AudioURL      string
}

// Client pages through a dataset via the datasets-server REST API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	dataset    string
	config     string
	split      string
	token      string
	pageSize   int
}

// ClientConfig describes the dataset to stream.
type ClientConfig struct {
	// Endpoint is the datasets-server base URL.
	Endpoint string
	// Dataset is the hub repository, e.g. "simon3000/genshin-voice".
	Dataset string
	// Config is the dataset configuration, "default" when empty.
	Config string
	// Split selects the data split, "train" when empty.
	Split string
	// Token is an optional hub access token for gated datasets.
	Token    string
	PageSize int
}

// NewClient builds a rows API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New(errors.KindDataset, "client.new", "endpoint is required")
	}
	if cfg.Dataset == "" {
		return nil, errors.New(errors.KindDataset, "client.new", "dataset name is required")
	}
	config := cfg.Config
	if config == "" {
		config = "default"
	}
	split := cfg.Split
	if split == "" {
		split = "train"
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		endpoint:   cfg.Endpoint,
		dataset:    cfg.Dataset,
		config:     config,
		split:      split,
		token:      cfg.Token,
		pageSize:   pageSize,
	}, nil
}

// PageSize reports how many rows each Rows call requests.
func (c *Client) PageSize() int { return c.pageSize }

// rowsResponse mirrors the datasets-server /rows payload. Audio cells
// arrive as a list of served file references.
type rowsResponse struct {
	Rows []struct {
		RowIdx int `json:"row_idx"`
		Row    struct {
			Speaker       string `json:"speaker"`
			Transcription string `json:"transcription"`
			Language      string `json:"language"`
			SpeakerType   string `json:"speaker_type"`
			Audio         []struct {
				Src  string `json:"src"`
				Type string `json:"type"`
			} `json:"audio"`
		} `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

// Page is one window of dataset rows.
type Page struct {
	Samples []Sample
	// Total is the full row count of the split.
	Total int
}

// Rows fetches one page of samples starting at offset.
func (c *Client) Rows(ctx context.Context, offset int) (*Page, error) {
	const op = "client.rows"

	query := url.Values{}
	query.Set("dataset", c.dataset)
	query.Set("config", c.config)
	query.Set("split", c.split)
	query.Set("offset", fmt.Sprintf("%d", offset))
	query.Set("length", fmt.Sprintf("%d", c.pageSize))

	reqURL := c.endpoint + "/rows?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.KindDataset, op, "build request", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.KindDataset, op, "fetch rows", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.New(errors.KindDataset, op,
			fmt.Sprintf("rows API returned %d: %s", resp.StatusCode, body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.KindDataset, op, "read response", err)
	}
	var decoded rowsResponse
	if err := sonic.Unmarshal(data, &decoded); err != nil {
		return nil, errors.Wrap(errors.KindDataset, op, "decode response", err)
	}

	page := &Page{Total: decoded.NumRowsTotal}
	for _, row := range decoded.Rows {
		sample := Sample{
			Index:         row.RowIdx,
			Speaker:       row.Row.Speaker,
			Transcription: row.Row.Transcription,
			Language:      row.Row.Language,
			SpeakerType:   row.Row.SpeakerType,
		}
		if len(row.Row.Audio) > 0 {
			sample.AudioURL = row.Row.Audio[0].Src
		}
		page.Samples = append(page.Samples, sample)
	}
	return page, nil
}

// FetchAudio downloads the audio file served for a sample.
func (c *Client) FetchAudio(ctx context.Context, src string) ([]byte, error) {
	const op = "client.fetch_audio"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, errors.Wrap(errors.KindDataset, op, "build request", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.KindDataset, op, "fetch audio", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.KindDataset, op,
			fmt.Sprintf("audio fetch returned %d", resp.StatusCode))
	}
	return io.ReadAll(resp.Body)
}
