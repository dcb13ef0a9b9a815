package tts

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/leechanwoo-kor/chatterbox/internal/domain/audio"
	domain "github.com/leechanwoo-kor/chatterbox/internal/domain/tts"
	"github.com/leechanwoo-kor/chatterbox/internal/domain/tts/inter"
	"github.com/leechanwoo-kor/chatterbox/internal/platform/config"
	"github.com/leechanwoo-kor/chatterbox/internal/platform/errors"
	"github.com/leechanwoo-kor/chatterbox/internal/utils"
)

type stubEngine struct {
	fail        bool
	voiceFormat audio.Format
}

func (e *stubEngine) Generate(_ context.Context, req inter.SynthesizeRequest) (*inter.SynthesizeResult, error) {
	if req.VoicePath != "" {
		data, err := os.ReadFile(req.VoicePath)
		if err != nil {
			return nil, err
		}
		e.voiceFormat = audio.DetectFormat(data)
	}
	if e.fail {
		return nil, errors.New(errors.KindEngine, "engine.generate", "cuda out of memory")
	}
	return &inter.SynthesizeResult{
		Audio:      []byte("RIFF" + req.Text),
		SampleRate: 24000,
	}, nil
}

func (e *stubEngine) SampleRate() int { return 24000 }
func (e *stubEngine) Close() error    { return nil }

type stubFactory struct {
	engine *stubEngine
}

func (f *stubFactory) Load(context.Context, string, string) (inter.Engine, error) {
	return f.engine, nil
}

func newTestService(t *testing.T, engine *stubEngine) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	logger, err := utils.NewLogger(&utils.LogCfg{
		LogLevel: "error",
		LogDir:   t.TempDir(),
		LogFile:  "test.log",
	})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })

	manager, err := domain.NewManager(&stubFactory{engine: engine}, nil, domain.DeviceCPU, logger)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = manager.Close(context.Background()) })

	svc, err := NewService(cfg, logger, manager)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	router := gin.New()
	svc.Register(router.Group(""))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	cfg := config.DefaultConfig()
	logger, err := utils.NewLogger(&utils.LogCfg{
		LogLevel: "error",
		LogDir:   t.TempDir(),
		LogFile:  "test.log",
	})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })

	cases := []struct {
		name   string
		cfg    *config.Config
		logger *utils.Logger
	}{
		{"nil config", nil, logger},
		{"nil logger", cfg, nil},
		{"nil manager", cfg, logger},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewService(tc.cfg, tc.logger, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if msg := err.Error(); msg == "" {
				t.Error("error message is empty")
			}
			if !errors.IsKind(err, errors.KindConfig) {
				t.Errorf("kind = %v", err)
			}
		})
	}
}

func TestRootEndpoint(t *testing.T) {
	router := newTestService(t, &stubEngine{})
	w := doJSON(t, router, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := sonic.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["name"] != "Chatterbox TTS API" {
		t.Errorf("name = %v", body["name"])
	}
	endpoints, ok := body["endpoints"].(map[string]any)
	if !ok || len(endpoints) != 7 {
		t.Errorf("endpoints = %v", body["endpoints"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestService(t, &stubEngine{})
	w := doJSON(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body HealthResponse
	if err := sonic.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("status = %s", body.Status)
	}
	if body.Device != domain.DeviceCPU {
		t.Errorf("device = %s", body.Device)
	}
	if len(body.LoadedModels) != 0 {
		t.Errorf("loaded = %v before any synthesis", body.LoadedModels)
	}
}

func TestModelsEndpoint(t *testing.T) {
	router := newTestService(t, &stubEngine{})
	w := doJSON(t, router, http.MethodGet, "/models", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Models map[string]domain.Variant `json:"models"`
	}
	if err := sonic.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Models) != 3 {
		t.Errorf("models = %d, want 3", len(body.Models))
	}
	if body.Models["multilingual"].Size != "500M" {
		t.Errorf("multilingual size = %s", body.Models["multilingual"].Size)
	}
}

func TestTTSGeneratesWAV(t *testing.T) {
	router := newTestService(t, &stubEngine{})
	w := doJSON(t, router, http.MethodPost, "/tts", SynthesisRequest{
		Text:      "hello world",
		ModelType: "turbo",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("content type = %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "output.wav") {
		t.Errorf("content disposition = %s", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("RIFF")) {
		t.Error("body is not WAV")
	}
}

func TestTTSDefaultsModelType(t *testing.T) {
	router := newTestService(t, &stubEngine{})
	w := doJSON(t, router, http.MethodPost, "/tts", SynthesisRequest{Text: "hi"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestTTSRejectsLongText(t *testing.T) {
	router := newTestService(t, &stubEngine{})
	w := doJSON(t, router, http.MethodPost, "/tts", SynthesisRequest{
		Text:      strings.Repeat("a", 5001),
		ModelType: "turbo",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Text too long") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestTTSRejectsUnknownModel(t *testing.T) {
	router := newTestService(t, &stubEngine{})
	w := doJSON(t, router, http.MethodPost, "/tts", SynthesisRequest{
		Text:      "hi",
		ModelType: "gigantic",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid model_type") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestTTSRejectsUnsupportedLanguage(t *testing.T) {
	router := newTestService(t, &stubEngine{})
	w := doJSON(t, router, http.MethodPost, "/tts", SynthesisRequest{
		Text:       "hello",
		ModelType:  "turbo",
		LanguageID: "ko",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestTTSEngineFailureReturns500(t *testing.T) {
	router := newTestService(t, &stubEngine{fail: true})
	w := doJSON(t, router, http.MethodPost, "/tts", SynthesisRequest{
		Text:      "hi",
		ModelType: "turbo",
	})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "cuda out of memory") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func doForm(t *testing.T, router *gin.Engine, path string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	form := make([]string, 0, len(fields))
	for k, v := range fields {
		form = append(form, k+"="+v)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(strings.Join(form, "&")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestVariantFormEndpoints(t *testing.T) {
	router := newTestService(t, &stubEngine{})

	cases := []struct {
		path     string
		fields   map[string]string
		filename string
	}{
		{"/tts/turbo", map[string]string{"text": "hi"}, "turbo_output.wav"},
		{"/tts/multilingual", map[string]string{"text": "annyeong", "language_id": "ko"}, "multilingual_ko_output.wav"},
		{"/tts/original", map[string]string{"text": "hi"}, "original_output.wav"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			w := doForm(t, router, tc.path, tc.fields)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, tc.filename) {
				t.Errorf("content disposition = %s", cd)
			}
		})
	}
}

func TestMultilingualDefaultsToEnglish(t *testing.T) {
	router := newTestService(t, &stubEngine{})
	w := doForm(t, router, "/tts/multilingual", map[string]string{"text": "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "multilingual_en_output.wav") {
		t.Errorf("content disposition = %s", cd)
	}
}

func TestFormEndpointsRequireText(t *testing.T) {
	router := newTestService(t, &stubEngine{})
	w := doForm(t, router, "/tts/turbo", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

// makeWAV builds a small PCM WAV stream for upload tests.
func makeWAV(t *testing.T) []byte {
	t.Helper()
	pcm := bytes.Repeat([]byte{0x01, 0x00}, 240)
	var buf bytes.Buffer
	if err := audio.WriteWAVHeader(&buf, len(pcm), 24000, 1, 16); err != nil {
		t.Fatalf("WriteWAVHeader: %v", err)
	}
	buf.Write(pcm)
	return buf.Bytes()
}

func doWithVoice(t *testing.T, router *gin.Engine, voice []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("text", "clone me")
	mw.WriteField("model_type", "turbo")
	part, err := mw.CreateFormFile("voice_file", "ref.wav")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write(voice)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/tts/with-voice", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWithVoiceUpload(t *testing.T) {
	engine := &stubEngine{}
	router := newTestService(t, engine)

	w := doWithVoice(t, router, makeWAV(t))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "turbo_custom_voice_output.wav") {
		t.Errorf("content disposition = %s", cd)
	}
	if engine.voiceFormat != audio.FormatWAV {
		t.Errorf("engine saw voice format %q, want wav", engine.voiceFormat)
	}
}

func TestWithVoiceRejectsUndecodableUpload(t *testing.T) {
	engine := &stubEngine{}
	router := newTestService(t, engine)

	// mp3 magic bytes with no decodable frame behind them
	w := doWithVoice(t, router, []byte("ID3\x04\x00\x00\x00\x00\x00\x00not really an mp3"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Unsupported voice file format") {
		t.Errorf("body = %s", w.Body.String())
	}
	if engine.voiceFormat != "" {
		t.Errorf("engine received voice format %q, want none", engine.voiceFormat)
	}
}

func TestWithVoiceRequiresFile(t *testing.T) {
	router := newTestService(t, &stubEngine{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("text", "clone me")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/tts/with-voice", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "voice_file is required") {
		t.Errorf("body = %s", w.Body.String())
	}
}
