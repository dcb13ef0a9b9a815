// Package tts exposes the synthesis REST endpoints.
package tts

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/leechanwoo-kor/chatterbox/internal/domain/audio"
	domain "github.com/leechanwoo-kor/chatterbox/internal/domain/tts"
	"github.com/leechanwoo-kor/chatterbox/internal/domain/tts/inter"
	"github.com/leechanwoo-kor/chatterbox/internal/platform/config"
	"github.com/leechanwoo-kor/chatterbox/internal/platform/errors"
	httptransport "github.com/leechanwoo-kor/chatterbox/internal/transport/http"
	"github.com/leechanwoo-kor/chatterbox/internal/utils"
)

const (
	// MaxVoiceFileSize caps reference voice uploads at 10MB.
	MaxVoiceFileSize = 10 * 1024 * 1024

	apiName        = "Chatterbox TTS API"
	apiVersion     = "1.0.0"
	apiDescription = "REST API for Chatterbox Text-to-Speech models"
)

// Service is the HTTP transport for the model manager.
type Service struct {
	logger  *utils.Logger
	config  *config.Config
	manager *domain.Manager
}

// NewService wires the synthesis endpoints.
func NewService(cfg *config.Config, logger *utils.Logger, manager *domain.Manager) (*Service, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "tts.new", "config is required")
	}
	if logger == nil {
		return nil, errors.New(errors.KindConfig, "tts.new", "logger is required")
	}
	if manager == nil {
		return nil, errors.New(errors.KindConfig, "tts.new", "model manager is required")
	}
	return &Service{logger: logger, config: cfg, manager: manager}, nil
}

// Register mounts the routes on the given group.
func (s *Service) Register(group *gin.RouterGroup) {
	group.GET("/", s.handleRoot)
	group.GET("/health", s.handleHealth)
	group.GET("/models", s.handleModels)
	group.POST("/tts", s.handleTTS)
	group.POST("/tts/turbo", s.handleTurbo)
	group.POST("/tts/multilingual", s.handleMultilingual)
	group.POST("/tts/original", s.handleOriginal)
	group.POST("/tts/with-voice", s.handleWithVoice)
}

func (s *Service) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        apiName,
		"version":     apiVersion,
		"description": apiDescription,
		"endpoints": gin.H{
			"POST /tts":              "Generate speech from text",
			"POST /tts/turbo":        "Generate speech using Turbo model",
			"POST /tts/multilingual": "Generate speech using Multilingual model",
			"POST /tts/original":     "Generate speech using Original model",
			"POST /tts/with-voice":   "Generate speech with custom voice reference",
			"GET /health":            "Health check",
			"GET /models":            "List available models",
		},
	})
}

func (s *Service) handleHealth(c *gin.Context) {
	resp := HealthResponse{
		Status:       "healthy",
		Device:       s.manager.Device(),
		LoadedModels: s.manager.LoadedVariants(),
		Host:         domain.CollectHostInfo(),
	}
	if stats, err := s.manager.CacheStats(c.Request.Context()); err == nil {
		resp.Cache = stats
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Service) handleModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": domain.Variants()})
}

func (s *Service) handleTTS(c *gin.Context) {
	var req SynthesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ModelType == "" {
		req.ModelType = s.config.Models.Default
	}
	s.synthesize(c, req.ModelType, inter.SynthesizeRequest{
		Text:       req.Text,
		LanguageID: req.LanguageID,
	}, "output.wav")
}

func (s *Service) handleTurbo(c *gin.Context) {
	text := c.PostForm("text")
	s.synthesize(c, domain.VariantTurbo,
		inter.SynthesizeRequest{Text: text}, "turbo_output.wav")
}

func (s *Service) handleMultilingual(c *gin.Context) {
	text := c.PostForm("text")
	languageID := c.DefaultPostForm("language_id", "en")
	s.synthesize(c, domain.VariantMultilingual,
		inter.SynthesizeRequest{Text: text, LanguageID: languageID},
		fmt.Sprintf("multilingual_%s_output.wav", languageID))
}

func (s *Service) handleOriginal(c *gin.Context) {
	text := c.PostForm("text")
	s.synthesize(c, domain.VariantOriginal,
		inter.SynthesizeRequest{Text: text}, "original_output.wav")
}

func (s *Service) handleWithVoice(c *gin.Context) {
	text := c.PostForm("text")
	modelType := c.DefaultPostForm("model_type", s.config.Models.Default)
	languageID := c.PostForm("language_id")

	file, err := c.FormFile("voice_file")
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "voice_file is required")
		return
	}
	if file.Size > MaxVoiceFileSize {
		httptransport.RespondError(c, http.StatusBadRequest,
			fmt.Sprintf("Voice file too large. Maximum size is %d bytes.", MaxVoiceFileSize))
		return
	}

	voicePath, err := s.spoolVoiceFile(file)
	if err != nil {
		if errors.IsKind(err, errors.KindAudio) {
			httptransport.RespondError(c, http.StatusBadRequest,
				"Unsupported voice file format. Upload a WAV or MP3 file.")
			return
		}
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to store voice file")
		return
	}
	defer os.Remove(voicePath)

	s.synthesize(c, modelType, inter.SynthesizeRequest{
		Text:       text,
		LanguageID: languageID,
		VoicePath:  voicePath,
	}, fmt.Sprintf("%s_custom_voice_output.wav", modelType))
}

// spoolVoiceFile writes the uploaded reference voice to a temp WAV file the
// engine process can read. MP3 uploads are transcoded on the way in so the
// engine only ever sees WAV data.
func (s *Service) spoolVoiceFile(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	raw, err := io.ReadAll(io.LimitReader(src, MaxVoiceFileSize+1))
	if err != nil {
		return "", err
	}
	wav, err := audio.EnsureWAV(raw)
	if err != nil {
		return "", errors.Wrap(errors.KindAudio, "tts.spool_voice", "invalid voice file", err)
	}

	path := filepath.Join(os.TempDir(), "voice_"+uuid.NewString()+".wav")
	if err := os.WriteFile(path, wav, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Service) synthesize(c *gin.Context, modelType string, req inter.SynthesizeRequest, filename string) {
	if req.Text == "" {
		httptransport.RespondError(c, http.StatusBadRequest, "Text is required")
		return
	}
	if max := s.config.Audio.MaxTextLength; max > 0 && len([]rune(req.Text)) > max {
		httptransport.RespondError(c, http.StatusBadRequest,
			fmt.Sprintf("Text too long. Maximum length is %d characters.", max))
		return
	}
	if _, err := domain.LookupVariant(modelType); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "Invalid model_type")
		return
	}

	s.logger.InfoTag("TTS", "generating with %s model: %s", modelType, truncate(req.Text, 50))

	result, err := s.manager.Synthesize(c.Request.Context(), modelType, req)
	if err != nil {
		if errors.IsKind(err, errors.KindModel) {
			httptransport.RespondError(c, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.ErrorTag("TTS", "generation failed: %v", err)
		httptransport.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.InfoTag("TTS", "generation completed, %d bytes", len(result.Audio))
	httptransport.RespondWAV(c, result.Audio, filename)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
