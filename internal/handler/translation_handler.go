package handler

import (
	"LingoChat/internal/detect"
	"LingoChat/internal/service"
	"LingoChat/internal/translation"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type TranslationHandler interface {
	Translate(c *gin.Context)
	Detect(c *gin.Context)
	Languages(c *gin.Context)
}

// Engine translates and reports which model sizes are loaded.
type Engine interface {
	service.Translator
	Loaded() []translation.ModelSize
}

type translationHandler struct {
	detector service.Detector
	engine   Engine
}

func NewTranslationHandler(detector service.Detector, engine Engine) TranslationHandler {
	return &translationHandler{
		detector: detector,
		engine:   engine,
	}
}

type translateRequest struct {
	Text       string `json:"text" binding:"required"`
	TargetLang string `json:"targetLang" binding:"required"`
	SourceLang string `json:"sourceLang"`
	ModelSize  string `json:"modelSize"`
}

type detectRequest struct {
	Text string `json:"text" binding:"required"`
}

type detectResponse struct {
	Lang     string `json:"lang"`
	ModelTag string `json:"modelTag"`
}

// Translate translates text directly. The source language is detected when
// it is not given.
func (h *translationHandler) Translate(c *gin.Context) {
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "text and targetLang are required")
		return
	}

	if !detect.IsSupported(req.TargetLang) {
		respondFailure(c, http.StatusBadRequest, "unsupported targetLang")
		return
	}

	source := strings.TrimSpace(req.SourceLang)
	if source == "" {
		source = h.detector.Detect(req.Text)
	}

	res := h.engine.Translate(c.Request.Context(), req.Text, source, req.TargetLang, req.ModelSize)
	respond(c, http.StatusOK, "translation completed", res)
}

func (h *translationHandler) Detect(c *gin.Context) {
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "text is required")
		return
	}

	lang := h.detector.Detect(req.Text)
	respond(c, http.StatusOK, "language detected", detectResponse{
		Lang:     lang,
		ModelTag: detect.ToModelTag(lang),
	})
}

func (h *translationHandler) Languages(c *gin.Context) {
	respond(c, http.StatusOK, "supported languages", gin.H{
		"languages":    detect.Supported(),
		"modelSizes":   []translation.ModelSize{translation.ModelSmall, translation.ModelLarge},
		"loadedModels": h.engine.Loaded(),
	})
}
