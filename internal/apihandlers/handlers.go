package apihandlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"histreader/internal/app"
	"histreader/internal/clix"
	"histreader/internal/models"
)

type APIHandler struct {
	App *app.App
}

func NewAPIHandler(app *app.App) *APIHandler {
	return &APIHandler{App: app}
}

// RegisterRoutes mounts the API on router.
func RegisterRoutes(router *gin.Engine, h *APIHandler) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/articles/random", h.FetchRandomArticleHandler)
		v1.GET("/status", h.StatusHandler)
		v1.GET("/history", h.HistoryHandler)
		v1.GET("/preferences", h.GetPreferencesHandler)
		v1.PUT("/preferences", h.UpdatePreferencesHandler)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// FetchRandomArticleHandler runs one fetch operation synchronously.
func (h *APIHandler) FetchRandomArticleHandler(c *gin.Context) {
	article, err := h.App.ReaderService.Fetch(c.Request.Context(), nil)
	if err != nil {
		var exhausted *models.ExhaustedRetriesError
		switch {
		case errors.Is(err, models.ErrFetchInProgress):
			Conflict(c, models.UserMessage(err))
		case errors.As(err, &exhausted):
			BadGateway(c, models.UserMessage(err))
		default:
			Internal(c, fmt.Sprintf("FetchRandomArticleHandler: %v", err))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": article})
}

// StatusHandler returns the latest status event and whether a fetch is running.
func (h *APIHandler) StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"status": h.App.ReaderService.Latest(),
		"busy":   h.App.ReaderService.Busy(),
	}})
}

func (h *APIHandler) HistoryHandler(c *gin.Context) {
	limit, err := clix.LimitFromString(c.Query("limit"))
	if err != nil {
		BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	records, err := h.App.HistoryService.Recent(c.Request.Context(), limit)
	if err != nil {
		Internal(c, fmt.Sprintf("HistoryHandler: failed to list history: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (h *APIHandler) GetPreferencesHandler(c *gin.Context) {
	prefs, err := h.App.PreferenceService.Get(c.Request.Context())
	if err != nil {
		Internal(c, fmt.Sprintf("GetPreferencesHandler: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": prefs})
}

// UpdatePreferencesHandler stores the submitted preferences. Out-of-range
// values are replaced by defaults rather than rejected.
func (h *APIHandler) UpdatePreferencesHandler(c *gin.Context) {
	var req models.Preferences
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	stored, err := h.App.PreferenceService.Save(c.Request.Context(), req)
	if err != nil {
		Internal(c, fmt.Sprintf("UpdatePreferencesHandler: %v", err))
		return
	}
	log.WithFields(log.Fields{"font_size": stored.FontSize, "font_family": stored.FontFamily}).Info("preferences updated")
	c.JSON(http.StatusOK, gin.H{"data": stored})
}
