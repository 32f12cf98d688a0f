package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskflow/internal/config"
)

type PreferencesHandler struct {
	store *config.PreferencesStore
}

func NewPreferencesHandler(store *config.PreferencesStore) *PreferencesHandler {
	return &PreferencesHandler{store: store}
}

// GET /preferences
func (h *PreferencesHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Get())
}

// PUT /preferences replaces only the fields present in the body.
func (h *PreferencesHandler) Put(c *gin.Context) {
	var req struct {
		OnboardingSeen   *bool `json:"onboardingSeen"`
		ShortcutsEnabled *bool `json:"shortcutsEnabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[preferences][put]", err)
		return
	}

	prefs, err := h.store.Update(func(p *config.Preferences) {
		if req.OnboardingSeen != nil {
			p.OnboardingSeen = *req.OnboardingSeen
		}
		if req.ShortcutsEnabled != nil {
			p.ShortcutsEnabled = *req.ShortcutsEnabled
		}
	})
	if err != nil {
		respondError(c, "[preferences][put]", err)
		return
	}
	log.Printf("[preferences][put][ok] onboarding=%t shortcuts=%t", prefs.OnboardingSeen, prefs.ShortcutsEnabled)
	c.JSON(http.StatusOK, prefs)
}
