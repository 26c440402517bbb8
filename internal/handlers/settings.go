package handlers

import (
	"net/http"

	"fotobox-crm/config"

	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	cfg *config.Config
}

func NewSettingsHandler(cfg *config.Config) *SettingsHandler {
	return &SettingsHandler{cfg: cfg}
}

// GetEmailSettings handles reporting the effective mail configuration
// @Summary Get email settings
// @Description Report the effective outbound mail configuration with secrets masked
// @Tags settings
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/settings/email [get]
func (h *SettingsHandler) GetEmailSettings(c *gin.Context) {
	smtp := h.cfg.SMTP

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"config": gin.H{
			"smtp_host":      smtp.Host,
			"smtp_port":      smtp.Port,
			"smtp_user":      smtp.User,
			"smtp_password":  maskSecret(smtp.Password),
			"smtp_secure":    smtp.Secure,
			"from_address":   smtp.From,
			"from_name":      smtp.FromName,
			"operator_email": smtp.OperatorEmail,
		},
	})
}

// maskSecret hides all but a hint that a value is set
func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	return "********"
}
