package handler

import (
	"net/http"

	"github.com/controla/backend/internal/model"
	"github.com/gin-gonic/gin"
)

type licenseInfo interface {
	Info() model.LicenseInfo
}

// LicenseHandler reports the edition the server runs under.
type LicenseHandler struct {
	license licenseInfo
}

func NewLicenseHandler(license licenseInfo) *LicenseHandler {
	return &LicenseHandler{license: license}
}

// GetLicense godoc
// @Summary Get license info
// @Tags license
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.LicenseInfo
// @Router /api/v1/license [get]
func (h *LicenseHandler) GetLicense(c *gin.Context) {
	c.JSON(http.StatusOK, h.license.Info())
}
