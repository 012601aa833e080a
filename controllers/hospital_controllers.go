package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/locum-staffing/services"
	"github.com/yeremiapane/locum-staffing/utils"
)

type HospitalController struct {
	Hospitals *services.HospitalService
}

func NewHospitalController(hospitals *services.HospitalService) *HospitalController {
	return &HospitalController{Hospitals: hospitals}
}

func (hc *HospitalController) ListHospitals(c *gin.Context) {
	hospitals, err := hc.Hospitals.ListHospitals(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Hospitals", hospitals)
}

func (hc *HospitalController) ListUnits(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	units, err := hc.Hospitals.ListUnits(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Hospital units", units)
}
