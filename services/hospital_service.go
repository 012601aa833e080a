package services

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/yeremiapane/locum-staffing/models"
	"gorm.io/gorm"
)

type HospitalService struct {
	DB *gorm.DB
}

func NewHospitalService(db *gorm.DB) *HospitalService {
	return &HospitalService{DB: db}
}

// ListHospitals returns active hospitals ordered by name.
func (s *HospitalService) ListHospitals(ctx context.Context) ([]models.Hospital, error) {
	hospitals := []models.Hospital{}
	if err := s.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name asc").
		Find(&hospitals).Error; err != nil {
		return nil, errors.Wrap(err, "list hospitals")
	}
	return hospitals, nil
}

// ListUnits returns the active units of an active hospital.
func (s *HospitalService) ListUnits(ctx context.Context, hospitalID uint) ([]models.HospitalUnit, error) {
	var hospital models.Hospital
	if err := s.DB.WithContext(ctx).
		Where("id = ? AND is_active = ?", hospitalID, true).
		First(&hospital).Error; err != nil {
		return nil, notFoundOr(err, "hospital", hospitalID)
	}

	units := []models.HospitalUnit{}
	if err := s.DB.WithContext(ctx).
		Where("hospital_id = ? AND is_active = ?", hospitalID, true).
		Order("unit_name asc").
		Find(&units).Error; err != nil {
		return nil, errors.Wrapf(err, "list units of hospital %d", hospitalID)
	}
	return units, nil
}
