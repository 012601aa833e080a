package database

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/utils"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SeedUnit struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type SeedHospital struct {
	Code  string     `yaml:"code"`
	Name  string     `yaml:"name"`
	Units []SeedUnit `yaml:"units"`
}

type SeedUser struct {
	Email          string `yaml:"email"`
	Password       string `yaml:"password"`
	FirstName      string `yaml:"firstName"`
	LastName       string `yaml:"lastName"`
	Role           string `yaml:"role"`
	Department     string `yaml:"department"`
	Location       string `yaml:"location"`
	Specialization string `yaml:"specialization"`
	LicenseNumber  string `yaml:"licenseNumber"`
	Phone          string `yaml:"phone"`
	Hospital       string `yaml:"hospital"`
}

// SeedData is the layout of the seed YAML file.
type SeedData struct {
	Hospitals []SeedHospital `yaml:"hospitals"`
	Users     []SeedUser     `yaml:"users"`
}

func LoadSeedFile(path string) (*SeedData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return ParseSeed(f)
}

func ParseSeed(r io.Reader) (*SeedData, error) {
	var data SeedData
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for i, u := range data.Users {
		switch u.Role {
		case models.RoleDoctor, models.RoleNurse, models.RoleHR, models.RoleAdmin:
		default:
			return nil, fmt.Errorf("seed user %d (%s): unknown role %q", i, u.Email, u.Role)
		}
		if u.Email == "" || u.Password == "" {
			return nil, fmt.Errorf("seed user %d: email and password are required", i)
		}
	}
	return &data, nil
}

// Seed inserts hospitals, units and accounts that do not exist yet. Existing rows are left alone.
func Seed(db *gorm.DB, data *SeedData) error {
	return db.Transaction(func(tx *gorm.DB) error {
		hospitalIDs := map[string]uint{}
		for _, h := range data.Hospitals {
			hospital := models.Hospital{Code: h.Code, Name: h.Name, IsActive: true}
			if err := tx.Where(models.Hospital{Code: h.Code}).FirstOrCreate(&hospital).Error; err != nil {
				return fmt.Errorf("seed hospital %s: %w", h.Code, err)
			}
			hospitalIDs[h.Code] = hospital.ID

			for _, u := range h.Units {
				unit := models.HospitalUnit{HospitalID: hospital.ID, UnitCode: u.Code, UnitName: u.Name, IsActive: true}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&unit).Error; err != nil {
					return fmt.Errorf("seed unit %s/%s: %w", h.Code, u.Code, err)
				}
			}
		}

		created := 0
		for _, u := range data.Users {
			email := strings.ToLower(strings.TrimSpace(u.Email))
			var count int64
			if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			user := models.User{
				Email:          email,
				Password:       string(hashed),
				FirstName:      u.FirstName,
				LastName:       u.LastName,
				Role:           u.Role,
				Department:     u.Department,
				Location:       u.Location,
				Specialization: u.Specialization,
				LicenseNumber:  u.LicenseNumber,
				Phone:          u.Phone,
				IsActive:       true,
			}
			if id, ok := hospitalIDs[u.Hospital]; ok {
				user.HospitalID = &id
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("seed user %s: %w", email, err)
			}
			created++
		}

		utils.InfoLogger.Printf("Seeded %d hospitals and %d new users", len(data.Hospitals), created)
		return nil
	})
}
