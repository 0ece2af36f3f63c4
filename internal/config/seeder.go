package config

import (
	"errors"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/pkg/password"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	cfg *Config
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cfg *Config) *Seeder {
	return &Seeder{db: db, cfg: cfg}
}

// Run executes all seeders. Sample centers are only created in dev mode.
func (s *Seeder) Run() error {
	log.Info().Msg("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Warn().Err(err).Msg("⚠️ Admin seeder skipped")
	}
	if err := s.seedUpdateTypes(); err != nil {
		return err
	}
	if s.cfg.IsDev() {
		if err := s.seedCenters(); err != nil {
			return err
		}
	}

	log.Info().Msg("✅ Database seeding completed")
	return nil
}

// seedAdminUser creates the first ADMIN account from SEED_ADMIN_* variables.
// Nothing is created when an admin already exists or no password is configured.
func (s *Seeder) seedAdminUser() error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaultPassword := ""
	if s.cfg.IsDev() {
		defaultPassword = "admin123456"
	}
	plain := getEnv("SEED_ADMIN_PASSWORD", defaultPassword)
	if plain == "" {
		log.Warn().Msg("⚠️ SEED_ADMIN_PASSWORD not set, create the admin account manually")
		return nil
	}

	hashed, err := password.Hash(plain)
	if err != nil {
		return err
	}

	admin := &models.User{
		Email:       getEnv("SEED_ADMIN_EMAIL", "admin@aadhaar-seva.local"),
		PhoneNumber: getEnv("SEED_ADMIN_PHONE", "9000000000"),
		Password:    hashed,
		Role:        models.RoleAdmin,
		IsActive:    true,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Info().Str("email", admin.Email).Msg("✅ Admin user created")
	return nil
}

func (s *Seeder) seedUpdateTypes() error {
	updateTypes := []models.UpdateType{
		{
			Code:              "NAME",
			Name:              "Name correction",
			Description:       "Change or correct the resident's name",
			Fee:               50,
			RequiredDocuments: "proof_of_identity",
			IsActive:          true,
		},
		{
			Code:              "ADDRESS",
			Name:              "Address update",
			Description:       "Update the residential address",
			Fee:               50,
			RequiredDocuments: "proof_of_address",
			IsActive:          true,
		},
		{
			Code:              "DOB",
			Name:              "Date of birth correction",
			Description:       "Correct the recorded date of birth",
			Fee:               50,
			RequiredDocuments: "proof_of_birth",
			IsActive:          true,
		},
		{
			Code:        "MOBILE",
			Name:        "Mobile number update",
			Description: "Link or change the mobile number",
			Fee:         50,
			IsActive:    true,
		},
		{
			Code:        "EMAIL",
			Name:        "Email update",
			Description: "Link or change the email address",
			Fee:         50,
			IsActive:    true,
		},
		{
			Code:        "BIOMETRIC",
			Name:        "Biometric update",
			Description: "Fingerprint, iris and photograph refresh",
			Fee:         100,
			IsActive:    true,
		},
	}

	for _, ut := range updateTypes {
		var existing models.UpdateType
		err := s.db.Where("code = ?", ut.Code).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := s.db.Create(&ut).Error; err != nil {
				return err
			}
			log.Debug().Str("code", ut.Code).Msg("   Created update_type")
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedCenters() error {
	centers := []models.Center{
		{
			Code:            "DL-CP-01",
			Name:            "Aadhaar Seva Kendra Connaught Place",
			Address:         "Barakhamba Road, Connaught Place",
			City:            "New Delhi",
			State:           "Delhi",
			Pincode:         "110001",
			Latitude:        28.6304,
			Longitude:       77.2177,
			OpenTime:        "09:30",
			CloseTime:       "17:30",
			SlotMinutes:     30,
			CapacityPerSlot: 6,
			IsActive:        true,
		},
		{
			Code:            "MH-AN-01",
			Name:            "Aadhaar Seva Kendra Andheri",
			Address:         "Andheri Kurla Road, Andheri East",
			City:            "Mumbai",
			State:           "Maharashtra",
			Pincode:         "400069",
			Latitude:        19.1136,
			Longitude:       72.8697,
			OpenTime:        "09:00",
			CloseTime:       "17:00",
			SlotMinutes:     20,
			CapacityPerSlot: 4,
			IsActive:        true,
		},
		{
			Code:            "KA-KR-01",
			Name:            "Aadhaar Seva Kendra Koramangala",
			Address:         "80 Feet Road, Koramangala",
			City:            "Bengaluru",
			State:           "Karnataka",
			Pincode:         "560034",
			Latitude:        12.9352,
			Longitude:       77.6245,
			OpenTime:        "10:00",
			CloseTime:       "18:00",
			SlotMinutes:     30,
			CapacityPerSlot: 5,
			IsActive:        true,
		},
	}

	for _, c := range centers {
		var existing models.Center
		err := s.db.Where("code = ?", c.Code).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := s.db.Create(&c).Error; err != nil {
				return err
			}
			log.Debug().Str("code", c.Code).Msg("   Created center")
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
