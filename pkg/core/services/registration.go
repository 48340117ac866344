package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hemovault/bloodbank/pkg/db"
)

var validate = validator.New()

func init() {
	validate.RegisterValidation("personname", validPersonName)
	validate.RegisterValidation("phone", validPhoneNumber)
	validate.RegisterValidation("dob", validDateOfBirth)
}

// validPersonName accepts letters and spaces only
func validPersonName(fl validator.FieldLevel) bool {
	name := strings.ReplaceAll(fl.Field().String(), " ", "")
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// validPhoneNumber accepts 9 to 15 digits after stripping separators,
// with an optional leading country code.
func validPhoneNumber(fl validator.FieldLevel) bool {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, fl.Field().String())
	clean = strings.TrimPrefix(clean, "+")

	if len(clean) < 9 || len(clean) > 15 {
		return false
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// validDateOfBirth rejects future dates and anything more than 120
// years back.
func validDateOfBirth(fl validator.FieldLevel) bool {
	dob, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	now := time.Now()
	return !dob.After(now) && !dob.Before(now.AddDate(-120, 0, 0))
}

// DonorRegistration carries the caller-supplied fields for a new donor
type DonorRegistration struct {
	FirstName   string    `validate:"required,personname"`
	LastName    string    `validate:"required,personname"`
	DateOfBirth time.Time `validate:"required,dob"`
	Gender      string
	BloodType   string `validate:"required"`
	PhoneNumber string `validate:"omitempty,phone"`
	Email       string `validate:"omitempty,email"`
	Address     string
}

// ReceiverRegistration carries the caller-supplied fields for a new
// receiver. The transfusion reason, hospital and contact person are
// mandatory intake fields.
type ReceiverRegistration struct {
	FirstName            string    `validate:"required,personname"`
	LastName             string    `validate:"required,personname"`
	DateOfBirth          time.Time `validate:"required,dob"`
	Gender               string    `validate:"required"`
	BloodType            string    `validate:"required"`
	ReasonForTransfusion string    `validate:"required"`
	HospitalName         string    `validate:"required"`
	WardDetails          string
	ContactPersonName    string `validate:"required,personname"`
	ContactPersonPhone   string `validate:"required,phone"`
}

// registrationError converts the first validator failure into the
// domain validation error, so callers see "invalid first name: should
// contain only letters" instead of validator internals.
func registrationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	e := verrs[0]
	reason := "is invalid"
	switch e.Tag() {
	case "required":
		reason = "is required"
	case "personname":
		reason = "should contain only letters"
	case "dob":
		reason = "must not be in the future or more than 120 years in the past"
	case "phone":
		reason = "must be 9 to 15 digits, with an optional country code"
	case "email":
		reason = "is not a valid email address"
	}

	return &db.ValidationError{Field: fieldLabel(e.Field()), Reason: reason}
}

// fieldLabel turns a struct field name like ContactPersonPhone into
// "contact person phone".
func fieldLabel(field string) string {
	var b strings.Builder
	for i, r := range field {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// RegisterDonor validates the demographic fields and records a new
// donor with the resolved blood type.
func RegisterDonor(ctx context.Context, donors db.DonorStore, types db.BloodTypeStore, logger *zap.Logger, reg DonorRegistration) (int, error) {
	if err := validate.Struct(reg); err != nil {
		return 0, registrationError(err)
	}

	bloodType, err := types.GetBloodTypeByName(ctx, reg.BloodType)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve blood type: %w", err)
	}
	if bloodType == nil {
		return 0, &db.ValidationError{Field: "blood type", Reason: fmt.Sprintf("unknown blood type %q", reg.BloodType)}
	}

	donorID, err := donors.AddDonor(ctx, &db.Donor{
		FirstName:   reg.FirstName,
		LastName:    reg.LastName,
		DateOfBirth: reg.DateOfBirth,
		Gender:      reg.Gender,
		BloodTypeID: bloodType.ID,
		PhoneNumber: reg.PhoneNumber,
		Email:       reg.Email,
		Address:     reg.Address,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to add donor: %w", err)
	}

	logger.Info("Donor registered",
		zap.Int("donor_id", donorID),
		zap.String("blood_type", bloodType.Name))

	return donorID, nil
}

// RegisterReceiver validates the demographic and intake fields and
// records a new receiver with the resolved blood type.
func RegisterReceiver(ctx context.Context, receivers db.ReceiverStore, types db.BloodTypeStore, logger *zap.Logger, reg ReceiverRegistration) (int, error) {
	if err := validate.Struct(reg); err != nil {
		return 0, registrationError(err)
	}

	bloodType, err := types.GetBloodTypeByName(ctx, reg.BloodType)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve blood type: %w", err)
	}
	if bloodType == nil {
		return 0, &db.ValidationError{Field: "blood type", Reason: fmt.Sprintf("unknown blood type %q", reg.BloodType)}
	}

	receiverID, err := receivers.AddReceiver(ctx, &db.Receiver{
		FirstName:            reg.FirstName,
		LastName:             reg.LastName,
		DateOfBirth:          reg.DateOfBirth,
		Gender:               reg.Gender,
		BloodTypeID:          bloodType.ID,
		ReasonForTransfusion: reg.ReasonForTransfusion,
		HospitalName:         reg.HospitalName,
		WardDetails:          reg.WardDetails,
		ContactPersonName:    reg.ContactPersonName,
		ContactPersonPhone:   reg.ContactPersonPhone,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to add receiver: %w", err)
	}

	logger.Info("Receiver registered",
		zap.Int("receiver_id", receiverID),
		zap.String("blood_type", bloodType.Name),
		zap.String("hospital", reg.HospitalName))

	return receiverID, nil
}
