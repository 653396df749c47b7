package services

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"my-trips/internal/models"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the wire format of trip dates
const DateLayout = "2006-01-02"

const (
	msgDateOrder     = "Start date must be prior end date"
	msgDateFuture    = "Date must be in the past or present"
	msgDuplicateName = "Trip name already exists"
)

// AllowedPhotoTypes lists the accepted photo content types
var AllowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// TripForm holds the user-editable trip fields as submitted
type TripForm struct {
	Tripname     string `form:"tripname" validate:"required,max=100"`
	StartDate    string `form:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string `form:"endDate" validate:"omitempty,datetime=2006-01-02"`
	Location     string `form:"location" validate:"max=255"`
	Impressions  string `form:"impressions" validate:"max=5000"`
	Description1 string `form:"description1" validate:"max=5000"`
	Description2 string `form:"description2" validate:"max=5000"`
	Title1       string `form:"title1" validate:"max=255"`
	Title2       string `form:"title2" validate:"max=255"`
}

// Normalize trims surrounding whitespace from every field
func (f *TripForm) Normalize() {
	f.Tripname = strings.TrimSpace(f.Tripname)
	f.StartDate = strings.TrimSpace(f.StartDate)
	f.EndDate = strings.TrimSpace(f.EndDate)
	f.Location = strings.TrimSpace(f.Location)
	f.Impressions = strings.TrimSpace(f.Impressions)
	f.Description1 = strings.TrimSpace(f.Description1)
	f.Description2 = strings.TrimSpace(f.Description2)
	f.Title1 = strings.TrimSpace(f.Title1)
	f.Title2 = strings.TrimSpace(f.Title2)
}

// Upload is one submitted photo slot; an empty Data means no file was chosen
type Upload struct {
	Filename string
	Data     []byte
}

// Empty reports whether the slot carries no payload
func (u Upload) Empty() bool {
	return len(u.Data) == 0
}

// ContentType sniffs the payload type
func (u Upload) ContentType() string {
	return http.DetectContentType(u.Data)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// appendFieldErrors converts go-playground validator output into form messages
func appendFieldErrors(verr *ValidationError, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), fieldMessage(fe))
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "datetime":
		return "Invalid date, expected YYYY-MM-DD"
	case "alphanum":
		return "Only letters and digits are allowed"
	case "eqfield":
		return "Values do not match"
	default:
		return "Invalid value"
	}
}

// parseDate parses a form date in loc; empty input yields nil
func parseDate(value string, loc *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// checkDates applies the cross-field rules: start <= end, neither after today
func checkDates(verr *ValidationError, start, end *time.Time, today time.Time) {
	if start != nil && end != nil && end.Before(*start) {
		verr.Add("endDate", msgDateOrder)
	}
	if start != nil && start.After(today) {
		verr.Add("startDate", msgDateFuture)
	}
	if end != nil && end.After(today) {
		verr.Add("endDate", msgDateFuture)
	}
}

func checkUpload(verr *ValidationError, field string, u Upload, maxBytes int64) {
	if u.Empty() {
		return
	}
	if maxBytes > 0 && int64(len(u.Data)) > maxBytes {
		verr.Add(field, fmt.Sprintf("Photo is too large (max %d MB)", maxBytes>>20))
		return
	}
	if !AllowedPhotoTypes[u.ContentType()] {
		verr.Add(field, "Only JPEG, PNG and GIF photos are allowed")
	}
}

// TripFormFromModel returns the form values that reproduce trip
func TripFormFromModel(t *models.Trip) TripForm {
	return TripForm{
		Tripname:     t.Tripname,
		StartDate:    formatDate(t.StartDate),
		EndDate:      formatDate(t.EndDate),
		Location:     t.Location,
		Impressions:  t.Impressions,
		Description1: t.Description1,
		Description2: t.Description2,
		Title1:       t.Title1,
		Title2:       t.Title2,
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
