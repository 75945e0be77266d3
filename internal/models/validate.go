package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// payload: opaque signaling JSON that must be present and not null.
	_ = v.RegisterValidation("payload", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.Slice {
			return false
		}
		raw := bytes.TrimSpace(field.Bytes())
		return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
	})
	return v
}

// Validate checks the struct tags of an inbound payload.
func Validate(payload any) error {
	return validate.Struct(payload)
}

// InvalidField returns the struct field and tag of the first failed rule.
func InvalidField(err error) (field, tag string, ok bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "", "", false
	}
	return verrs[0].StructField(), verrs[0].Tag(), true
}

// Decode unmarshals frame data into payload. Missing data decodes to the zero value.
func Decode(data json.RawMessage, payload any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, payload)
}
