package application

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/stackernews/oauthd/oauth"
	"github.com/stackernews/oauthd/scope"
)

// Fields is the one constraint table shared by registration and updates
type Fields struct {
	Name         string   `json:"name"         validate:"required,min=3,max=100"`
	Description  *string  `json:"description"  validate:"omitempty,max=500"`
	HomepageURL  *string  `json:"homepageUrl"  validate:"omitempty,httpurl"`
	LogoURL      *string  `json:"logoUrl"      validate:"omitempty,httpurl"`
	RedirectURIs []string `json:"redirectUris" validate:"required,min=1,max=10,dive,required,httpurl"`
	Scopes       []string `json:"scopes"       validate:"required,min=1,dive,required,scope"`
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return isHTTPURL(fl.Field().String())
	})
	_ = v.RegisterValidation("scope", func(fl validator.FieldLevel) bool {
		return scope.IsKnown(fl.Field().String())
	})
	return v
}()

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

var messages = map[string]string{
	"required": "is required",
	"httpurl":  "must be an absolute http(s) url",
	"scope":    "is not a known scope",
}

func message(fe validator.FieldError) string {
	if m, ok := messages[fe.Tag()]; ok {
		return m
	}
	unit := "characters"
	if fe.Kind() == reflect.Slice {
		unit = "entries"
	}
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("must have at least %s %s", fe.Param(), unit)
	case "max":
		return fmt.Sprintf("must have at most %s %s", fe.Param(), unit)
	}
	return "is invalid"
}

// normalize trims and composes the free text fields, lengths are counted on the NFC form
func (f *Fields) normalize() {
	f.Name = norm.NFC.String(strings.TrimSpace(f.Name))
	text := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := norm.NFC.String(strings.TrimSpace(*p))
		if v == "" {
			return nil
		}
		return &v
	}
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		if v == "" {
			return nil
		}
		return &v
	}
	f.Description = text(f.Description)
	f.HomepageURL = trim(f.HomepageURL)
	f.LogoURL = trim(f.LogoURL)
}

// Validate checks every constraint and reports all violations at once
func (f *Fields) Validate() error {
	f.normalize()
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return oauth.Internal(err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := strings.TrimPrefix(fe.Namespace(), "Fields.")
		if _, exists := fields[key]; !exists {
			fields[key] = message(fe)
		}
	}
	return oauth.Validation(fields)
}

// scopes converts the validated scope strings
func (f *Fields) scopes() scope.Set {
	set, _ := scope.FromStrings(f.Scopes)
	return set
}
