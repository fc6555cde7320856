package bind

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	perr "helioserve/internal/platform/errors"
	ptime "helioserve/internal/platform/time"
)

var timeType = reflect.TypeOf(time.Time{})

// ParseQuery binds url query values into the `query:"name"` fields of T and validates it
// Supported kinds are string, bool, signed ints, floats and time.Time (observation layouts)
// Missing keys leave the zero value so `validate:"required"` decides
func ParseQuery[T any](r *http.Request) (T, error) {
	var dst T
	rv := reflect.ValueOf(&dst).Elem()
	if rv.Kind() != reflect.Struct {
		return dst, perr.Internalf("ParseQuery target must be a struct, got %s", rv.Kind())
	}
	q := r.URL.Query()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("query"), ",")
		if name == "" || name == "-" || !f.IsExported() {
			continue
		}
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		if err := setField(rv.Field(i), raw); err != nil {
			return dst, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s %v", name, err), name)
		}
	}
	if err := Validate(dst); err != nil {
		var zero T
		return zero, err
	}
	return dst, nil
}

func setField(v reflect.Value, raw string) error {
	if v.Type() == timeType {
		t, err := ptime.ParseObservation(raw)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(t))
		return nil
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return perr.InvalidArgf("must be a boolean")
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, v.Type().Bits())
		if err != nil {
			return perr.InvalidArgf("must be an integer")
		}
		v.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, v.Type().Bits())
		if err != nil {
			return perr.InvalidArgf("must be a number")
		}
		v.SetFloat(f)
	default:
		return perr.Internalf("unsupported kind %s", v.Kind())
	}
	return nil
}
