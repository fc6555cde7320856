package bind

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	perr "helioserve/internal/platform/errors"
)

type layerBody struct {
	SourceID int64   `json:"source_id" validate:"required,min=1"`
	Opacity  float64 `json:"opacity"   validate:"min=0,max=100"`
}

func TestParseJSON(t *testing.T) {
	cases := []struct {
		name string
		body string
		code perr.ErrorCode
	}{
		{"ok", `{"source_id":14,"opacity":50}`, 0},
		{"empty", ``, perr.ErrorCodeJSON},
		{"malformed", `{"source_id":`, perr.ErrorCodeJSON},
		{"unknown field", `{"source_id":1,"colour":"red"}`, perr.ErrorCodeJSON},
		{"trailing", `{"source_id":1} {}`, perr.ErrorCodeJSON},
		{"validation", `{"source_id":1,"opacity":101}`, perr.ErrorCodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			got, err := ParseJSON[layerBody](req)
			if tc.code == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.SourceID != 14 || got.Opacity != 50 {
					t.Fatalf("got %+v", got)
				}
				return
			}
			if perr.CodeOf(err) != tc.code {
				t.Fatalf("code = %v want %v (%v)", perr.CodeOf(err), tc.code, err)
			}
		})
	}
}

func TestParseJSON_ValidationCarriesFieldAndShortMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"source_id":1,"opacity":-1}`))
	_, err := ParseJSON[layerBody](req)
	e, ok := perr.As(err)
	if !ok {
		t.Fatalf("expected *perr.Error, got %T", err)
	}
	if e.Field() != "opacity" {
		t.Fatalf("field = %q", e.Field())
	}
	if e.Message() != "opacity must be at least 0" {
		t.Fatalf("message = %q", e.Message())
	}
}

type stackBody struct {
	Layers []layerBody `json:"layers" validate:"required,min=1,dive"`
	Scale  float64     `json:"scale"  validate:"gt=0"`
}

func (b stackBody) Check() error {
	if len(b.Layers) > 1 && b.Layers[0].SourceID == b.Layers[1].SourceID {
		return errors.New("layers repeat a source")
	}
	return nil
}

func TestParseJSON_Checker(t *testing.T) {
	cases := []struct {
		body  string
		code  perr.ErrorCode
		field string
		msg   string
	}{
		{`{"layers":[{"source_id":1},{"source_id":2}],"scale":1}`, 0, "", ""},
		{`{"layers":[{"source_id":1},{"source_id":1}],"scale":1}`, perr.ErrorCodeValidation, "", "layers repeat a source"},
		{`{"layers":[{"source_id":1}],"scale":0}`, perr.ErrorCodeValidation, "scale", "scale must be greater than 0"},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(c.body))
		_, err := ParseJSON[stackBody](req)
		if c.code == 0 {
			if err != nil {
				t.Fatalf("%s: %v", c.body, err)
			}
			continue
		}
		w := perr.WireFrom(err)
		if perr.CodeOf(err) != c.code || w.Field != c.field || w.Message != c.msg {
			t.Fatalf("%s: got %v %+v", c.body, perr.CodeOf(err), w)
		}
	}
}

func TestParseJSON_EmptyBodyToleratedOnGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	if _, err := ParseJSON[layerBody](req); err != nil {
		t.Fatalf("GET with empty body should be tolerated: %v", err)
	}
}

type tileQuery struct {
	Date    time.Time `query:"date"    validate:"required"`
	Size    int       `query:"size"    validate:"omitempty,min=64,max=1024"`
	Sharpen bool      `query:"sharpen"`
	Scale   float64   `query:"scale"`
	Name    string    `query:"name"`
}

func TestParseQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?date=2014-01-01T00:00:00.000Z&size=256&sharpen=true&scale=2.5&name=aia", nil)
	q, err := ParseQuery[tileQuery](req)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if !q.Date.Equal(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %v", q.Date)
	}
	if q.Size != 256 || !q.Sharpen || q.Scale != 2.5 || q.Name != "aia" {
		t.Fatalf("got %+v", q)
	}
}

func TestParseQuery_Errors(t *testing.T) {
	cases := map[string]string{
		"missing date": "/?size=256",
		"bad int":      "/?date=1388534400&size=big",
		"bad bool":     "/?date=1388534400&sharpen=maybe",
		"bad date":     "/?date=someday",
		"out of range": "/?date=1388534400&size=8",
	}
	for name, url := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseQuery[tileQuery](httptest.NewRequest(http.MethodGet, url, nil))
			if !perr.IsCode(err, perr.ErrorCodeValidation) {
				t.Fatalf("err = %v want validation", err)
			}
		})
	}
}
