package nominatim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/KoTeHok22/locus/internal/core/domain"
)

func TestGeocodeParsesFirstResult(t *testing.T) {
	var capturedAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedAgent = r.Header.Get("User-Agent")
		if got := r.URL.Query().Get("q"); got != "Москва, ул. Строителей 1" {
			t.Errorf("unexpected query %q", got)
		}
		_, _ = w.Write([]byte(`[{"lat":"55.7558","lon":"37.6173"},{"lat":"0","lon":"0"}]`))
	}))
	defer server.Close()

	client := New(server.URL, "locus-test/1.0", nil)
	coords, err := client.Geocode(context.Background(), "Москва, ул. Строителей 1")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if coords.Latitude != 55.7558 || coords.Longitude != 37.6173 {
		t.Fatalf("unexpected coordinates %+v", coords)
	}
	if capturedAgent != "locus-test/1.0" {
		t.Fatalf("expected configured user agent, got %q", capturedAgent)
	}
}

func TestGeocodeUnknownAddressIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := New(server.URL, "", nil)
	_, err := client.Geocode(context.Background(), "несуществующий адрес")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGeocodeRejectsEmptyAddress(t *testing.T) {
	client := New("http://unused", "", nil)
	_, err := client.Geocode(context.Background(), "   ")
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
