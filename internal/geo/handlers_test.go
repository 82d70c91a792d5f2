package geo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestGeocodeHandlerRequiresQuery(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/maps"), NewClient("key", nil))

	req := httptest.NewRequest(http.MethodGet, "/maps/geocode", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without q")
	}
}

func TestGeocodeHandler(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(geocodeBody))
	})

	c := testClient(t, backend, nil)
	app := fiber.New()
	RegisterRoutes(app.Group("/maps"), c)

	req := httptest.NewRequest(http.MethodGet, "/maps/geocode?q=Petrozavodsk", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("geocode status: %v", err)
	}
}

func TestLoaderHandlerBadGateway(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := testClient(t, backend, nil)
	app := fiber.New()
	RegisterRoutes(app.Group("/maps"), c)

	req := httptest.NewRequest(http.MethodGet, "/maps/loader", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502")
	}
}
