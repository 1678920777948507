package handlers_test

import (
	"net/http"
	"testing"

	"github.com/xtinaharwell/wild-wash-api/internal/modules/location"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
)

func TestLocations_AdminOnlyWrites(t *testing.T) {
	api := newTestAPI(t)
	api.addUser(t, "cust", users.RoleCustomer, nil)
	api.addUser(t, "boss", users.RoleAdmin, nil)

	body := map[string]any{"name": "Kilimani", "description": "Argwings Kodhek Rd"}
	if w := api.do(http.MethodPost, "/api/locations", body, "cust"); w.Code != http.StatusForbidden {
		t.Errorf("customer create: expected 403, got %d", w.Code)
	}
	w := api.do(http.MethodPost, "/api/locations", body, "boss")
	if w.Code != http.StatusCreated {
		t.Fatalf("admin create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created location.Location
	decode(t, w, &created)
	if !created.IsActive {
		t.Errorf("new locations start active")
	}

	if w := api.do(http.MethodPost, "/api/locations", map[string]any{"name": "kilimani"}, "boss"); w.Code != http.StatusConflict {
		t.Errorf("duplicate name: expected 409, got %d", w.Code)
	}
	if w := api.do(http.MethodPost, "/api/locations", map[string]any{"name": "  "}, "boss"); w.Code != http.StatusBadRequest {
		t.Errorf("blank name: expected 400, got %d", w.Code)
	}

	path := "/api/locations/" + created.ID.String()
	if w := api.do(http.MethodPatch, path, map[string]any{}, "boss"); w.Code != http.StatusBadRequest {
		t.Errorf("missing is_active: expected 400, got %d", w.Code)
	}
	w = api.do(http.MethodPatch, path, map[string]any{"is_active": false}, "boss")
	if w.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d", w.Code)
	}
	if w := api.do(http.MethodPatch, "/api/locations/4040", map[string]any{"is_active": true}, "boss"); w.Code != http.StatusNotFound {
		t.Errorf("unknown location: expected 404, got %d", w.Code)
	}

	var list struct {
		Locations []location.Location `json:"locations"`
	}
	decode(t, api.do(http.MethodGet, "/api/locations", nil, "cust"), &list)
	if len(list.Locations) != 1 || list.Locations[0].Name != "Westside" {
		t.Errorf("active list should only hold Westside, got %+v", list.Locations)
	}
	decode(t, api.do(http.MethodGet, "/api/locations?all=true", nil, "cust"), &list)
	if len(list.Locations) != 2 {
		t.Errorf("full list should hold 2 locations, got %d", len(list.Locations))
	}
}
