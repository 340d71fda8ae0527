package handler

import (
	"fmt"
	"net/http"
	"testing"
)

type dataEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		ModelName string `json:"modelName"`
		Country   string `json:"country"`
		IsActive  bool   `json:"isActive"`
	} `json:"data"`
}

func (e *testEnv) create(t *testing.T, path string, body interface{}) int64 {
	t.Helper()
	rr := e.do(t, "POST", path, toJSON(t, body), hdrAdmin, "1")
	assertStatus(t, rr, http.StatusCreated)
	var resp dataEnvelope
	decodeJSON(t, rr, &resp)
	return resp.Data.ID
}

// seedCatalog creates Boeing, Airbus, a narrow-body category and two
// aircraft.
func (e *testEnv) seedCatalog(t *testing.T) (boeing, airbus, narrow int64) {
	t.Helper()
	boeing = e.create(t, "/api/manufacturers", map[string]interface{}{"name": "Boeing", "country": "USA"})
	airbus = e.create(t, "/api/manufacturers", map[string]interface{}{"name": "Airbus", "country": "France"})
	narrow = e.create(t, "/api/categories", map[string]interface{}{"name": "Narrow-body"})
	e.create(t, "/api/aircraft", map[string]interface{}{
		"modelName": "737-800", "manufacturerId": boeing, "categoryId": narrow,
		"range": 5436, "maxPassengers": 189, "description": "Next Generation 737",
	})
	e.create(t, "/api/aircraft", map[string]interface{}{
		"modelName": "A320neo", "manufacturerId": airbus, "categoryId": narrow,
		"range": 6300, "maxPassengers": 194,
	})
	return boeing, airbus, narrow
}

func TestManufacturerCRUD(t *testing.T) {
	env := newTestEnv(t)
	id := env.create(t, "/api/manufacturers", map[string]interface{}{
		"name": "Embraer", "country": "Brazil", "foundedYear": 1969,
	})

	rr := env.do(t, "GET", fmt.Sprintf("/api/manufacturers/%d", id), nil)
	assertStatus(t, rr, http.StatusOK)
	var got dataEnvelope
	decodeJSON(t, rr, &got)
	if got.Data.Name != "Embraer" || !got.Data.IsActive {
		t.Errorf("got %+v", got.Data)
	}

	rr = env.do(t, "PUT", fmt.Sprintf("/api/manufacturers/%d", id),
		toJSON(t, map[string]interface{}{"description": "Regional jets"}), hdrAdmin, "1")
	assertStatus(t, rr, http.StatusOK)
	decodeJSON(t, rr, &got)
	if got.Data.Name != "Embraer" || got.Data.Country != "Brazil" {
		t.Errorf("partial update lost fields: %+v", got.Data)
	}

	rr = env.do(t, "GET", "/api/manufacturers", nil)
	assertStatus(t, rr, http.StatusOK)
	var list struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
	}
	decodeJSON(t, rr, &list)
	if !list.Success || list.Count != 1 {
		t.Errorf("list = %+v", list)
	}

	rr = env.do(t, "DELETE", fmt.Sprintf("/api/manufacturers/%d", id), nil, hdrAdmin, "1")
	assertStatus(t, rr, http.StatusOK)
	rr = env.do(t, "GET", fmt.Sprintf("/api/manufacturers/%d", id), nil)
	assertStatus(t, rr, http.StatusNotFound)
	if msg := decodeError(t, rr).Message; msg != "Manufacturer not found" {
		t.Errorf("message = %q", msg)
	}
}

func TestCatalogValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		path string
		body map[string]interface{}
		want string
	}{
		{"/api/manufacturers", map[string]interface{}{"country": "USA"}, "Manufacturer name is required"},
		{"/api/categories", map[string]interface{}{"name": " "}, "Category name is required"},
		{"/api/aircraft", map[string]interface{}{"modelName": "777"}, "modelName, manufacturerId, and categoryId are required"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := env.do(t, "POST", tt.path, toJSON(t, tt.body), hdrAdmin, "1")
			assertStatus(t, rr, http.StatusBadRequest)
			if msg := decodeError(t, rr).Message; msg != tt.want {
				t.Errorf("message = %q, want %q", msg, tt.want)
			}
		})
	}
}

func TestCreateAircraft_DanglingReference(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "POST", "/api/aircraft", toJSON(t, map[string]interface{}{
		"modelName": "Ghost", "manufacturerId": 99, "categoryId": 98,
	}), hdrAdmin, "1")
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestCatalogConflicts(t *testing.T) {
	env := newTestEnv(t)
	boeing, _, narrow := env.seedCatalog(t)

	rr := env.do(t, "POST", "/api/manufacturers", toJSON(t, map[string]string{"name": "Boeing"}), hdrAdmin, "1")
	assertStatus(t, rr, http.StatusConflict)
	if msg := decodeError(t, rr).Message; msg != "Manufacturer already exists" {
		t.Errorf("message = %q", msg)
	}

	rr = env.do(t, "DELETE", fmt.Sprintf("/api/manufacturers/%d", boeing), nil, hdrAdmin, "1")
	assertStatus(t, rr, http.StatusConflict)

	rr = env.do(t, "DELETE", fmt.Sprintf("/api/categories/%d", narrow), nil, hdrAdmin, "1")
	assertStatus(t, rr, http.StatusConflict)
	if msg := decodeError(t, rr).Message; msg != "Category is still referenced by aircraft" {
		t.Errorf("message = %q", msg)
	}
}

func TestListAircraftFilters(t *testing.T) {
	env := newTestEnv(t)
	boeing, airbus, narrow := env.seedCatalog(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"737-800", "A320neo"}},
		{fmt.Sprintf("?manufacturerId=%d", boeing), []string{"737-800"}},
		{fmt.Sprintf("?manufacturerId=%d", airbus), []string{"A320neo"}},
		{fmt.Sprintf("?categoryId=%d", narrow), []string{"737-800", "A320neo"}},
		{"?search=a320", []string{"A320neo"}},
		{"?search=next%20generation", []string{"737-800"}},
		{"?search=concorde", []string{}},
		{"?manufacturerId=abc", []string{"737-800", "A320neo"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := env.do(t, "GET", "/api/aircraft"+tt.query, nil)
			assertStatus(t, rr, http.StatusOK)
			var resp struct {
				Count int `json:"count"`
				Data  []struct {
					ModelName string `json:"modelName"`
				} `json:"data"`
			}
			decodeJSON(t, rr, &resp)
			if resp.Count != len(tt.want) || len(resp.Data) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(resp.Data), len(tt.want))
			}
			for i, name := range tt.want {
				if resp.Data[i].ModelName != name {
					t.Errorf("result %d = %q, want %q", i, resp.Data[i].ModelName, name)
				}
			}
		})
	}
}

func TestUpdateAndDeleteAircraft(t *testing.T) {
	env := newTestEnv(t)
	boeing, _, narrow := env.seedCatalog(t)
	id := env.create(t, "/api/aircraft", map[string]interface{}{
		"modelName": "757-200", "manufacturerId": boeing, "categoryId": narrow,
	})

	rr := env.do(t, "PUT", fmt.Sprintf("/api/aircraft/%d", id),
		toJSON(t, map[string]interface{}{"modelName": "757-300"}), hdrAdmin, "1")
	assertStatus(t, rr, http.StatusOK)
	var got dataEnvelope
	decodeJSON(t, rr, &got)
	if got.Data.ModelName != "757-300" {
		t.Errorf("modelName = %q", got.Data.ModelName)
	}

	rr = env.do(t, "DELETE", fmt.Sprintf("/api/aircraft/%d", id), nil, hdrAdmin, "1")
	assertStatus(t, rr, http.StatusOK)
	rr = env.do(t, "DELETE", fmt.Sprintf("/api/aircraft/%d", id), nil, hdrAdmin, "1")
	assertStatus(t, rr, http.StatusNotFound)
	if msg := decodeError(t, rr).Message; msg != "Aircraft not found" {
		t.Errorf("message = %q", msg)
	}
}

func TestCatalogBadIDs(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/manufacturers/x", "/api/categories/0", "/api/aircraft/-1"} {
		rr := env.do(t, "GET", path, nil)
		assertStatus(t, rr, http.StatusNotFound)
	}
}
