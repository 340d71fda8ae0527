package handler

import (
	"log/slog"
	"net/http"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/service"
)

// CatalogHandler serves the manufacturer, category and aircraft collections.
// Reads are public; writes sit behind the admin-or-key gate.
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogHandler{catalog: catalog, logger: logger}
}

func writeList(w http.ResponseWriter, count int, data interface{}) {
	writeJSON(w, http.StatusOK, model.ListResponse{Success: true, Count: count, Data: data})
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// ---------------------------------------------------------------------------
// Manufacturers
// ---------------------------------------------------------------------------

// ListManufacturers handles GET /api/manufacturers.
func (h *CatalogHandler) ListManufacturers(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.ListManufacturers(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Manufacturer")
		return
	}
	writeList(w, len(list), list)
}

// GetManufacturer handles GET /api/manufacturers/{id}.
func (h *CatalogHandler) GetManufacturer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Manufacturer not found")
		return
	}
	m, err := h.catalog.GetManufacturer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Manufacturer")
		return
	}
	writeData(w, http.StatusOK, m)
}

// CreateManufacturer handles POST /api/manufacturers.
func (h *CatalogHandler) CreateManufacturer(w http.ResponseWriter, r *http.Request) {
	m := model.Manufacturer{IsActive: true}
	if err := readJSON(r, &m); err != nil {
		writeBodyError(w, err)
		return
	}
	if err := h.catalog.CreateManufacturer(r.Context(), &m); err != nil {
		writeServiceError(w, r, h.logger, err, "Manufacturer")
		return
	}
	writeData(w, http.StatusCreated, m)
}

// UpdateManufacturer handles PUT /api/manufacturers/{id}. Fields absent from
// the body keep their stored values.
func (h *CatalogHandler) UpdateManufacturer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Manufacturer not found")
		return
	}
	m, err := h.catalog.GetManufacturer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Manufacturer")
		return
	}
	if err := readJSON(r, m); err != nil {
		writeBodyError(w, err)
		return
	}
	m.ID = id
	if err := h.catalog.UpdateManufacturer(r.Context(), m); err != nil {
		writeServiceError(w, r, h.logger, err, "Manufacturer")
		return
	}
	writeData(w, http.StatusOK, m)
}

// DeleteManufacturer handles DELETE /api/manufacturers/{id}.
func (h *CatalogHandler) DeleteManufacturer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Manufacturer not found")
		return
	}
	if err := h.catalog.DeleteManufacturer(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err, "Manufacturer")
		return
	}
	writeMessage(w, "Manufacturer deleted")
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

// ListCategories handles GET /api/categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Category")
		return
	}
	writeList(w, len(list), list)
}

// GetCategory handles GET /api/categories/{id}.
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Category not found")
		return
	}
	c, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Category")
		return
	}
	writeData(w, http.StatusOK, c)
}

// CreateCategory handles POST /api/categories.
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	c := model.Category{IsActive: true}
	if err := readJSON(r, &c); err != nil {
		writeBodyError(w, err)
		return
	}
	if err := h.catalog.CreateCategory(r.Context(), &c); err != nil {
		writeServiceError(w, r, h.logger, err, "Category")
		return
	}
	writeData(w, http.StatusCreated, c)
}

// UpdateCategory handles PUT /api/categories/{id}.
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Category not found")
		return
	}
	c, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Category")
		return
	}
	if err := readJSON(r, c); err != nil {
		writeBodyError(w, err)
		return
	}
	c.ID = id
	if err := h.catalog.UpdateCategory(r.Context(), c); err != nil {
		writeServiceError(w, r, h.logger, err, "Category")
		return
	}
	writeData(w, http.StatusOK, c)
}

// DeleteCategory handles DELETE /api/categories/{id}.
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Category not found")
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err, "Category")
		return
	}
	writeMessage(w, "Category deleted")
}

// ---------------------------------------------------------------------------
// Aircraft
// ---------------------------------------------------------------------------

// ListAircraft handles GET /api/aircraft with optional manufacturerId,
// categoryId and search filters.
func (h *CatalogHandler) ListAircraft(w http.ResponseWriter, r *http.Request) {
	filter := model.AircraftFilter{
		ManufacturerID: queryInt64(r, "manufacturerId"),
		CategoryID:     queryInt64(r, "categoryId"),
		Search:         r.URL.Query().Get("search"),
	}
	list, err := h.catalog.ListAircraft(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Aircraft")
		return
	}
	writeList(w, len(list), list)
}

// GetAircraft handles GET /api/aircraft/{id}.
func (h *CatalogHandler) GetAircraft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Aircraft not found")
		return
	}
	a, err := h.catalog.GetAircraft(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Aircraft")
		return
	}
	writeData(w, http.StatusOK, a)
}

// CreateAircraft handles POST /api/aircraft.
func (h *CatalogHandler) CreateAircraft(w http.ResponseWriter, r *http.Request) {
	a := model.Aircraft{IsActive: true}
	if err := readJSON(r, &a); err != nil {
		writeBodyError(w, err)
		return
	}
	if err := h.catalog.CreateAircraft(r.Context(), &a); err != nil {
		writeServiceError(w, r, h.logger, err, "Aircraft")
		return
	}
	writeData(w, http.StatusCreated, a)
}

// UpdateAircraft handles PUT /api/aircraft/{id}.
func (h *CatalogHandler) UpdateAircraft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Aircraft not found")
		return
	}
	a, err := h.catalog.GetAircraft(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Aircraft")
		return
	}
	if err := readJSON(r, a); err != nil {
		writeBodyError(w, err)
		return
	}
	a.ID = id
	if err := h.catalog.UpdateAircraft(r.Context(), a); err != nil {
		writeServiceError(w, r, h.logger, err, "Aircraft")
		return
	}
	writeData(w, http.StatusOK, a)
}

// DeleteAircraft handles DELETE /api/aircraft/{id}.
func (h *CatalogHandler) DeleteAircraft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Aircraft not found")
		return
	}
	if err := h.catalog.DeleteAircraft(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err, "Aircraft")
		return
	}
	writeMessage(w, "Aircraft deleted")
}
