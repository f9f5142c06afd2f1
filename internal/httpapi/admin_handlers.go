package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lafavorita/backend/internal/domain"
)

func (a *API) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := a.service.ListEmployees(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": employees})
}

func (a *API) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req domain.EmployeeCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	employee, err := a.service.CreateEmployee(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, employee)
}

func (a *API) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req domain.EmployeeUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	employee, err := a.service.UpdateEmployee(r.Context(), chi.URLParam(r, "username"), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employee)
}

func (a *API) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteEmployee(r.Context(), chi.URLParam(r, "username")); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	doc, err := a.service.ExportBackup(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\"lafavorita-backup.json\"")
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("could not read backup document"))
		return
	}

	if err := a.service.ImportBackup(r.Context(), raw); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": true})
}

func (a *API) handleResetData(w http.ResponseWriter, r *http.Request) {
	if err := a.service.ResetData(r.Context()); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reset": true})
}
