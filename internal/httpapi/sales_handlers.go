package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lafavorita/backend/internal/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (a *API) handleOpenCart(w http.ResponseWriter, r *http.Request) {
	cart, err := a.service.OpenCart(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cart)
}

func (a *API) handleGetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := a.service.GetCart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (a *API) handleDiscardCart(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DiscardCart(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAddCartLine(w http.ResponseWriter, r *http.Request) {
	var req domain.CartLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cart, err := a.service.AddToCart(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (a *API) handleUpdateCartLine(w http.ResponseWriter, r *http.Request) {
	var req domain.CartLineUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if packageParam(r) {
		req.SellByPackage = true
	}

	cart, err := a.service.UpdateCartLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (a *API) handleRemoveCartLine(w http.ResponseWriter, r *http.Request) {
	cart, err := a.service.RemoveCartLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"), packageParam(r))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.CompleteSale(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := a.service.ListSales(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": sales})
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	rep, err := a.service.SalesReport(r.Context(), r.URL.Query().Get("range"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *API) handleSalesWorkbook(w http.ResponseWriter, r *http.Request) {
	rangeParam := r.URL.Query().Get("range")

	var buf bytes.Buffer
	if err := a.service.WriteSalesWorkbook(r.Context(), rangeParam, &buf); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if rangeParam == "" {
		rangeParam = "today"
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"ventas-%s.xlsx\"", rangeParam))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (a *API) handleCashDrawer(w http.ResponseWriter, r *http.Request) {
	summary, err := a.service.CashDrawer(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func packageParam(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("package"))
	return err == nil && v
}
