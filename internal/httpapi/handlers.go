package httpapi

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/report"
	"retailhub/backend/internal/session"
)

// refreshed re-reads kind before a listing. A failed read serves the last
// loaded view.
func refreshed(r *http.Request, sess *session.Session, kind domain.Kind) session.Snapshot {
	if err := sess.Refresh(r.Context(), kind); err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("serving stale view")
	}
	return sess.Snapshot()
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	a.withSession(w, r, func(sess *session.Session) {
		switch r.Method {
		case http.MethodGet:
			snap := refreshed(r, sess, domain.KindProducts)
			writeJSON(w, http.StatusOK, map[string]any{"products": snap.Products})
		case http.MethodPost:
			if !isAdmin(r) {
				writeError(w, http.StatusForbidden, errNoAccess)
				return
			}
			var req domain.ProductCreateRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			product, err := sess.AddProduct(r.Context(), req)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusCreated, product)
		default:
			writeMethodNotAllowed(w)
		}
	})
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	a.withSession(w, r, func(sess *session.Session) {
		id := r.PathValue("id")
		switch r.Method {
		case http.MethodPatch:
			var req domain.ProductUpdateRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			product, err := sess.UpdateProduct(r.Context(), id, req)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusOK, product)
		case http.MethodDelete:
			a.deleteRecord(w, r, sess, domain.KindProducts, id)
		default:
			writeMethodNotAllowed(w)
		}
	})
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	a.withSession(w, r, func(sess *session.Session) {
		categories, err := sess.Categories(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
	})
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	a.withSession(w, r, func(sess *session.Session) {
		switch r.Method {
		case http.MethodGet:
			snap := refreshed(r, sess, domain.KindSales)
			sales := snap.Sales
			if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
				sales = report.RecentSales(sales, limit)
			}
			writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
		case http.MethodPost:
			var req domain.SaleRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			sale, err := sess.RecordSale(r.Context(), req)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusCreated, sale)
		default:
			writeMethodNotAllowed(w)
		}
	})
}

func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	a.withSession(w, r, func(sess *session.Session) {
		id := r.PathValue("id")
		switch r.Method {
		case http.MethodGet:
			sale, err := sess.Sale(r.Context(), id)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusOK, sale)
		case http.MethodDelete:
			a.deleteRecord(w, r, sess, domain.KindSales, id)
		default:
			writeMethodNotAllowed(w)
		}
	})
}

func (a *API) handleReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	a.withSession(w, r, func(sess *session.Session) {
		sale, err := sess.Sale(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, report.BuildReceipt(sess.Settings(), sale))
	})
}

func (a *API) handleReceiptPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	a.withSession(w, r, func(sess *session.Session) {
		sale, err := sess.Sale(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		settings := sess.Settings()
		var buf bytes.Buffer
		if err := report.RenderReceiptPDF(&buf, report.BuildReceipt(settings, sale)); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+report.ReceiptFileName(settings.Name, sale.ID)+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	})
}

func (a *API) handleSalesExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	a.withSession(w, r, func(sess *session.Session) {
		snap := refreshed(r, sess, domain.KindSales)
		var buf bytes.Buffer
		if err := report.WriteSalesWorkbook(&buf, snap.Sales); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="sales.xlsx"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	})
}

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	a.withSession(w, r, func(sess *session.Session) {
		switch r.Method {
		case http.MethodGet:
			snap := refreshed(r, sess, domain.KindCustomers)
			writeJSON(w, http.StatusOK, map[string]any{"customers": snap.Customers})
		case http.MethodPost:
			var req domain.CustomerCreateRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			customer, err := sess.AddCustomer(r.Context(), req)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusCreated, customer)
		default:
			writeMethodNotAllowed(w)
		}
	})
}

func (a *API) handleCustomerActions(w http.ResponseWriter, r *http.Request) {
	a.withSession(w, r, func(sess *session.Session) {
		id := r.PathValue("id")
		switch r.Method {
		case http.MethodPatch:
			var req domain.CustomerUpdateRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			customer, err := sess.UpdateCustomer(r.Context(), id, req)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusOK, customer)
		case http.MethodDelete:
			a.deleteRecord(w, r, sess, domain.KindCustomers, id)
		default:
			writeMethodNotAllowed(w)
		}
	})
}

func (a *API) handleSuppliers(w http.ResponseWriter, r *http.Request) {
	a.withSession(w, r, func(sess *session.Session) {
		switch r.Method {
		case http.MethodGet:
			snap := refreshed(r, sess, domain.KindSuppliers)
			writeJSON(w, http.StatusOK, map[string]any{"suppliers": snap.Suppliers})
		case http.MethodPost:
			var req domain.SupplierCreateRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			supplier, err := sess.AddSupplier(r.Context(), req)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusCreated, supplier)
		default:
			writeMethodNotAllowed(w)
		}
	})
}

func (a *API) handleSupplierActions(w http.ResponseWriter, r *http.Request) {
	a.withSession(w, r, func(sess *session.Session) {
		id := r.PathValue("id")
		switch r.Method {
		case http.MethodPatch:
			var req domain.SupplierUpdateRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			supplier, err := sess.UpdateSupplier(r.Context(), id, req)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusOK, supplier)
		case http.MethodDelete:
			a.deleteRecord(w, r, sess, domain.KindSuppliers, id)
		default:
			writeMethodNotAllowed(w)
		}
	})
}

func (a *API) handleExpenses(w http.ResponseWriter, r *http.Request) {
	a.withSession(w, r, func(sess *session.Session) {
		switch r.Method {
		case http.MethodGet:
			snap := refreshed(r, sess, domain.KindExpenses)
			writeJSON(w, http.StatusOK, map[string]any{"expenses": snap.Expenses})
		case http.MethodPost:
			var req domain.ExpenseCreateRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			expense, err := sess.AddExpense(r.Context(), req)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusCreated, expense)
		default:
			writeMethodNotAllowed(w)
		}
	})
}

func (a *API) handleExpenseActions(w http.ResponseWriter, r *http.Request) {
	a.withSession(w, r, func(sess *session.Session) {
		id := r.PathValue("id")
		switch r.Method {
		case http.MethodPatch:
			var req domain.ExpenseUpdateRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			expense, err := sess.UpdateExpense(r.Context(), id, req)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusOK, expense)
		case http.MethodDelete:
			a.deleteRecord(w, r, sess, domain.KindExpenses, id)
		default:
			writeMethodNotAllowed(w)
		}
	})
}

func (a *API) handlePurchases(w http.ResponseWriter, r *http.Request) {
	a.withSession(w, r, func(sess *session.Session) {
		switch r.Method {
		case http.MethodGet:
			snap := refreshed(r, sess, domain.KindPurchases)
			writeJSON(w, http.StatusOK, map[string]any{"purchases": snap.Purchases})
		case http.MethodPost:
			var req domain.PurchaseRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			purchase, err := sess.RecordPurchase(r.Context(), req)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusCreated, purchase)
		default:
			writeMethodNotAllowed(w)
		}
	})
}

func (a *API) handlePurchaseActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	a.withSession(w, r, func(sess *session.Session) {
		a.deleteRecord(w, r, sess, domain.KindPurchases, r.PathValue("id"))
	})
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	a.withSession(w, r, func(sess *session.Session) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, sess.Settings())
		case http.MethodPatch:
			if !isAdmin(r) {
				writeError(w, http.StatusForbidden, errNoAccess)
				return
			}
			var req domain.SettingsUpdateRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			settings, err := sess.UpdateSettings(r.Context(), req)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusOK, settings)
		default:
			writeMethodNotAllowed(w)
		}
	})
}

func (a *API) handleActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	a.withSession(w, r, func(sess *session.Session) {
		writeJSON(w, http.StatusOK, map[string]any{"activities": sess.Activities()})
	})
}

func (a *API) handleSessionSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	a.withSession(w, r, func(sess *session.Session) {
		writeJSON(w, http.StatusOK, sess.Snapshot())
	})
}

func reportInput(snap session.Snapshot) report.Input {
	return report.Input{
		Products:  snap.Products,
		Sales:     snap.Sales,
		Customers: snap.Customers,
		Expenses:  snap.Expenses,
	}
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	a.withSession(w, r, func(sess *session.Session) {
		writeJSON(w, http.StatusOK, report.Dashboard(reportInput(sess.Snapshot()), a.now()))
	})
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	a.withSession(w, r, func(sess *session.Session) {
		writeJSON(w, http.StatusOK, report.BuildSummary(reportInput(sess.Snapshot())))
	})
}

func (a *API) handleCashiers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"cashiers": a.auth.ListCashiers(r.Context())})
	case http.MethodPost:
		var req domain.CashierCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		user, err := a.auth.CreateCashier(r.Context(), req)
		switch {
		case errors.Is(err, ErrUserExists):
			writeError(w, http.StatusConflict, err)
			return
		case err != nil:
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	default:
		writeMethodNotAllowed(w)
	}
}
