package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ecofinance/internal/core"
	"ecofinance/internal/ledger"
	applog "ecofinance/internal/log"
	"ecofinance/internal/services"
)

type transactionsPage struct {
	page
	Groups     []core.MonthGroup
	ShowFuture bool
}

type transactionFormPage struct {
	page
	Categories []string
	Form       map[string]string
	Today      time.Time
}

type goalsPage struct {
	page
	Overview services.GoalOverview
}

type goalFormPage struct {
	page
	Form map[string]string
}

type budgetPage struct {
	page
	Budget    core.Budget
	HasBudget bool
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	data := transactionsPage{
		page:       s.newPage(r, "Transacciones", "transacciones"),
		ShowFuture: isChecked(r.URL.Query(), fieldMostrarFutura),
	}
	groups, err := s.transactions.ListByMonth(ctx, user.ID, s.now(), data.ShowFuture)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "List transactions failed", applog.FieldError, err.Error())
		data.Error = "No se pudieron cargar las transacciones."
	}
	data.Groups = groups
	s.render(w, r, http.StatusOK, "transactions.html", data)
}

func (s *Server) handleNewTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.renderTransactionForm(w, r, http.StatusOK, nil, "")
		return
	case http.MethodPost:
	default:
		MethodNotAllowedError("GET, POST").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	logger := applog.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		logger.WarnContext(ctx, "Parse form error", applog.FieldError, err.Error())
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}

	t, err := ParseTransactionForm(r.PostForm, user.ID, s.now())
	if err == nil {
		t, err = s.transactions.Create(ctx, t)
	}
	if err != nil {
		msg := userMessage(err, "")
		if msg == "" && isValidationError(err) {
			msg = "Datos inválidos: " + err.Error()
		}
		if msg == "" {
			logger.ErrorContext(ctx, "Create transaction failed", applog.FieldError, err.Error())
			msg = "Error al guardar la transacción"
			s.formFailure(w, r, http.StatusInternalServerError, msg, func() {
				s.renderTransactionForm(w, r, http.StatusInternalServerError, r.PostForm, msg)
			})
			return
		}
		s.formFailure(w, r, http.StatusUnprocessableEntity, msg, func() {
			s.renderTransactionForm(w, r, http.StatusUnprocessableEntity, r.PostForm, msg)
		})
		return
	}

	s.formSuccess(w, r, "/transacciones/", core.PeriodOf(t.Date).String(), "Transacción registrada")
}

func (s *Server) renderTransactionForm(w http.ResponseWriter, r *http.Request, status int, form map[string][]string, errMsg string) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "List categories failed", applog.FieldError, err.Error())
		cats = append([]string(nil), ledger.DefaultCategories...)
	}
	data := transactionFormPage{
		page:       s.newPage(r, "Nueva transacción", "transacciones"),
		Categories: cats,
		Form:       flatten(form),
		Today:      s.now(),
	}
	data.Error = errMsg
	s.render(w, r, status, "transaction_form.html", data)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	id, err := ParseID(r.PathValue("id"))
	if err != nil {
		BadRequestError("Identificador inválido").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	err = s.transactions.Delete(ctx, user.ID, id)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		NotFoundError("Transacción no encontrada").Write(w)
		return
	case err != nil:
		applog.FromContext(ctx).ErrorContext(ctx, "Delete transaction failed",
			applog.FieldTxID, id,
			applog.FieldError, err.Error())
		InternalServerError("Error al eliminar la transacción").Write(w)
		return
	}

	if isHTMX(r) {
		// the row swaps itself out with the empty body
		NewHTMXResponse().
			TriggerLedgerChanged(core.PeriodOf(s.now()).String()).
			TriggerSuccessNotification("Transacción eliminada").
			BodyHTML("").
			Write(w)
		return
	}
	http.Redirect(w, r, "/transacciones/", http.StatusSeeOther)
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	data := goalsPage{page: s.newPage(r, "Objetivos de ahorro", "objetivos")}
	overview, err := s.goals.Overview(ctx, user.ID, s.now())
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Goals overview failed", applog.FieldError, err.Error())
		data.Error = "No se pudieron cargar los objetivos."
	}
	data.Overview = overview
	s.render(w, r, http.StatusOK, "goals.html", data)
}

func (s *Server) handleNewGoal(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.render(w, r, http.StatusOK, "goal_form.html", goalFormPage{
			page: s.newPage(r, "Nuevo objetivo", "objetivos"),
			Form: map[string]string{fieldMontoActual: "0"},
		})
		return
	case http.MethodPost:
	default:
		MethodNotAllowedError("GET, POST").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := r.ParseForm(); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}
	g, err := ParseGoalForm(r.PostForm, user.ID)
	if err == nil {
		g, err = s.goals.CreateGoal(ctx, g)
	}
	if err != nil {
		status, msg := http.StatusUnprocessableEntity, userMessage(err, "")
		if msg == "" && isValidationError(err) {
			msg = "Por favor, corrige los errores en el formulario."
		}
		if msg == "" {
			applog.FromContext(ctx).ErrorContext(ctx, "Create goal failed", applog.FieldError, err.Error())
			status, msg = http.StatusInternalServerError, "Error al guardar el objetivo"
		}
		s.formFailure(w, r, status, msg, func() {
			data := goalFormPage{page: s.newPage(r, "Nuevo objetivo", "objetivos"), Form: flatten(r.PostForm)}
			data.Error = msg
			s.render(w, r, status, "goal_form.html", data)
		})
		return
	}

	applog.FromContext(ctx).InfoContext(ctx, "Goal created", "goal_id", g.ID)
	s.formSuccess(w, r, "/objetivos/", core.PeriodOf(s.now()).String(), `¡Objetivo "`+g.Name+`" creado exitosamente!`)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.renderBudget(ctx, w, r, user.ID, http.StatusOK, "")
		return
	case http.MethodPost:
	default:
		MethodNotAllowedError("GET, POST").Write(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}
	amount, err := ParseBudgetForm(r.PostForm)
	if err == nil {
		_, err = s.goals.SetBudget(ctx, user.ID, amount)
	}
	if err != nil {
		status, msg := http.StatusUnprocessableEntity, userMessage(err, "")
		if msg == "" {
			applog.FromContext(ctx).ErrorContext(ctx, "Set budget failed", applog.FieldError, err.Error())
			status, msg = http.StatusInternalServerError, "Error al guardar el presupuesto"
		}
		s.formFailure(w, r, status, msg, func() {
			s.renderBudget(ctx, w, r, user.ID, status, msg)
		})
		return
	}
	s.formSuccess(w, r, "/", core.PeriodOf(s.now()).String(), "Presupuesto actualizado")
}

func (s *Server) renderBudget(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64, status int, errMsg string) {
	data := budgetPage{page: s.newPage(r, "Presupuesto", "presupuesto")}
	data.Error = errMsg
	b, err := s.goals.CurrentBudget(ctx, userID)
	switch {
	case err == nil:
		data.Budget, data.HasBudget = b, true
	case !errors.Is(err, ledger.ErrNotFound):
		applog.FromContext(ctx).ErrorContext(ctx, "Load budget failed", applog.FieldError, err.Error())
	}
	s.render(w, r, status, "budget.html", data)
}

// formFailure answers htmx submissions with an error fragment and plain
// form posts with the re-rendered page.
func (s *Server) formFailure(w http.ResponseWriter, r *http.Request, status int, msg string, rerender func()) {
	if isHTMX(r) {
		switch status {
		case http.StatusUnprocessableEntity:
			UnprocessableEntityError(msg).Write(w)
		case http.StatusInternalServerError:
			InternalServerError(msg).Write(w)
		default:
			ErrorResponse(status, msg).Write(w)
		}
		return
	}
	rerender()
}

// formSuccess redirects after a successful post (post/redirect/get).
func (s *Server) formSuccess(w http.ResponseWriter, r *http.Request, target, period, notice string) {
	if isHTMX(r) {
		NewHTMXResponse().
			TriggerLedgerChanged(period).
			TriggerSuccessNotification(notice).
			Redirect(target).
			Write(w)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount, core.ErrInvalidType, core.ErrInvalidDate,
		core.ErrEmptyDescription, core.ErrInvalidPeriodicity, core.ErrEmptyName,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func flatten(form map[string][]string) map[string]string {
	out := make(map[string]string, len(form))
	for k, v := range form {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
