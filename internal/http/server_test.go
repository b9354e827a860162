package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecofinance/internal/auth"
	"ecofinance/internal/cache"
	"ecofinance/internal/core"
	"ecofinance/internal/ledger"
	"ecofinance/internal/ledger/memory"
	applog "ecofinance/internal/log"
	"ecofinance/internal/recommend"
	"ecofinance/internal/services"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type fakeRecommender struct {
	text  string
	err   error
	calls int
}

func (f *fakeRecommender) Recommend(_ context.Context, _ int64, _ core.Period) (string, error) {
	f.calls++
	return f.text, f.err
}

type testEnv struct {
	srv   *Server
	store *memory.Store
	rec   *fakeRecommender
	user  core.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New(ledger.DefaultCategories)
	logger := applog.New(applog.Config{Output: &bytes.Buffer{}})

	loader := services.NewDashboardLoader(store, store, store, cache.NewLRUCache[core.DashboardSummary](100, time.Minute))
	processor := services.NewLedgerProcessor(store, nil, logger, loader)
	accounts := auth.NewService(store)
	rec := &fakeRecommender{text: "## Consejos\n\n- Ahorra más"}

	srv := NewServer(":0", Deps{
		Store:        store,
		Transactions: services.NewTransactionService(store, nil, processor, logger, loader),
		Dashboard:    loader,
		Goals:        services.NewGoalService(store, store, loader),
		Recommender:  rec,
		Markdown:     recommend.NewMarkdown(),
		Sessions:     auth.NewManager("test-secret-0123456789abcdef", time.Hour),
		Accounts:     accounts,
		Logger:       logger,
	}, Options{RateLimitPerMinute: 1000, Now: func() time.Time { return testNow }})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	require.NotNil(t, srv.templates, "templates must parse")

	user, err := accounts.Register(context.Background(), auth.Registration{
		Username: "ana", Email: "ana@example.com", Password: "secreto123", Password2: "secreto123",
	})
	require.NoError(t, err)
	return &testEnv{srv: srv, store: store, rec: rec, user: user}
}

func (e *testEnv) do(t *testing.T, req *http.Request, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	if authed {
		cookies := httptest.NewRecorder()
		require.NoError(t, e.srv.sessions.SetCookie(cookies, e.user.ID))
		for _, c := range cookies.Result().Cookies() {
			req.AddCookie(c)
		}
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (e *testEnv) addTx(t *testing.T, typ core.TransactionType, desc, cat string, amount int64, d time.Time) core.Transaction {
	t.Helper()
	tx, err := e.store.CreateTransaction(context.Background(), core.Transaction{
		UserID: e.user.ID, Type: typ, Description: desc, Category: cat, Amount: core.MoneyFromInt(amount), Date: d,
	})
	require.NoError(t, err)
	return tx
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/objetivos/", nil), false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login/?next=%2Fobjetivos%2F", rec.Header().Get("Location"))
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.addTx(t, core.Income, "Sueldo", "", 100000, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	env.addTx(t, core.Expense, "Arriendo", "Vivienda", 250000, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	env.addTx(t, core.Expense, "Bus", "Transporte", 5000, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil), true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	for _, id := range []string{
		`id="saldo-total-data"`, `id="gastos-categorias-data"`, `id="gastos-mes-data"`,
		`id="negativeBalanceAlert"`, `id="balanceChart"`, `id="gastosMesChart"`, `id="donut-legend"`,
		`id="mes_anio"`, `id="btn-recomendaciones"`, `id="recomendaciones-container"`, `id="recomendaciones-texto"`,
	} {
		assert.Contains(t, body, id)
	}
	assert.Contains(t, body, `data-hide-after="5000"`)
	assert.Contains(t, body, "Vivienda: $250.000")
	assert.Contains(t, body, "-$155.000", "balance is cumulative up to today")
	assert.Contains(t, body, `<option value="2024-03"`)
	assert.NotContains(t, body, "Transporte:", "February rows stay out of the March legend")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestDashboardOtherPeriodWithoutAlert(t *testing.T) {
	env := newTestEnv(t)
	env.addTx(t, core.Expense, "Arriendo", "Vivienda", 250000, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	env.addTx(t, core.Income, "Sueldo", "", 900000, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC))

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/?mes_anio=2023-12&grafico=line", nil), true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, `id="negativeBalanceAlert"`)
	assert.Contains(t, body, `<option value="2023-12"`)
	assert.Contains(t, body, `"type":"line"`)
}

func TestDashboardBadPeriodFallsBackToCurrentMonth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/?mes_anio=2024-13", nil), true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mes_anio=2024-03")
}

func TestGenerateRecommendations(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/generar-recomendaciones/?mes_anio=2024-03", nil), true)
	require.Equal(t, http.StatusOK, rec.Code)
	var ok map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.Equal(t, env.rec.text, ok["recomendaciones"])
	assert.NotContains(t, ok, "error")

	env.rec.err = errors.New("proveedor caído")
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/generar-recomendaciones/", nil), true)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	var failed map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failed))
	assert.Equal(t, "proveedor caído", failed["error"])
	assert.NotContains(t, failed, "recomendaciones")
}

func TestRecommendationPanel(t *testing.T) {
	env := newTestEnv(t)
	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ui/recomendaciones?mes_anio=2024-03", nil)
		r.Header.Set("HX-Request", "true")
		return r
	}

	rec := env.do(t, req(), true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-state="populated"`)
	assert.Contains(t, rec.Body.String(), "<h2>Consejos</h2>")
	assert.Contains(t, rec.Body.String(), "<li>Ahorra más</li>")

	env.rec.text = "   "
	rec = env.do(t, req(), true)
	assert.Contains(t, rec.Body.String(), `data-state="fallback"`)
	assert.Contains(t, rec.Body.String(), "No se pudieron generar recomendaciones.")

	env.rec.err = errors.New("timeout")
	rec = env.do(t, req(), true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-state="error"`)
	assert.Contains(t, rec.Body.String(), "Error: timeout")
}

func TestCreateTransaction(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/transacciones/nueva/", nil), true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="esFijo"`)
	assert.Contains(t, rec.Body.String(), `value="2024-03-15"`)

	rec = env.do(t, postForm("/transacciones/nueva/", url.Values{
		"tipo": {"GASTO"}, "descripcion": {"Supermercado"}, "monto": {"35990"}, "categoria": {"Alimentación"},
	}), true)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/transacciones/", rec.Header().Get("Location"))

	txs, err := env.store.ListTransactions(context.Background(), ledger.Filter{UserID: env.user.ID})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Supermercado", txs[0].Description)
	assert.True(t, txs[0].Date.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/transacciones/", nil), true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Supermercado")
	assert.Contains(t, rec.Body.String(), "$35.990")
}

func TestCreateRecurringTransactionExpandsSeries(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, postForm("/transacciones/nueva/", url.Values{
		"tipo": {"GASTO"}, "descripcion": {"Gimnasio"}, "monto": {"20000"},
		"esFijo": {"on"}, "periodicidad": {"mensual"}, "fechaInicio": {"2024-01-10"}, "fechaFin": {"2024-04-10"},
	}), true)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	txs, err := env.store.ListTransactions(context.Background(), ledger.Filter{UserID: env.user.ID})
	require.NoError(t, err)
	assert.Len(t, txs, 4)
}

func TestCreateTransactionValidation(t *testing.T) {
	env := newTestEnv(t)
	bad := url.Values{"tipo": {"GASTO"}, "descripcion": {"x"}, "monto": {"-10"}}

	rec := env.do(t, postForm("/transacciones/nueva/", bad), true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Monto inválido")
	assert.Contains(t, rec.Body.String(), `value="x"`, "form values are kept")

	req := postForm("/transacciones/nueva/", bad)
	req.Header.Set("HX-Request", "true")
	rec = env.do(t, req, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, `<div class="error">Monto inválido</div>`, rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	goal := postForm("/objetivos/nuevo/", url.Values{"nombre": {"Viaje"}, "monto_objetivo": {"0"}})
	goal.Header.Set("HX-Request", "true")
	rec = env.do(t, goal, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, `<div class="error">El monto objetivo debe ser mayor que cero</div>`, rec.Body.String())

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/transacciones/nueva/", nil), true)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDeleteTransaction(t *testing.T) {
	env := newTestEnv(t)
	tx := env.addTx(t, core.Expense, "Café", "Alimentación", 2500, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	path := "/transacciones/" + strconv.FormatInt(tx.ID, 10) + "/eliminar/"

	rec := env.do(t, httptest.NewRequest(http.MethodGet, path, nil), true)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("HX-Request", "true")
	rec = env.do(t, req, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("HX-Trigger"), "ledger:changed")

	rec = env.do(t, httptest.NewRequest(http.MethodPost, path, nil), true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/transacciones/abc/eliminar/", nil), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGoals(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, postForm("/objetivos/nuevo/", url.Values{
		"nombre": {"Vacaciones"}, "monto_objetivo": {"400000"}, "monto_actual": {"100000"}, "fecha_limite": {"2024-03-20"},
	}), true)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/objetivos/", rec.Header().Get("Location"))

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/objetivos/", nil), true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Vacaciones")
	assert.Contains(t, body, "25,0%")
	assert.Contains(t, body, "vence en 5 días")

	rec = env.do(t, postForm("/objetivos/nuevo/", url.Values{"nombre": {""}, "monto_objetivo": {"1"}}), true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "El nombre es obligatorio")
}

func TestBudget(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/presupuesto/", nil), true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Aún no has definido un presupuesto.")

	rec = env.do(t, postForm("/presupuesto/", url.Values{"monto": {"300000"}}), true)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/presupuesto/", nil), true)
	assert.Contains(t, rec.Body.String(), "$300.000")

	rec = env.do(t, postForm("/presupuesto/", url.Values{"monto": {"0"}}), true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/login/?next=/objetivos/", nil), false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="next" value="/objetivos/"`)

	rec = env.do(t, postForm("/login/", url.Values{"username": {"ana"}, "password": {"incorrecta"}}), false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "usuario o contraseña incorrectos")
	assert.Empty(t, rec.Result().Cookies())

	rec = env.do(t, postForm("/login/", url.Values{"username": {"ana"}, "password": {"secreto123"}, "next": {"/objetivos/"}}), false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/objetivos/", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)

	rec = env.do(t, postForm("/login/", url.Values{"username": {"ana"}, "password": {"secreto123"}, "next": {"//evil.example"}}), false)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, postForm("/registro/", url.Values{
		"username": {"bea"}, "email": {"bea@example.com"}, "password1": {"secreto123"}, "password2": {"otra-cosa"},
	}), false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "las contraseñas no coinciden")

	rec = env.do(t, postForm("/registro/", url.Values{
		"username": {"ana"}, "email": {"otra@example.com"}, "password1": {"secreto123"}, "password2": {"secreto123"},
	}), false)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, postForm("/registro/", url.Values{
		"username": {"bea"}, "email": {"bea@example.com"}, "password1": {"secreto123"}, "password2": {"secreto123"},
	}), false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	require.Len(t, rec.Result().Cookies(), 1)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/logout/", nil), true)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/logout/", nil), true)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login/", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil), false)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string                 `json:"status"`
		Checks map[string]interface{} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, "ok", body.Checks["store"])
	assert.Equal(t, "ok", body.Checks["templates"])
}

func TestChartSVG(t *testing.T) {
	env := newTestEnv(t)
	env.addTx(t, core.Expense, "Arriendo", "Vivienda", 250000, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	env.addTx(t, core.Expense, "Luz", "Servicios", 30000, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC))

	for _, target := range []string{
		"/charts/categorias.svg?mes_anio=2024-03",
		"/charts/categorias.svg?mes_anio=2024-03&kind=pie",
		"/charts/mensual.svg?mes_anio=2024-03",
		"/charts/mensual.svg?mes_anio=2024-03&kind=line",
		"/charts/categorias.svg?mes_anio=2020-01",
	} {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, target, nil), true)
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"), target)
		assert.Contains(t, rec.Body.String(), "<svg", target)
	}
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/static/dashboard.js", nil), false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "negativeBalanceAlert")
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age=3600")
}
