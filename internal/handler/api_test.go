package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/convertia/backend/internal/converter"
	"github.com/convertia/backend/internal/handler"
	appMiddleware "github.com/convertia/backend/internal/middleware"
	"github.com/convertia/backend/internal/repository"
	"github.com/convertia/backend/internal/service"
	"github.com/convertia/backend/internal/upload"
	"github.com/convertia/backend/pkg/payment"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// fakeVerifier accepts any credential and returns a fixed identity.
type fakeVerifier struct{}

func (fakeVerifier) Verify(ctx context.Context, credential string) (*service.Identity, error) {
	return &service.Identity{
		Subject: "google-sub-1",
		Email:   "payer@example.com",
		Name:    "Test Payer",
	}, nil
}

type apiEnv struct {
	router  http.Handler
	gateway *payment.MockGateway
	uploads *upload.Store
}

// newAPIEnv wires the full HTTP surface on in-memory stores, the mock
// gateway, and the static extractor.
func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	accountRepo := repository.NewMemoryAccountRepository()
	entitlementRepo := repository.NewMemoryEntitlementRepository()
	transactionRepo := repository.NewMemoryTransactionRepository()
	conversionRepo := repository.NewMemoryConversionRepository()

	uploads := upload.NewStore(time.Minute, 1<<20, 10)
	t.Cleanup(uploads.Close)

	gateway := payment.NewMockGateway()
	statementConverter := converter.NewStatementConverter(converter.NewStaticExtractor())

	authSvc := service.NewAuthService("test-secret", fakeVerifier{}, accountRepo)
	paymentSvc := service.NewPaymentService(gateway, transactionRepo, 2000, "MXN")
	subscriptionSvc := service.NewSubscriptionService(gateway, entitlementRepo, transactionRepo, conversionRepo)
	convertSvc := service.NewConvertService(uploads, paymentSvc, subscriptionSvc, statementConverter, conversionRepo)

	authHandler := handler.NewAuthHandler(authSvc)
	uploadHandler := handler.NewUploadHandler(uploads, 1<<20)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, convertSvc)
	convertHandler := handler.NewConvertHandler(convertSvc)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionSvc, authSvc)

	r := chi.NewRouter()
	r.Use(appMiddleware.Recovery)
	r.Get("/api/plans", handler.NewPlansHandler().List)
	r.Post("/api/auth/google", authHandler.GoogleLogin)
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.OptionalAuth(authSvc))
		r.Post("/api/upload", uploadHandler.Upload)
		r.Post("/api/payment/order", paymentHandler.CreateOrder)
		r.Post("/api/payment/capture-and-convert", paymentHandler.CaptureAndConvert)
	})
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))
		r.Get("/api/auth/me", authHandler.Me)
		r.Post("/api/convert", convertHandler.Convert)
		r.Post("/api/subscription", subscriptionHandler.Create)
		r.Post("/api/subscription/confirm", subscriptionHandler.Confirm)
		r.Delete("/api/subscription/{id}", subscriptionHandler.Cancel)
		r.Get("/api/entitlement", subscriptionHandler.Entitlement)
		r.Get("/api/dashboard", subscriptionHandler.Dashboard)
	})

	return &apiEnv{router: r, gateway: gateway, uploads: uploads}
}

func (e *apiEnv) doJSON(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func (e *apiEnv) login(t *testing.T) string {
	t.Helper()
	rec := e.doJSON(t, http.MethodPost, "/api/auth/google", "", map[string]string{"credential": "fake-id-token"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := decodeBody(t, rec)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (e *apiEnv) uploadPDF(t *testing.T, token string, content []byte) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "estado.pdf")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	id, _ := decodeBody(t, rec)["upload_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func statementPDF() []byte {
	return []byte("%PDF-1.4\n/Type /Page\nBT (01/03/2026 Deposito nomina) Tj ET\n")
}

func requireWorkbook(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err, "response must be a readable workbook")
	defer f.Close()
	assert.Equal(t, "Estado de cuenta", f.GetSheetName(0))
}

func TestPayPerUseFlow(t *testing.T) {
	env := newAPIEnv(t)

	uploadID := env.uploadPDF(t, "", statementPDF())

	rec := env.doJSON(t, http.MethodPost, "/api/payment/order", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	orderID, _ := decodeBody(t, rec)["order_id"].(string)
	require.NotEmpty(t, orderID)

	// Capture before the payer approved.
	rec = env.doJSON(t, http.MethodPost, "/api/payment/capture-and-convert", "",
		map[string]string{"order_id": orderID, "upload_id": uploadID})
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "not_paid", decodeBody(t, rec)["kind"])

	env.gateway.Approve(orderID)

	rec = env.doJSON(t, http.MethodPost, "/api/payment/capture-and-convert", "",
		map[string]string{"order_id": orderID, "upload_id": uploadID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	requireWorkbook(t, rec)

	// The order is spent; replaying it — with the consumed handle or a brand
	// new upload — buys nothing.
	rec = env.doJSON(t, http.MethodPost, "/api/payment/capture-and-convert", "",
		map[string]string{"order_id": orderID, "upload_id": uploadID})
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "order_already_used", decodeBody(t, rec)["kind"])

	freshUpload := env.uploadPDF(t, "", statementPDF())
	rec = env.doJSON(t, http.MethodPost, "/api/payment/capture-and-convert", "",
		map[string]string{"order_id": orderID, "upload_id": freshUpload})
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "order_already_used", decodeBody(t, rec)["kind"])
}

func TestUploadRejections(t *testing.T) {
	env := newAPIEnv(t)

	t.Run("wrong format", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "estado.docx")
		require.NoError(t, err)
		part.Write([]byte("not a pdf"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too many pages", func(t *testing.T) {
		var doc bytes.Buffer
		doc.WriteString("%PDF-1.4\n")
		for i := 0; i < 11; i++ {
			doc.WriteString("/Type /Page\n")
		}
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "estado.pdf")
		require.NoError(t, err)
		part.Write(doc.Bytes())
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "pages")
	})

	t.Run("missing file field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("plain body"))
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestConvertRequiresAuth(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/convert", "", map[string]string{"upload_id": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/api/convert", "garbage-token", map[string]string{"upload_id": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubscriptionFlow(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t)

	// Fresh account: no plan, no credits.
	rec := env.doJSON(t, http.MethodGet, "/api/entitlement", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "none", decodeBody(t, rec)["plan_tier"])

	uploadID := env.uploadPDF(t, token, statementPDF())
	rec = env.doJSON(t, http.MethodPost, "/api/convert", token, map[string]string{"upload_id": uploadID})
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "no_credits", decodeBody(t, rec)["kind"])

	// Checkout.
	rec = env.doJSON(t, http.MethodPost, "/api/subscription", token, map[string]string{"plan_tier": "basic"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	subID, _ := decodeBody(t, rec)["subscription_id"].(string)
	require.NotEmpty(t, subID)

	confirmReq := map[string]string{"subscription_ref": subID, "plan_tier": "basic"}

	// Confirm before the gateway reports the agreement active.
	rec = env.doJSON(t, http.MethodPost, "/api/subscription/confirm", token, confirmReq)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "subscription_not_active", decodeBody(t, rec)["kind"])

	env.gateway.Activate(subID)

	rec = env.doJSON(t, http.MethodPost, "/api/subscription/confirm", token, confirmReq)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ent := decodeBody(t, rec)
	assert.Equal(t, "basic", ent["plan_tier"])
	assert.Equal(t, float64(200), ent["credits_total"])
	entitlementID, _ := ent["id"].(string)
	require.NotEmpty(t, entitlementID)

	// Entitlement-backed conversion.
	rec = env.doJSON(t, http.MethodPost, "/api/convert", token, map[string]string{"upload_id": uploadID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	requireWorkbook(t, rec)

	rec = env.doJSON(t, http.MethodGet, "/api/entitlement", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["credits_used"])

	rec = env.doJSON(t, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decodeBody(t, rec)
	assert.Equal(t, float64(1), dash["total_conversions"])
	assert.Equal(t, float64(199), dash["credits_remaining"])

	// Cancel, twice; both succeed.
	rec = env.doJSON(t, http.MethodDelete, "/api/subscription/"+entitlementID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.doJSON(t, http.MethodDelete, "/api/subscription/"+entitlementID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSON(t, http.MethodGet, "/api/entitlement", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "none", decodeBody(t, rec)["plan_tier"])
}

func TestAuthMe(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t)

	rec := env.doJSON(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody(t, rec)
	assert.Equal(t, "payer@example.com", me["email"])
	assert.Equal(t, "Test Payer", me["displayName"])
}

func TestPlansList(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.doJSON(t, http.MethodGet, "/api/plans", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var plans []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plans))
	require.Len(t, plans, 3)
	assert.Equal(t, "basic", plans[0]["id"])
	assert.Equal(t, float64(200), plans[0]["conversions"])
}
