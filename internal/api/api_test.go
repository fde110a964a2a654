package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/BTreeMap/YonkeBot/internal/messaging"
	"github.com/BTreeMap/YonkeBot/internal/models"
	"github.com/BTreeMap/YonkeBot/internal/render"
	"github.com/BTreeMap/YonkeBot/internal/store"
	"github.com/BTreeMap/YonkeBot/internal/twiliowhatsapp"
	"github.com/BTreeMap/YonkeBot/internal/whatsapp"
)

const testSender = "whatsapp:+5216671234567"

func newTestServerTwilio() (*Server, *messaging.TwilioService, *twiliowhatsapp.MockClient) {
	mock := twiliowhatsapp.NewMockClient()
	svc := messaging.NewTwilioService(mock)
	return NewServer(store.NewInMemoryStore(), svc), svc, mock
}

type apiEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env apiEnvelope
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
			t.Fatalf("invalid JSON body %q: %v", rr.Body.String(), err)
		}
	}
	return rr, env
}

func sendMessage(t *testing.T, h http.Handler, from, text string) string {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"from": from, "body": text})
	rr, env := do(t, h, http.MethodPost, "/messages", string(payload))
	if rr.Code != http.StatusOK || env.Status != "ok" {
		t.Fatalf("POST /messages %q: status %d, body %s", text, rr.Code, rr.Body.String())
	}
	var out messageReply
	if err := json.Unmarshal(env.Result, &out); err != nil {
		t.Fatalf("bad reply payload: %v", err)
	}
	return out.Reply
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServerTwilio()
	rr, _ := do(t, srv.Handler(), http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestMessagesHandler_Help(t *testing.T) {
	srv, _, mock := newTestServerTwilio()
	if reply := sendMessage(t, srv.Handler(), testSender, "hola"); reply != render.Help {
		t.Errorf("expected help text, got %q", reply)
	}
	if len(mock.Sent()) != 0 {
		t.Error("POST /messages must not send anything")
	}
}

func TestMessagesHandler_BadRequests(t *testing.T) {
	srv, _, _ := newTestServerTwilio()
	h := srv.Handler()

	cases := map[string]string{
		"invalid json":   `{"from":`,
		"missing sender": `{"body":"hola"}`,
		"short sender":   `{"from":"123","body":"hola"}`,
		"empty body":     `{"from":"+5216671234567","body":"  "}`,
	}
	for name, body := range cases {
		rr, env := do(t, h, http.MethodPost, "/messages", body)
		if rr.Code != http.StatusBadRequest || env.Status != "error" {
			t.Errorf("%s: expected 400 error, got %d %s", name, rr.Code, rr.Body.String())
		}
	}

	rr, _ := do(t, h, http.MethodGet, "/messages", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /messages: expected 405, got %d", rr.Code)
	}
}

func TestRegisterSellAndSearch(t *testing.T) {
	srv, _, _ := newTestServerTwilio()
	h := srv.Handler()

	steps := []struct{ in, want string }{
		{"vender", render.AskBusinessName},
		{"Yonke El Güero", render.AskLocation("Yonke El Güero")},
		{"Sinaloa, Culiacán, Centro", render.BusinessRegistered("Yonke El Güero")},
	}
	for _, s := range steps {
		if got := sendMessage(t, h, testSender, s.in); got != s.want {
			t.Fatalf("%q: got %q, want %q", s.in, got, s.want)
		}
	}

	reply := sendMessage(t, h, testSender, "vender alternador tsuru 2015 condicion 8 precio 800")
	if !strings.HasPrefix(reply, "¡Publicado!") {
		t.Fatalf("expected publish confirmation, got %q", reply)
	}

	rr, env := do(t, h, http.MethodGet, "/listings/search?q="+url.QueryEscape("alternador tsuru"), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("search: expected 200, got %d", rr.Code)
	}
	var results []models.SearchResult
	if err := json.Unmarshal(env.Result, &results); err != nil {
		t.Fatalf("bad search payload: %v", err)
	}
	if len(results) != 1 || results[0].SellerName != "Yonke El Güero" || results[0].Price != 800 {
		t.Fatalf("unexpected results: %+v", results)
	}

	buyer := sendMessage(t, h, "whatsapp:+5216679999999", "busco alternador")
	if !strings.Contains(buyer, "Yonke El Güero") {
		t.Errorf("buyer reply should list the seller, got %q", buyer)
	}
}

func TestSearchHandler(t *testing.T) {
	srv, _, _ := newTestServerTwilio()
	h := srv.Handler()

	rr, env := do(t, h, http.MethodGet, "/listings/search?q=defensa", "")
	if rr.Code != http.StatusOK || string(env.Result) != "[]" {
		t.Errorf("expected empty result list, got %d %s", rr.Code, rr.Body.String())
	}

	rr, env = do(t, h, http.MethodGet, "/listings/search?q=%20", "")
	if rr.Code != http.StatusBadRequest || env.Status != "error" {
		t.Errorf("blank query: expected 400, got %d", rr.Code)
	}
}

func TestWhatsAppRouteOnlyForTwilio(t *testing.T) {
	srv := NewServer(store.NewInMemoryStore(), messaging.NewWhatsAppService(whatsapp.NewMockClient()))
	rr, _ := do(t, srv.Handler(), http.MethodPost, "/whatsapp", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 without Twilio transport, got %d", rr.Code)
	}
}

func TestTwilioWebhookRepliesAsynchronously(t *testing.T) {
	srv, svc, mock := newTestServerTwilio()
	srv.respHandler.Start(context.Background())

	form := url.Values{"From": {testSender}, "Body": {"busco faro"}}
	req := httptest.NewRequest(http.MethodPost, "/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Body.String() != messaging.EmptyTwiML {
		t.Fatalf("expected empty TwiML, got %d %q", rr.Code, rr.Body.String())
	}

	svc.Stop()
	srv.respHandler.Wait()

	sent := mock.Sent()
	if len(sent) != 1 || sent[0].To != "5216671234567" {
		t.Fatalf("expected one reply to the sender, got %+v", sent)
	}
	if sent[0].Body != render.NoResults("faro") {
		t.Errorf("unexpected reply %q", sent[0].Body)
	}
}

func TestNewServiceRejectsUnknownTransport(t *testing.T) {
	if _, err := newService(context.Background(), Opts{Transport: "telegram"}, nil, nil); err == nil {
		t.Fatal("expected error for unknown transport")
	}
	if _, err := newService(context.Background(), Opts{Transport: TransportTwilio}, nil, nil); err == nil {
		t.Fatal("expected error for Twilio without credentials")
	}
}

func TestWriteJSONResponseFallsBackOnEncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSONResponse(rr, http.StatusOK, models.Success(make(chan int)))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var env apiEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil || env.Status != "error" {
		t.Fatalf("expected error envelope, got %q (%v)", rr.Body.String(), err)
	}
}
