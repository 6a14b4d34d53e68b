package tienda_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"MiniTienda/internal/auth"
	"MiniTienda/internal/inventory"
	"MiniTienda/internal/tienda"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

var admin = map[string]string{"Authorization": basic("admin", "1234")}

func basic(user, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+secret))
}

type testEnv struct {
	ts   *httptest.Server
	repo *inventory.MemStore
}

func newTiendaTS(t *testing.T, withTokens bool, metricsToken string) testEnv {
	t.Helper()

	repo := inventory.NewMemStore()
	inv, err := inventory.Open(context.Background(), repo, inventory.Options{
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2024, 3, 10, 9, 15, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("inventory.Open: %v", err)
	}

	verifier, err := auth.NewStaticVerifier(auth.DefaultUsers, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	s := &tienda.Server{
		Inventory: inv,
		Verifier:  verifier,
	}
	if withTokens {
		s.Tokens = auth.NewTokenMaker(testJWTSecret, time.Minute)
	}

	h := tienda.NewHandler(s, tienda.HTTPDeps{
		Log:            zap.NewNop(),
		Service:        "tienda",
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: metricsToken != "",
		MetricsToken:   metricsToken,
	})

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return testEnv{ts: ts, repo: repo}
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func addProduct(t *testing.T, c *http.Client, base, name string, price float64, stock int) inventory.Product {
	t.Helper()

	resp, raw := doJSON(t, c, http.MethodPost, base+"/tienda/productos/agregar", map[string]any{
		"nombre":            name,
		"precio_unitario":   price,
		"cantidad_en_stock": stock,
	}, admin)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add %q status=%d body=%s", name, resp.StatusCode, string(raw))
	}

	var out struct {
		Mensaje  string            `json:"mensaje"`
		Producto inventory.Product `json:"producto"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode add: %v body=%s", err, string(raw))
	}
	if out.Mensaje != "Producto registrado exitosamente" {
		t.Fatalf("mensaje=%q", out.Mensaje)
	}
	return out.Producto
}

func decodeError(t *testing.T, raw []byte) string {
	t.Helper()

	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		t.Fatalf("decode error: %v body=%s", err, string(raw))
	}
	return e.Error
}

func TestTienda_Welcome(t *testing.T) {
	env := newTiendaTS(t, false, "")

	resp, raw := doJSON(t, &http.Client{}, http.MethodGet, env.ts.URL+"/", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if !strings.Contains(string(raw), "Bienvenido al sistema de ventas") {
		t.Fatalf("body=%s", string(raw))
	}
}

func TestTienda_MutationsRequireAuth(t *testing.T) {
	env := newTiendaTS(t, false, "")
	c := &http.Client{}

	for _, h := range []map[string]string{
		nil,
		{"Authorization": basic("admin", "wrong")},
		{"Authorization": basic("nadie", "1234")},
	} {
		resp, raw := doJSON(t, c, http.MethodPost, env.ts.URL+"/tienda/productos/agregar", map[string]any{
			"nombre": "Teclado", "precio_unitario": 25, "cantidad_en_stock": 4,
		}, h)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
		}
		if got := resp.Header.Get("WWW-Authenticate"); !strings.HasPrefix(got, "Basic") {
			t.Fatalf("WWW-Authenticate=%q", got)
		}
	}

	if ps, _ := env.repo.LoadProducts(context.Background()); len(ps) != 0 {
		t.Fatalf("unauthenticated request changed the store: %+v", ps)
	}

	resp, _ := doJSON(t, c, http.MethodGet, env.ts.URL+"/ventas/exportar_csv", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("export status=%d", resp.StatusCode)
	}

	// reads stay public
	resp, _ = doJSON(t, c, http.MethodGet, env.ts.URL+"/tienda/productos", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status=%d", resp.StatusCode)
	}
}

func TestTienda_ProductLifecycle(t *testing.T) {
	env := newTiendaTS(t, false, "")
	c := &http.Client{}
	base := env.ts.URL

	teclado := addProduct(t, c, base, "Teclado", 25, 4)
	addProduct(t, c, base, "Mouse", 10, 0)
	addProduct(t, c, base, "Cable HDMI", 20, 30)

	if teclado.ID != 1 || teclado.Name != "Teclado" {
		t.Fatalf("unexpected product: %+v", teclado)
	}

	{
		resp, raw := doJSON(t, c, http.MethodPost, base+"/tienda/productos/agregar", map[string]any{
			"nombre": "teclado", "precio_unitario": 30, "cantidad_en_stock": 1,
		}, admin)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("duplicate status=%d body=%s", resp.StatusCode, string(raw))
		}
		if msg := decodeError(t, raw); msg != "Producto ya registrado" {
			t.Fatalf("error=%q", msg)
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodPost, base+"/tienda/productos/agregar", map[string]any{
			"nombre": "Webcam", "precio_unitario": 0, "cantidad_en_stock": 1,
		}, admin)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("zero price status=%d body=%s", resp.StatusCode, string(raw))
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodGet, base+"/tienda/productos?min_precio=10&max_precio=20", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("filter status=%d body=%s", resp.StatusCode, string(raw))
		}
		var got []inventory.Product
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got) != 2 || got[0].Name != "Mouse" || got[1].Name != "Cable HDMI" {
			t.Fatalf("filtered=%+v", got)
		}
	}

	for _, q := range []string{
		"min_precio=20&max_precio=10",
		"min_stock=abc",
		"max_stock=-1",
		"min_precio=NaN",
		"max_precio=Inf",
		"min_precio=30&max_precio=NaN",
	} {
		resp, raw := doJSON(t, c, http.MethodGet, base+"/tienda/productos?"+q, nil, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s status=%d body=%s", q, resp.StatusCode, string(raw))
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodPut, base+"/tienda/productos/editar/1", map[string]any{
			"precio_unitario": 27.5,
		}, admin)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("edit status=%d body=%s", resp.StatusCode, string(raw))
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodGet, base+"/tienda/productos/1", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get status=%d body=%s", resp.StatusCode, string(raw))
		}
		var got inventory.Product
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.UnitPrice != 27.5 || got.Stock != 4 || got.Name != "Teclado" {
			t.Fatalf("after edit=%+v", got)
		}
	}

	{
		resp, _ := doJSON(t, c, http.MethodPut, base+"/tienda/productos/editar/99", map[string]any{
			"cantidad_en_stock": 1,
		}, admin)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("edit missing status=%d", resp.StatusCode)
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodDelete, base+"/tienda/productos/eliminar/2", nil, admin)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("delete status=%d body=%s", resp.StatusCode, string(raw))
		}
		if !strings.Contains(string(raw), "Producto con ID 2 eliminado exitosamente.") {
			t.Fatalf("body=%s", string(raw))
		}
	}

	{
		resp, _ := doJSON(t, c, http.MethodGet, base+"/tienda/productos/2", nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("get deleted status=%d", resp.StatusCode)
		}
		resp, _ = doJSON(t, c, http.MethodGet, base+"/tienda/productos/abc", nil, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("get bad id status=%d", resp.StatusCode)
		}
	}
}

func TestTienda_SalesFlow(t *testing.T) {
	env := newTiendaTS(t, false, "")
	c := &http.Client{}
	base := env.ts.URL

	p := addProduct(t, c, base, "Teclado", 25, 10)

	var sale inventory.RecordedSale
	{
		resp, raw := doJSON(t, c, http.MethodPost, base+"/ventas/registrar", map[string]any{
			"id_producto": p.ID, "cantidad": 3, "nombre_cliente": "Ana",
		}, admin)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("record status=%d body=%s", resp.StatusCode, string(raw))
		}
		var out struct {
			Mensaje string                 `json:"mensaje"`
			Datos   inventory.RecordedSale `json:"datos"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode: %v body=%s", err, string(raw))
		}
		if out.Mensaje != "Venta registrada exitosamente" {
			t.Fatalf("mensaje=%q", out.Mensaje)
		}
		sale = out.Datos
		if sale.ID != 1 || sale.Quantity != 3 || sale.Customer != "Ana" {
			t.Fatalf("sale=%+v", sale)
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodGet, base+"/tienda/productos/1", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get status=%d", resp.StatusCode)
		}
		var got inventory.Product
		_ = json.Unmarshal(raw, &got)
		if got.Stock != 7 {
			t.Fatalf("stock=%d want=7", got.Stock)
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodPost, base+"/ventas/registrar", map[string]any{
			"id_producto": p.ID, "cantidad": 8, "nombre_cliente": "Luis",
		}, admin)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("oversell status=%d body=%s", resp.StatusCode, string(raw))
		}
		if msg := decodeError(t, raw); !strings.HasPrefix(msg, "Stock insuficiente para Teclado") {
			t.Fatalf("error=%q", msg)
		}
	}

	{
		resp, _ := doJSON(t, c, http.MethodPost, base+"/ventas/registrar", map[string]any{
			"id_producto": 99, "cantidad": 1, "nombre_cliente": "Luis",
		}, admin)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("unknown product status=%d", resp.StatusCode)
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodDelete, base+"/tienda/productos/eliminar/1", nil, admin)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("delete sold status=%d body=%s", resp.StatusCode, string(raw))
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodGet, base+"/ventas/historial?cliente=ana&desde=2024-03-10&hasta=2024-03-10", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("historial status=%d body=%s", resp.StatusCode, string(raw))
		}
		var got []inventory.RecordedSale
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got) != 1 || got[0].ID != sale.ID {
			t.Fatalf("historial=%+v", got)
		}

		resp, raw = doJSON(t, c, http.MethodGet, base+"/ventas/historial?desde=2024-03-11", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("historial status=%d", resp.StatusCode)
		}
		if strings.TrimSpace(string(raw)) != "[]" {
			t.Fatalf("historial after=%s", string(raw))
		}

		resp, _ = doJSON(t, c, http.MethodGet, base+"/ventas/historial?desde=10-03-2024", nil, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("bad date status=%d", resp.StatusCode)
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodGet, base+"/ventas/1", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get sale status=%d body=%s", resp.StatusCode, string(raw))
		}
		resp, _ = doJSON(t, c, http.MethodGet, base+"/ventas/42", nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("get missing sale status=%d", resp.StatusCode)
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodGet, base+"/ventas/exportar_csv", nil, admin)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("export status=%d body=%s", resp.StatusCode, string(raw))
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
			t.Fatalf("content-type=%q", ct)
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, inventory.ExportFilename) {
			t.Fatalf("content-disposition=%q", cd)
		}
		want := "ID Venta,ID Producto,Nombre Cliente,Cantidad,Fecha Venta\n" +
			"1,1,Ana,3,2024-03-10 09:15:00\n"
		if string(raw) != want {
			t.Fatalf("csv=%q want=%q", string(raw), want)
		}
	}
}

func TestTienda_ExportEmptyLedger(t *testing.T) {
	env := newTiendaTS(t, false, "")

	resp, raw := doJSON(t, &http.Client{}, http.MethodGet, env.ts.URL+"/ventas/exportar_csv", nil, admin)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
	}
	if msg := decodeError(t, raw); msg != "No hay ventas registradas" {
		t.Fatalf("error=%q", msg)
	}
}

func TestTienda_RejectsMalformedBodies(t *testing.T) {
	env := newTiendaTS(t, false, "")
	c := &http.Client{}

	cases := []map[string]any{
		{"nombre": "Teclado", "precio_unitario": 25},
		{"nombre": "Teclado", "precio_unitario": 25, "cantidad_en_stock": 1, "color": "negro"},
	}
	for _, body := range cases {
		resp, raw := doJSON(t, c, http.MethodPost, env.ts.URL+"/tienda/productos/agregar", body, admin)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body=%v status=%d resp=%s", body, resp.StatusCode, string(raw))
		}
	}

	resp, _ := doJSON(t, c, http.MethodPost, env.ts.URL+"/ventas/registrar", map[string]any{
		"id_producto": 1, "cantidad": 0, "nombre_cliente": "Ana",
	}, admin)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("zero quantity status=%d", resp.StatusCode)
	}
}

func TestTienda_BearerTokenFlow(t *testing.T) {
	env := newTiendaTS(t, true, "")
	c := &http.Client{}
	base := env.ts.URL

	resp, raw := doJSON(t, c, http.MethodPost, base+"/auth/token", nil, map[string]string{
		"Authorization": basic("user", "abcd"),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token status=%d body=%s", resp.StatusCode, string(raw))
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &tr); err != nil {
		t.Fatalf("decode token: %v body=%s", err, string(raw))
	}
	if tr.AccessToken == "" || tr.TokenType != "Bearer" || tr.ExpiresIn != 60 {
		t.Fatalf("token response=%+v", tr)
	}

	resp, raw = doJSON(t, c, http.MethodPost, base+"/tienda/productos/agregar", map[string]any{
		"nombre": "Teclado", "precio_unitario": 25, "cantidad_en_stock": 4,
	}, map[string]string{"Authorization": "Bearer " + tr.AccessToken})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add with bearer status=%d body=%s", resp.StatusCode, string(raw))
	}

	resp, _ = doJSON(t, c, http.MethodPost, base+"/tienda/productos/agregar", map[string]any{
		"nombre": "Mouse", "precio_unitario": 10, "cantidad_en_stock": 4,
	}, map[string]string{"Authorization": "Bearer not-a-token"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad bearer status=%d", resp.StatusCode)
	}

	resp, _ = doJSON(t, c, http.MethodPost, base+"/auth/token", nil, map[string]string{
		"Authorization": basic("user", "nope"),
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("token with bad secret status=%d", resp.StatusCode)
	}
}

func TestTienda_TokenEndpointDisabledWithoutSecret(t *testing.T) {
	env := newTiendaTS(t, false, "")

	resp, _ := doJSON(t, &http.Client{}, http.MethodPost, env.ts.URL+"/auth/token", nil, admin)
	if resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestTienda_MetricsEndpointNeedsToken(t *testing.T) {
	env := newTiendaTS(t, false, "scrape-me")
	c := &http.Client{}

	resp, _ := doJSON(t, c, http.MethodGet, env.ts.URL+"/metrics", nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status=%d", resp.StatusCode)
	}

	resp, raw := doJSON(t, c, http.MethodGet, env.ts.URL+"/metrics", nil, map[string]string{
		"Authorization": "Bearer scrape-me",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if !strings.Contains(string(raw), "http_requests_total") {
		t.Fatalf("metrics body lacks request counter")
	}
}

func TestTienda_TokenLimiterIgnoresForwardedFor(t *testing.T) {
	env := newTiendaTS(t, true, "")
	c := &http.Client{}

	for i := 0; i < 6; i++ {
		resp, raw := doJSON(t, c, http.MethodPost, env.ts.URL+"/auth/token", nil, map[string]string{
			"Authorization":   basic("user", "abcd"),
			"X-Forwarded-For": fmt.Sprintf("203.0.113.%d", i+1),
		})
		want := http.StatusOK
		if i == 5 {
			want = http.StatusTooManyRequests
		}
		if resp.StatusCode != want {
			t.Fatalf("request %d status=%d want=%d body=%s", i+1, resp.StatusCode, want, string(raw))
		}
	}
}
