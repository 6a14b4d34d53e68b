//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"testing"
	"time"
)

var (
	baseURL = getenv("E2E_BASE_URL", "http://localhost:8000")
	user    = getenv("E2E_USER", "admin")
	secret  = getenv("E2E_SECRET", "1234")
)

func TestSystem_E2E_ProductSaleExport(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	name := fmt.Sprintf("e2e-%d-%d", time.Now().Unix(), rand.Intn(100000))

	var added struct {
		Producto struct {
			ID    int `json:"id_producto"`
			Stock int `json:"cantidad_en_stock"`
		} `json:"producto"`
	}
	do(t, http.MethodPost, baseURL+"/tienda/productos/agregar", true, map[string]any{
		"nombre":            name,
		"precio_unitario":   12.5,
		"cantidad_en_stock": 10,
	}, &added, 201)
	if added.Producto.ID == 0 {
		t.Fatalf("product id missing")
	}

	do(t, http.MethodPost, baseURL+"/tienda/productos/agregar", false, map[string]any{
		"nombre":            name + "-anon",
		"precio_unitario":   1,
		"cantidad_en_stock": 1,
	}, nil, 401)

	var sale struct {
		Datos struct {
			ID int `json:"id_venta"`
		} `json:"datos"`
	}
	do(t, http.MethodPost, baseURL+"/ventas/registrar", true, map[string]any{
		"id_producto":    added.Producto.ID,
		"cantidad":       3,
		"nombre_cliente": "E2E",
	}, &sale, 201)

	var products []struct {
		ID    int `json:"id_producto"`
		Stock int `json:"cantidad_en_stock"`
	}
	do(t, http.MethodGet, baseURL+"/tienda/productos?nombre="+name, false, nil, &products, 200)
	if len(products) != 1 || products[0].Stock != 7 {
		t.Fatalf("unexpected products after sale: %#v", products)
	}

	do(t, http.MethodDelete, fmt.Sprintf("%s/tienda/productos/eliminar/%d", baseURL, added.Producto.ID), true, nil, nil, 400)

	if os.Getenv("E2E_RESTART") == "1" {
		restartContainer(t, ctx, getenv("E2E_CONTAINER", "tienda"))
		waitReady(t, ctx, baseURL+"/readyz")
	}

	do(t, http.MethodGet, fmt.Sprintf("%s/ventas/%d", baseURL, sale.Datos.ID), false, nil, nil, 200)
	do(t, http.MethodGet, baseURL+"/ventas/exportar_csv", true, nil, nil, 200)
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func do(t *testing.T, method, url string, withAuth bool, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if withAuth {
		req.SetBasicAuth(user, secret)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
