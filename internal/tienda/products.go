package tienda

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"MiniTienda/internal/inventory"
	"MiniTienda/pkg/kit"
)

type productReq struct {
	Name      *string  `json:"nombre"`
	UnitPrice *float64 `json:"precio_unitario"`
	Stock     *int     `json:"cantidad_en_stock"`
}

type productResp struct {
	Mensaje  string            `json:"mensaje"`
	Producto inventory.Product `json:"producto"`
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	f, err := productFilter(r.URL.Query())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	products, err := s.Inventory.ListProducts(r.Context(), f)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, "id de producto inválido", err)
		return
	}

	p, err := s.Inventory.GetProduct(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) addProduct(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, "bad json", err)
		return
	}
	if req.Name == nil || req.UnitPrice == nil || req.Stock == nil {
		s.badRequest(w, r, "nombre, precio_unitario y cantidad_en_stock son obligatorios", nil)
		return
	}

	p, err := s.Inventory.AddProduct(r.Context(), inventory.ProductInput{
		Name:      *req.Name,
		UnitPrice: *req.UnitPrice,
		Stock:     *req.Stock,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.Log.Info("product added via api", currentUser(r), zap.Int("id_producto", p.ID))
	kit.WriteJSON(w, http.StatusCreated, productResp{
		Mensaje:  "Producto registrado exitosamente",
		Producto: p,
	})
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, "id de producto inválido", err)
		return
	}

	var req productReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, "bad json", err)
		return
	}

	p, err := s.Inventory.UpdateProduct(r.Context(), id, inventory.ProductPatch{
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Stock:     req.Stock,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.Log.Info("product updated via api", currentUser(r), zap.Int("id_producto", p.ID))
	kit.WriteJSON(w, http.StatusOK, productResp{
		Mensaje:  "Producto editado exitosamente",
		Producto: p,
	})
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, "id de producto inválido", err)
		return
	}

	if err := s.Inventory.DeleteProduct(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.Log.Info("product deleted via api", currentUser(r), zap.Int("id_producto", id))
	kit.WriteJSON(w, http.StatusOK, message{
		Mensaje: fmt.Sprintf("Producto con ID %d eliminado exitosamente.", id),
	})
}

func productFilter(q url.Values) (inventory.ProductFilter, error) {
	f := inventory.ProductFilter{Name: q.Get("nombre")}

	var err error
	if f.MinPrice, err = floatParam(q, "min_precio"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = floatParam(q, "max_precio"); err != nil {
		return f, err
	}
	if f.MinStock, err = intParam(q, "min_stock"); err != nil {
		return f, err
	}
	if f.MaxStock, err = intParam(q, "max_stock"); err != nil {
		return f, err
	}
	return f, nil
}

func floatParam(q url.Values, key string) (*float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &inventory.ValidationError{Field: key, Reason: fmt.Sprintf("%s debe ser un número", key)}
	}
	return &v, nil
}

func intParam(q url.Values, key string) (*int, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &inventory.ValidationError{Field: key, Reason: fmt.Sprintf("%s debe ser un entero", key)}
	}
	return &v, nil
}
