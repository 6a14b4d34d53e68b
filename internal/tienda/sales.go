package tienda

import (
	"bytes"
	"net/http"

	"go.uber.org/zap"

	"MiniTienda/internal/inventory"
	"MiniTienda/pkg/kit"
)

type saleReq struct {
	ProductID *int    `json:"id_producto"`
	Quantity  *int    `json:"cantidad"`
	Customer  *string `json:"nombre_cliente"`
}

type saleResp struct {
	Mensaje string                 `json:"mensaje"`
	Datos   inventory.RecordedSale `json:"datos"`
}

func (s *Server) recordSale(w http.ResponseWriter, r *http.Request) {
	var req saleReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		s.badRequest(w, r, "bad json", err)
		return
	}
	if req.ProductID == nil || req.Quantity == nil || req.Customer == nil {
		s.badRequest(w, r, "id_producto, cantidad y nombre_cliente son obligatorios", nil)
		return
	}

	rs, err := s.Inventory.RecordSale(r.Context(), inventory.Sale{
		ProductID: *req.ProductID,
		Quantity:  *req.Quantity,
		Customer:  *req.Customer,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.Log.Info("sale recorded via api", currentUser(r), zap.Int("id_venta", rs.ID))
	kit.WriteJSON(w, http.StatusCreated, saleResp{
		Mensaje: "Venta registrada exitosamente",
		Datos:   rs,
	})
}

func (s *Server) listSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sales, err := s.Inventory.ListSales(r.Context(), inventory.SaleFilter{
		Customer: q.Get("cliente"),
		From:     q.Get("desde"),
		To:       q.Get("hasta"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, sales)
}

func (s *Server) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, "id de venta inválido", err)
		return
	}

	v, err := s.Inventory.GetSale(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, v)
}

func (s *Server) exportSales(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.Inventory.ExportSalesCSV(r.Context(), &buf); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.Log.Info("sales exported", currentUser(r), zap.Int("bytes", buf.Len()))
	kit.WriteAttachment(w, "text/csv; charset=utf-8", inventory.ExportFilename, buf.Bytes())
}
