package tienda

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"MiniTienda/internal/auth"
	"MiniTienda/internal/inventory"
	"MiniTienda/pkg/kit"
)

type Server struct {
	Inventory *inventory.Service
	Verifier  auth.Verifier
	// Tokens enables POST /auth/token and bearer authentication when set.
	Tokens *auth.TokenMaker
	Log    *zap.Logger
}

type message struct {
	Mensaje string `json:"mensaje"`
}

func (s *Server) routes(r chi.Router, tokenLimiter *kit.IPRateLimiter) {
	r.Get("/", welcome)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.readyz)

	if s.Tokens != nil {
		r.With(tokenLimiter.Middleware).
			Post("/auth/token", auth.TokenHandler(s.Verifier, s.Tokens, s.Log))
	}

	r.Get("/tienda/productos", s.listProducts)
	r.Get("/tienda/productos/{id}", s.getProduct)
	r.Get("/ventas/historial", s.listSales)
	r.Get("/ventas/{id}", s.getSale)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireUser(s.Verifier, s.Tokens))

		pr.Post("/tienda/productos/agregar", s.addProduct)
		pr.Put("/tienda/productos/editar/{id}", s.updateProduct)
		pr.Delete("/tienda/productos/eliminar/{id}", s.deleteProduct)

		pr.Post("/ventas/registrar", s.recordSale)
		pr.Get("/ventas/exportar_csv", s.exportSales)
	})
}

func welcome(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, message{Mensaje: "Bienvenido al sistema de ventas"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Inventory.Ping(ctx); err != nil {
		s.Log.Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// writeDomainError maps inventory and auth errors to HTTP statuses. Anything
// unrecognized is a storage failure and is logged.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *inventory.ValidationError
		nf  *inventory.NotFoundError
		dup *inventory.DuplicateError
		cf  *inventory.ConflictError
		ins *inventory.InsufficientStockError
		ae  *auth.AuthenticationError
	)

	switch {
	case errors.As(err, &ve):
		var details any
		if ve.Field != "" {
			details = map[string]any{"campo": ve.Field}
		}
		kit.WriteError(w, r, http.StatusBadRequest, ve.Reason, details)
	case errors.As(err, &nf):
		kit.WriteError(w, r, http.StatusNotFound, nf.Error(), nil)
	case errors.As(err, &dup):
		kit.WriteError(w, r, http.StatusBadRequest, dup.Error(), map[string]any{"nombre": dup.Name})
	case errors.As(err, &cf):
		kit.WriteError(w, r, http.StatusBadRequest, cf.Error(), map[string]any{"id_producto": cf.ProductID})
	case errors.As(err, &ins):
		kit.WriteError(w, r, http.StatusBadRequest, ins.Error(), map[string]any{
			"disponible": ins.Available,
			"solicitado": ins.Requested,
		})
	case errors.As(err, &ae):
		auth.Unauthorized(w, r, ae)
	default:
		s.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, msg string, cause error) {
	var details any
	if cause != nil {
		details = map[string]any{"cause": cause.Error()}
	}
	kit.WriteError(w, r, http.StatusBadRequest, msg, details)
}

func pathID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

func currentUser(r *http.Request) zap.Field {
	u, _ := auth.UserFromContext(r.Context())
	return zap.String("usuario", u)
}
