package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"checkngo/internal/domain"
	"checkngo/internal/idempotency"
	"checkngo/internal/metrics"
	"checkngo/internal/repository"
	"checkngo/internal/service"
)

// Deps всё, что нужно HTTP-слою
type Deps struct {
	Products    *service.ProductService
	Checkout    *service.CheckoutService
	Idempotency idempotency.Store
	// Metrics необязательны; без них /metrics не регистрируется
	Metrics *metrics.ServerMetrics
	// BreakerState отдаёт состояние circuit breaker-а хранилища для /health
	BreakerState func() string
	AdminToken   string
	Logger       *slog.Logger
}

type Server struct {
	engine   *gin.Engine
	products *service.ProductService
	checkout *service.CheckoutService
	idem     idempotency.Store
	metrics  *metrics.ServerMetrics
	breaker  func() string
	token    string
	log      *slog.Logger
}

func NewServer(d Deps) *Server {
	registerJSONTagNames()

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	if d.Idempotency == nil {
		d.Idempotency = idempotency.NewMemoryStore(0)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	s := &Server{
		engine:   r,
		products: d.Products,
		checkout: d.Checkout,
		idem:     d.Idempotency,
		metrics:  d.Metrics,
		breaker:  d.BreakerState,
		token:    d.AdminToken,
		log:      d.Logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/health", s.health)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	admin := s.adminOnly()
	v1 := s.engine.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.GET("", s.listProducts)
		products.GET("/search", s.searchProducts)
		products.GET("/:id", s.getProduct)
		products.POST("", admin, s.createProduct)
		products.PUT("/:id", admin, s.updateProduct)
		products.PUT("/:id/stock", admin, s.setStock)
		products.DELETE("/:id", admin, s.deleteProduct)

		stores := v1.Group("/stores")
		stores.GET("", s.listStores)
		stores.GET("/:name", s.getStore)

		v1.POST("/checkout", admin, s.submitCheckout)
		v1.POST("/bills/preview", admin, s.previewBill)
	}
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if s.breaker != nil {
		resp["store_breaker"] = s.breaker()
	}
	c.JSON(http.StatusOK, resp)
}

// Product handlers
type productReq struct {
	ID          int64           `json:"id" binding:"gte=0"`
	Title       string          `json:"title" binding:"required,max=200"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	SKU         string          `json:"sku"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock" binding:"gte=0"`
	Thumbnail   string          `json:"thumbnail" binding:"omitempty,url"`
	Tags        []string        `json:"tags"`
}

func (r productReq) toDomain(id int64) domain.Product {
	return domain.Product{
		ID:          id,
		Title:       strings.TrimSpace(r.Title),
		Description: strings.TrimSpace(r.Description),
		Category:    strings.TrimSpace(r.Category),
		Brand:       strings.TrimSpace(r.Brand),
		SKU:         strings.TrimSpace(r.SKU),
		Price:       r.Price,
		Stock:       r.Stock,
		Thumbnail:   r.Thumbnail,
		Tags:        r.Tags,
	}
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Security AdminToken
// @Param input body productReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}
	p, err := s.products.Create(c, req.toDomain(req.ID))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	p, err := s.products.GetByID(c, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Security AdminToken
// @Param id path int true "Product ID"
// @Param input body productReq true "Update"
// @Success 200 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}
	p, err := s.products.Update(c, req.toDomain(id))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type stockReq struct {
	Stock *int64 `json:"stock" binding:"required,gte=0"`
	// ExpectedStock включает условную запись
	ExpectedStock *int64 `json:"expected_stock" binding:"omitempty,gte=0"`
}

// @Summary Set product stock
// @Description Without expected_stock the write is unconditional; with it the write fails with 409 if stock changed.
// @Tags products
// @Accept json
// @Produce json
// @Security AdminToken
// @Param id path int true "Product ID"
// @Param input body stockReq true "Stock"
// @Success 200 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /products/{id}/stock [put]
func (s *Server) setStock(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req stockReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}
	p, err := s.products.SetStock(c, id, *req.Stock, req.ExpectedStock)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete product
// @Tags products
// @Security AdminToken
// @Param id path int true "Product ID"
// @Success 204
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	if err := s.products.Delete(c, id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List products
// @Tags products
// @Produce json
// @Param q query string false "Title contains"
// @Param category query string false "Category"
// @Param min_price query number false "Min price"
// @Param max_price query number false "Max price"
// @Success 200 {array} domain.Product
// @Failure 400 {object} errorResponse
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	f := repository.ProductFilter{
		TitleSubstring: strings.TrimSpace(c.Query("q")),
		Category:       strings.TrimSpace(c.Query("category")),
	}
	for param, dst := range map[string]**decimal.Decimal{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		v := c.Query(param)
		if v == "" {
			continue
		}
		x, err := decimal.NewFromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid " + param})
			return
		}
		*dst = &x
	}
	list, err := s.products.List(c, f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Search products by title
// @Description Titles starting with q come first, then other matches; ties by title.
// @Tags products
// @Produce json
// @Param q query string true "Title part"
// @Success 200 {array} domain.Product
// @Router /products/search [get]
func (s *Server) searchProducts(c *gin.Context) {
	list, err := s.products.Search(c, c.Query("q"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary List stores
// @Tags stores
// @Produce json
// @Success 200 {array} domain.Store
// @Router /stores [get]
func (s *Server) listStores(c *gin.Context) {
	list, err := s.products.ListStores(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get store by name
// @Description Case-insensitive; hyphens are read as spaces ("store-one").
// @Tags stores
// @Produce json
// @Param name path string true "Store name"
// @Success 200 {object} domain.Store
// @Failure 404 {object} errorResponse
// @Router /stores/{name} [get]
func (s *Server) getStore(c *gin.Context) {
	st, err := s.products.GetStore(c, c.Param("name"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err == nil && id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, err
}
