package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oltinwash/backend/internal/metrics"
	"github.com/oltinwash/backend/internal/models"
	"github.com/oltinwash/backend/internal/notify"
	"github.com/oltinwash/backend/internal/order"
	"github.com/oltinwash/backend/internal/photo"
	"github.com/oltinwash/backend/internal/report"
	"github.com/oltinwash/backend/internal/repository"
	"github.com/redis/go-redis/v9"
)

const (
	dateLayout = "2006-01-02"

	ordersCacheTTL = 5 * time.Minute

	maxPhotoSize = 20 << 20 // Bot API caps photo downloads at 20 MB, the REST surface matches it.
)

// API is the staff-facing REST surface.
type API struct {
	log         *slog.Logger
	catalog     repository.CatalogManager
	orders      repository.OrderManager
	orderSvc    *order.Service
	notifier    *notify.Notifier
	redisClient *redis.Client
	metrics     *metrics.Metrics
}

// NewAPI wires the REST surface over the shared repositories and services.
func NewAPI(
	log *slog.Logger,
	catalog repository.CatalogManager,
	orders repository.OrderManager,
	orderSvc *order.Service,
	notifier *notify.Notifier,
	redisClient *redis.Client,
	m *metrics.Metrics,
) *API {
	return &API{
		log:         log,
		catalog:     catalog,
		orders:      orders,
		orderSvc:    orderSvc,
		notifier:    notifier,
		redisClient: redisClient,
		metrics:     m,
	}
}

// Router builds the gin engine with all routes registered.
func (a *API) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), a.metricsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/orders", a.createOrder)
		api.GET("/orders", a.listOrders)
		api.PATCH("/orders/:id", a.patchOrder)
		api.DELETE("/orders/:id", a.deleteOrder)
		api.GET("/services", a.listServices)
		api.GET("/service-classes", a.listServiceClasses)
		api.GET("/employees/at-work", a.listEmployeesAtWork)
		api.GET("/employee-stats", a.employeeStats)
		api.PATCH("/employee-stats", a.completeEmployeeOrders)
		api.GET("/report", a.dailyReport)
		api.POST("/notify", a.sendNotifications)
	}

	return router
}

func (a *API) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		a.metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

// createOrder accepts a multipart submission with the car photo and the
// order fields, runs it through the save-time rules and returns the
// stored order.
func (a *API) createOrder(c *gin.Context) {
	serviceClassID, err := strconv.Atoi(c.PostForm("service_class_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service_class_id must be an integer"})
		return
	}
	employeeID, err := strconv.Atoi(c.PostForm("employee_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "employee_id must be an integer"})
		return
	}

	var negotiatedPrice *float64
	if raw := c.PostForm("negotiated_price"); raw != "" {
		price, errParse := strconv.ParseFloat(raw, 64)
		if errParse != nil || price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "negotiated_price must be a non-negative number"})
			return
		}
		negotiatedPrice = &price
	}

	var orderDate *time.Time
	if raw := c.PostForm("order_date"); raw != "" {
		parsed, errParse := time.Parse(dateLayout, raw)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order_date must look like YYYY-MM-DD"})
			return
		}
		orderDate = &parsed
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	if fileHeader.Size > maxPhotoSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo is too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		a.log.Error("Failed to open uploaded photo", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	defer file.Close()

	photoData, err := io.ReadAll(file)
	if err != nil {
		a.log.Error("Failed to read uploaded photo", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	created, err := a.orderSvc.Create(c.Request.Context(), order.CreateInput{
		ServiceClassID:  serviceClassID,
		EmployeeID:      employeeID,
		NegotiatedPrice: negotiatedPrice,
		OrderDate:       orderDate,
		Photo:           photoData,
		PhotoFilename:   fileHeader.Filename,
	})
	if err != nil {
		switch {
		case errors.Is(err, order.ErrValidation), errors.Is(err, photo.ErrDecode):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "referenced service class or employee does not exist"})
		default:
			a.log.Error("Failed to create order", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	a.metrics.OrdersCreated.Inc()
	a.invalidateOrdersCache(c.Request.Context())
	c.JSON(http.StatusCreated, created)
}

// listOrders returns the orders of a period. Responses are cached in
// redis for five minutes, keyed by the literal date strings.
func (a *API) listOrders(c *gin.Context) {
	startRaw := c.DefaultQuery("start_date", time.Now().Format(dateLayout))
	endRaw := c.DefaultQuery("end_date", startRaw)

	start, err := time.Parse(dateLayout, startRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must look like YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must look like YYYY-MM-DD"})
		return
	}

	cacheKey := fmt.Sprintf("oltinwash:orders:%s:%s", startRaw, endRaw)
	if cached, errCache := a.redisClient.Get(c.Request.Context(), cacheKey).Bytes(); errCache == nil {
		a.metrics.CacheOps.WithLabelValues("get", "hit").Inc()
		c.Data(http.StatusOK, "application/json", cached)
		return
	}
	a.metrics.CacheOps.WithLabelValues("get", "miss").Inc()

	queryStart := time.Now()
	orders, err := a.orders.ListOrders(c.Request.Context(), start, end.AddDate(0, 0, 1))
	a.metrics.DBQueryDuration.WithLabelValues("list_orders").Observe(time.Since(queryStart).Seconds())
	if err != nil {
		a.log.Error("Failed to list orders", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	payload, err := json.Marshal(orders)
	if err != nil {
		a.log.Error("Failed to marshal orders", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if err = a.redisClient.Set(c.Request.Context(), cacheKey, payload, ordersCacheTTL).Err(); err != nil {
		a.metrics.CacheOps.WithLabelValues("set", "error").Inc()
		a.log.Error("Failed to cache orders", "error", err, "key", cacheKey)
	} else {
		a.metrics.CacheOps.WithLabelValues("set", "success").Inc()
	}

	c.Data(http.StatusOK, "application/json", payload)
}

// patchOrder accepts only the completion flag. Requests naming any other
// field are rejected so clients cannot quietly rewrite pricing history.
func (a *API) patchOrder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order id must be an integer"})
		return
	}

	var body map[string]json.RawMessage
	if err = c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object"})
		return
	}

	rawCompleted, ok := body["is_completed"]
	if !ok || len(body) != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only is_completed can be updated"})
		return
	}

	var completed bool
	if err = json.Unmarshal(rawCompleted, &completed); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_completed must be a boolean"})
		return
	}

	updated, err := a.orders.SetOrderCompletion(c.Request.Context(), id, completed)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		a.log.Error("Failed to update order completion", "error", err, "order", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	a.invalidateOrdersCache(c.Request.Context())
	c.JSON(http.StatusOK, updated)
}

func (a *API) deleteOrder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order id must be an integer"})
		return
	}

	if err = a.orders.DeleteOrder(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		a.log.Error("Failed to delete order", "error", err, "order", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	a.invalidateOrdersCache(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (a *API) listServices(c *gin.Context) {
	services, err := a.catalog.ListServices(c.Request.Context())
	if err != nil {
		a.log.Error("Failed to list services", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, services)
}

func (a *API) listServiceClasses(c *gin.Context) {
	raw := c.Query("service_id")
	if raw == "" {
		classes, err := a.catalog.ListAllServiceClasses(c.Request.Context())
		if err != nil {
			a.log.Error("Failed to list service classes", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.JSON(http.StatusOK, classes)
		return
	}

	serviceID, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service_id must be an integer"})
		return
	}

	classes, err := a.catalog.ListServiceClasses(c.Request.Context(), serviceID)
	if err != nil {
		a.log.Error("Failed to list service classes", "error", err, "service", serviceID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, classes)
}

func (a *API) listEmployeesAtWork(c *gin.Context) {
	day, ok := a.parseDateQuery(c)
	if !ok {
		return
	}

	employees, err := a.orders.ListEmployeesAtWork(c.Request.Context(), day)
	if err != nil {
		a.log.Error("Failed to list employees at work", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, employees)
}

func (a *API) employeeStats(c *gin.Context) {
	day, ok := a.parseDateQuery(c)
	if !ok {
		return
	}

	stats, err := a.orders.EmployeeTotals(c.Request.Context(), day)
	if err != nil {
		a.log.Error("Failed to load employee totals", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, report.AggregateEmployees(stats))
}

// completeEmployeeOrders marks all of one employee's orders for today as
// completed in a single action.
func (a *API) completeEmployeeOrders(c *gin.Context) {
	var body struct {
		EmployeeID int `json:"employee_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "employee_id is required"})
		return
	}

	affected, err := a.orders.CompleteEmployeeOrders(c.Request.Context(), body.EmployeeID, time.Now())
	if err != nil {
		a.log.Error("Failed to complete employee orders", "error", err, "employee", body.EmployeeID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no orders found for this employee today"})
		return
	}

	a.invalidateOrdersCache(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"completed": affected})
}

func (a *API) dailyReport(c *gin.Context) {
	startRaw := c.DefaultQuery("start_date", time.Now().Format(dateLayout))
	endRaw := c.DefaultQuery("end_date", startRaw)

	start, err := time.Parse(dateLayout, startRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must look like YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must look like YYYY-MM-DD"})
		return
	}

	totals, err := a.orders.DailyTotals(c.Request.Context(), start, end.AddDate(0, 0, 1))
	if err != nil {
		a.log.Error("Failed to load daily totals", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, report.Aggregate(totals))
}

// sendNotifications pushes a one-day summary to the configured chats.
// Partial failures come back as 207 with the per-recipient error list.
func (a *API) sendNotifications(c *gin.Context) {
	var body struct {
		Date string `json:"date"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object"})
		return
	}

	day := time.Now()
	if body.Date != "" {
		parsed, err := time.Parse(dateLayout, body.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must look like YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	// Truncate rounds against the UTC epoch and lands on the wrong
	// calendar day in any other zone, so build midnight explicitly.
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	totals, err := a.orders.DailyTotals(c.Request.Context(), dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		a.log.Error("Failed to load daily totals for notification", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	text := summaryText(day, report.Aggregate(totals))
	failures := a.notifier.Broadcast(c.Request.Context(), text)
	if len(failures) > 0 {
		c.JSON(http.StatusMultiStatus, gin.H{"status": "partial", "errors": failures})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func summaryText(day time.Time, reports []models.DailyReport) string {
	if len(reports) == 0 {
		return fmt.Sprintf("Report for %s: no orders.", day.Format("02.01.2006"))
	}

	r := reports[0]
	return fmt.Sprintf(
		"Report for %s:\nWashes: %d\nTotal: %.0f\nEmployees: %.0f\nCashier: %.0f",
		day.Format("02.01.2006"), r.TotalWashes, r.TotalAmount, r.EmployeeShare, r.CompanyShare,
	)
}

func (a *API) parseDateQuery(c *gin.Context) (time.Time, bool) {
	raw := c.DefaultQuery("date", time.Now().Format(dateLayout))

	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must look like YYYY-MM-DD"})
		return time.Time{}, false
	}

	return day, true
}

// invalidateOrdersCache drops every cached orders listing after a write.
// Scanning by prefix is fine at this cache size.
func (a *API) invalidateOrdersCache(ctx context.Context) {
	iter := a.redisClient.Scan(ctx, 0, "oltinwash:orders:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := a.redisClient.Del(ctx, iter.Val()).Err(); err != nil {
			a.log.Warn("Failed to drop cached orders listing", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		a.log.Warn("Failed to scan orders cache keys", "error", err)
	}
}
