package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bistro-app/bistro-api/config"
	"github.com/bistro-app/bistro-api/controllers"
	"github.com/bistro-app/bistro-api/models"
	"github.com/bistro-app/bistro-api/tests/testutil"
)

// OrderFlowTestSuite drives the full management and REST surfaces
// against an in-memory database.
type OrderFlowTestSuite struct {
	suite.Suite
	router *gin.Engine
	db     *gorm.DB
}

// SetupTest runs before each test
func (suite *OrderFlowTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	suite.NoError(err)
	suite.NoError(db.Exec("PRAGMA foreign_keys = ON").Error)
	suite.NoError(db.AutoMigrate(&models.MenuItem{}, &models.Order{}, &models.OrderItem{}))
	suite.db = db

	config.SetDB(db)
	config.SetConfig(&config.Config{
		DatabaseURL: "sqlite::memory:",
		Timezone:    "UTC",
		GoEnv:       "test",
	})

	suite.router = gin.New()

	manage := suite.router.Group("/manage")
	{
		manage.GET("/orders", controllers.ManagementListing)
		manage.POST("/orders", controllers.ManagementDispatch)
		manage.GET("/orders/:id", controllers.ManagementOrderDetail)
	}

	v1 := suite.router.Group("/api/v1")
	{
		menu := v1.Group("/menu")
		{
			menu.GET("", controllers.ListMenuItems)
			menu.POST("", controllers.CreateMenuItem)
			menu.GET("/:id", controllers.GetMenuItem)
			menu.PUT("/:id", controllers.UpdateMenuItem)
			menu.DELETE("/:id", controllers.DeleteMenuItem)
		}

		orders := v1.Group("/orders")
		{
			orders.GET("", controllers.ListOrders)
			orders.POST("", controllers.CreateOrder)
			orders.GET("/search", controllers.SearchOrders)
			orders.GET("/total_paid_orders", controllers.TotalPaidOrders)
			orders.GET("/:id", controllers.GetOrder)
			orders.DELETE("/:id", controllers.DeleteOrder)
			orders.PATCH("/:id/status", controllers.UpdateOrderStatus)
		}
	}
}

func (suite *OrderFlowTestSuite) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	suite.NoError(json.NewEncoder(&buf).Encode(body))
	req, _ := http.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *OrderFlowTestSuite) postForm(form url.Values) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/manage/orders", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *OrderFlowTestSuite) get(path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *OrderFlowTestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// TestFullOrderLifecycle walks the whole flow: build the catalog over
// REST, place an order through the management form, inspect it, pay it
// and report the day's takings, then delete it.
func (suite *OrderFlowTestSuite) TestFullOrderLifecycle() {
	// Build the menu catalog
	w := suite.postJSON("/api/v1/menu", map[string]interface{}{"name": "Soup", "price": "5.00"})
	suite.Equal(http.StatusCreated, w.Code)
	soupID := int(suite.decode(w)["data"].(map[string]interface{})["id"].(float64))

	w = suite.postJSON("/api/v1/menu", map[string]interface{}{"name": "Salad", "price": "3.50"})
	suite.Equal(http.StatusCreated, w.Code)
	saladID := int(suite.decode(w)["data"].(map[string]interface{})["id"].(float64))

	// Place an order through the management form
	form := url.Values{}
	form.Set("addorder", "1")
	form.Set("table_number", "12")
	form.Add("items", strconv.Itoa(soupID))
	form.Add("items", strconv.Itoa(saladID))
	form.Set("quantities", `{"`+strconv.Itoa(soupID)+`": 2, "`+strconv.Itoa(saladID)+`": 1}`)

	w = suite.postForm(form)
	suite.Equal(http.StatusSeeOther, w.Code)

	// The listing shows it with its exact total
	w = suite.get("/manage/orders")
	suite.Equal(http.StatusOK, w.Code)
	orders := suite.decode(w)["orders"].([]interface{})
	suite.Len(orders, 1)
	listed := orders[0].(map[string]interface{})
	orderID := int(listed["id"].(float64))
	total := decimal.RequireFromString(listed["total_price"].(string))
	suite.True(total.Equal(decimal.RequireFromString("13.50")), "got %s", total)

	// The detail page loads the line items eagerly
	w = suite.get("/manage/orders/" + strconv.Itoa(orderID))
	suite.Equal(http.StatusOK, w.Code)
	detail := suite.decode(w)["order"].(map[string]interface{})
	suite.Len(detail["order_items"].([]interface{}), 2)

	// Mark it paid over REST
	var buf bytes.Buffer
	suite.NoError(json.NewEncoder(&buf).Encode(map[string]string{"status": models.StatusPaid}))
	req, _ := http.NewRequest("PATCH", "/api/v1/orders/"+strconv.Itoa(orderID)+"/status", &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	suite.Equal(http.StatusOK, rec.Code)

	// Today's paid total picks it up
	w = suite.get("/api/v1/orders/total_paid_orders")
	suite.Equal(http.StatusOK, w.Code)
	data := suite.decode(w)["data"].(map[string]interface{})
	suite.Equal("13.50", data["total_paid"])

	// Delete it; the line items cascade away
	req, _ = http.NewRequest("DELETE", "/api/v1/orders/"+strconv.Itoa(orderID), nil)
	rec = httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	suite.Equal(http.StatusNoContent, rec.Code)

	var remaining int64
	suite.db.Model(&models.OrderItem{}).Count(&remaining)
	suite.Equal(int64(0), remaining)
}

// TestAtomicCreateLeavesNothingOnFailure submits a form whose quantities
// are inconsistent and verifies no partial order survives.
func (suite *OrderFlowTestSuite) TestAtomicCreateLeavesNothingOnFailure() {
	w := suite.postJSON("/api/v1/menu", map[string]interface{}{"name": "Soup", "price": "5.00"})
	suite.Equal(http.StatusCreated, w.Code)
	soupID := int(suite.decode(w)["data"].(map[string]interface{})["id"].(float64))

	form := url.Values{}
	form.Set("addorder", "1")
	form.Set("table_number", "12")
	form.Add("items", strconv.Itoa(soupID))
	form.Add("items", "424242") // selected item with no quantity entry
	form.Set("quantities", `{"`+strconv.Itoa(soupID)+`": 2}`)

	w = suite.postForm(form)
	suite.Equal(http.StatusOK, w.Code, "the listing re-renders with an error")

	var orders, items int64
	suite.db.Model(&models.Order{}).Count(&orders)
	suite.db.Model(&models.OrderItem{}).Count(&items)
	suite.Equal(int64(0), orders)
	suite.Equal(int64(0), items)
}

func TestOrderFlowTestSuite(t *testing.T) {
	testutil.MustSetTestEnvironment(t)
	suite.Run(t, new(OrderFlowTestSuite))
}
