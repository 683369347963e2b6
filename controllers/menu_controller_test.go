package controllers

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bistro-app/bistro-api/models"
)

func TestMenuItemCRUD(t *testing.T) {
	db := setupTestDB(t)
	router := setupAPIRouter()

	// Create
	w := performJSON(router, "POST", "/api/v1/menu", map[string]interface{}{
		"name":  "Borscht",
		"price": "4.25",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	id := int(data["id"].(float64))
	assert.Equal(t, "Borscht", data["name"])

	// Read
	w = performJSON(router, "GET", "/api/v1/menu/"+strconv.Itoa(id), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data = decodeBody(t, w)["data"].(map[string]interface{})
	price := decimal.RequireFromString(data["price"].(string))
	assert.True(t, price.Equal(decimal.RequireFromString("4.25")))

	// Update
	w = performJSON(router, "PUT", "/api/v1/menu/"+strconv.Itoa(id), map[string]interface{}{
		"name":  "Red Borscht",
		"price": "4.75",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	data = decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Red Borscht", data["name"])

	// List
	w = performJSON(router, "GET", "/api/v1/menu", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["data"].([]interface{}), 1)

	// Delete
	w = performJSON(router, "DELETE", "/api/v1/menu/"+strconv.Itoa(id), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	db.Model(&models.MenuItem{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestMenuItemValidationAndNotFound(t *testing.T) {
	setupTestDB(t)
	router := setupAPIRouter()

	w := performJSON(router, "POST", "/api/v1/menu", map[string]interface{}{
		"price": "4.25",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errObj := decodeBody(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])

	for _, req := range []struct{ method, path string }{
		{"GET", "/api/v1/menu/9999"},
		{"PUT", "/api/v1/menu/9999"},
		{"DELETE", "/api/v1/menu/9999"},
	} {
		w := performJSON(router, req.method, req.path, map[string]interface{}{
			"name":  "Ghost",
			"price": "1.00",
		})
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", req.method, req.path)
	}
}

func TestDeleteMenuItemCascadesToOrders(t *testing.T) {
	db := setupTestDB(t)
	soup, salad := seedTestMenu(t, db)
	router := setupAPIRouter()

	w := performJSON(router, "POST", "/api/v1/orders", map[string]interface{}{
		"table_number": 1,
		"menu_items":   []uint{soup.ID, salad.ID},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = performJSON(router, "DELETE", "/api/v1/menu/"+strconv.Itoa(int(soup.ID)), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var items int64
	db.Model(&models.OrderItem{}).Count(&items)
	assert.Equal(t, int64(1), items, "line items of the deleted course must be removed")
}
