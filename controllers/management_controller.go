package controllers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bistro-app/bistro-api/models"
	"github.com/bistro-app/bistro-api/services"
)

// Marker keys in the management form body. The key that is present
// selects the command; exactly one is submitted per request.
const (
	keyAddOrder        = "addorder"
	keyDeleteOrder     = "deleteorder"
	keySearchOrder     = "searchorder"
	keyUpdateStatus    = "updatestatus"
	keyTotalPaidOrders = "totalpaidorders"
)

const (
	flashCookie = "bistro_flash"
	dateLayout  = "2006-01-02"
	listingPath = "/manage/orders"
)

type commandKind int

const (
	cmdNoOp commandKind = iota
	cmdCreateOrder
	cmdDeleteOrder
	cmdSearchOrders
	cmdUpdateStatus
	cmdReportTotalPaid
)

// command is the tagged result of parsing a management form post.
// Only the fields of the matching variant are set.
type command struct {
	kind commandKind

	tableNumber int
	quantities  map[uint]int

	orderID uint
	status  string

	day         time.Time
	tableFilter *int
}

var errInvalidForm = errors.New("invalid form data")

const ctxFlashKey = "flashes"

// flash is a one-shot banner message. Messages added while handling a
// request are rendered directly when the request ends in a page, or
// carried across in a cookie when it ends in a redirect.
type flash struct {
	Level string `json:"level"` // success, info or error
	Text  string `json:"text"`
}

func addFlash(c *gin.Context, level, text string) {
	c.Set(ctxFlashKey, append(pendingFlashes(c), flash{Level: level, Text: text}))
}

func pendingFlashes(c *gin.Context) []flash {
	if v, ok := c.Get(ctxFlashKey); ok {
		if flashes, ok := v.([]flash); ok {
			return flashes
		}
	}
	return nil
}

func cookieFlashes(c *gin.Context) []flash {
	val, err := c.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	raw, err := base64.URLEncoding.DecodeString(val)
	if err != nil {
		return nil
	}
	var flashes []flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil
	}
	return flashes
}

// takeFlashes drains every message destined for the page being
// rendered: those carried over from a redirect plus those added while
// handling the current request.
func takeFlashes(c *gin.Context) []flash {
	carried := cookieFlashes(c)
	if len(carried) > 0 {
		c.SetCookie(flashCookie, "", -1, "/", "", false, true)
	}
	return append(carried, pendingFlashes(c)...)
}

// parseCommand classifies the form body into one command variant by the
// presence of its marker key and validates that variant's fields. A
// returned error still carries the kind so the caller can pick the
// right failure behavior.
func parseCommand(c *gin.Context, loc *time.Location) (command, error) {
	switch {
	case formHasKey(c, keyAddOrder):
		return parseCreateOrder(c)
	case formHasKey(c, keyDeleteOrder):
		return parseDeleteOrder(c)
	case formHasKey(c, keySearchOrder):
		return parseSearchOrders(c, loc)
	case formHasKey(c, keyUpdateStatus):
		return parseUpdateStatus(c)
	case formHasKey(c, keyTotalPaidOrders):
		return parseReportTotalPaid(c, loc)
	}
	return command{kind: cmdNoOp}, nil
}

func formHasKey(c *gin.Context, key string) bool {
	_, ok := c.GetPostForm(key)
	return ok
}

func parseCreateOrder(c *gin.Context) (command, error) {
	cmd := command{kind: cmdCreateOrder}

	table, err := strconv.Atoi(c.PostForm("table_number"))
	if err != nil || table <= 0 {
		return cmd, errInvalidForm
	}

	selected := c.PostFormArray("items")
	if len(selected) == 0 {
		return cmd, errInvalidForm
	}

	var submitted map[string]int
	if raw := c.PostForm("quantities"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &submitted); err != nil {
			return cmd, errInvalidForm
		}
	}

	// Every selected item must come with a positive quantity.
	quantities := make(map[uint]int, len(selected))
	for _, idStr := range selected {
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			return cmd, errInvalidForm
		}
		qty, ok := submitted[idStr]
		if !ok || qty <= 0 {
			return cmd, errInvalidForm
		}
		quantities[uint(id)] = qty
	}

	cmd.tableNumber = table
	cmd.quantities = quantities
	return cmd, nil
}

func parseDeleteOrder(c *gin.Context) (command, error) {
	cmd := command{kind: cmdDeleteOrder}
	id, err := strconv.ParseUint(c.PostForm("order_id"), 10, 32)
	if err != nil {
		return cmd, errInvalidForm
	}
	cmd.orderID = uint(id)
	return cmd, nil
}

func parseUpdateStatus(c *gin.Context) (command, error) {
	cmd := command{kind: cmdUpdateStatus}
	id, err := strconv.ParseUint(c.PostForm("order_id"), 10, 32)
	if err != nil {
		return cmd, errInvalidForm
	}
	status := c.PostForm("status")
	if !models.ValidStatus(status) {
		return cmd, errInvalidForm
	}
	cmd.orderID = uint(id)
	cmd.status = status
	return cmd, nil
}

func parseSearchOrders(c *gin.Context, loc *time.Location) (command, error) {
	cmd := command{kind: cmdSearchOrders}

	day, err := time.ParseInLocation(dateLayout, c.PostForm("date"), loc)
	if err != nil {
		return cmd, errInvalidForm
	}

	if raw := c.PostForm("table_number"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return cmd, errInvalidForm
		}
		cmd.tableFilter = &n
	}

	status := c.PostForm("status")
	if status == "" {
		status = models.StatusFilterAll
	}
	if status != models.StatusFilterAll && !models.ValidStatus(status) {
		return cmd, errInvalidForm
	}

	cmd.day = day
	cmd.status = status
	return cmd, nil
}

func parseReportTotalPaid(c *gin.Context, loc *time.Location) (command, error) {
	cmd := command{kind: cmdReportTotalPaid}
	day, err := time.ParseInLocation(dateLayout, c.PostForm("date"), loc)
	if err != nil {
		return cmd, errInvalidForm
	}
	cmd.day = day
	return cmd, nil
}

// ManagementListing handles GET /manage/orders - the order listing page
// context with any pending flash messages
func ManagementListing(c *gin.Context) {
	renderListing(c, orderService(), nil)
}

// ManagementDispatch handles POST /manage/orders. Create, delete and
// status updates redirect back to the listing; search and the paid
// report render the listing directly with their results injected.
func ManagementDispatch(c *gin.Context) {
	svc := orderService()

	cmd, err := parseCommand(c, svc.Location())
	if err != nil {
		switch cmd.kind {
		case cmdCreateOrder:
			addFlash(c, "error", "Invalid form data. Please check the input and try again.")
			renderListing(c, svc, nil)
		case cmdSearchOrders, cmdReportTotalPaid:
			// No search was performed: plain listing, search_mode off.
			renderListing(c, svc, nil)
		default:
			redirectToListing(c)
		}
		return
	}

	switch cmd.kind {
	case cmdCreateOrder:
		handleCreateOrder(c, svc, cmd)
	case cmdDeleteOrder:
		handleDeleteOrder(c, svc, cmd)
	case cmdUpdateStatus:
		handleUpdateStatus(c, svc, cmd)
	case cmdSearchOrders:
		handleSearchOrders(c, svc, cmd)
	case cmdReportTotalPaid:
		handleReportTotalPaid(c, svc, cmd)
	default:
		renderListing(c, svc, nil)
	}
}

// ManagementOrderDetail handles GET /manage/orders/:id - one order with
// its line items eagerly loaded
func ManagementOrderDetail(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	order, err := orderService().Get(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ORDER_NOT_FOUND",
					"message": "Order not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load order",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": services.OrderWithTotal{Order: *order, TotalPrice: order.Total()},
	})
}

func handleCreateOrder(c *gin.Context, svc *services.OrderService, cmd command) {
	if _, err := svc.Create(cmd.tableNumber, cmd.quantities); err != nil {
		var vErr *services.ValidationError
		var iErr *services.IntegrityError
		switch {
		case errors.As(err, &vErr):
			addFlash(c, "error", "Invalid form data. Please check the input and try again.")
		case errors.As(err, &iErr):
			addFlash(c, "error", fmt.Sprintf("An error occurred while saving the order: %s", iErr.Err))
		default:
			addFlash(c, "error", fmt.Sprintf("An unexpected error occurred: %s", err))
		}
		renderListing(c, svc, nil)
		return
	}

	addFlash(c, "success", fmt.Sprintf("Order for table %d added successfully.", cmd.tableNumber))
	redirectToListing(c)
}

func handleDeleteOrder(c *gin.Context, svc *services.OrderService, cmd command) {
	switch err := svc.Delete(cmd.orderID); {
	case err == nil:
		addFlash(c, "info", fmt.Sprintf("The order #%d successfully deleted.", cmd.orderID))
	case errors.Is(err, services.ErrOrderNotFound):
		addFlash(c, "error", "The order you tried to delete does not exist.")
	default:
		addFlash(c, "error", fmt.Sprintf("An unexpected error occurred: %s", err))
	}
	redirectToListing(c)
}

func handleUpdateStatus(c *gin.Context, svc *services.OrderService, cmd command) {
	switch _, err := svc.UpdateStatus(cmd.orderID, cmd.status); {
	case err == nil:
		addFlash(c, "success", "Order status updated successfully.")
	case errors.Is(err, services.ErrOrderNotFound):
		addFlash(c, "error", "The order you tried to update does not exist.")
	default:
		addFlash(c, "error", fmt.Sprintf("An unexpected error occurred: %s", err))
	}
	redirectToListing(c)
}

func handleSearchOrders(c *gin.Context, svc *services.OrderService, cmd command) {
	results, err := svc.Search(cmd.day, cmd.tableFilter, cmd.status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to search orders",
			},
		})
		return
	}

	c.JSON(http.StatusOK, listingContext(c, results, true, nil))
}

func handleReportTotalPaid(c *gin.Context, svc *services.OrderService, cmd command) {
	total, err := svc.TotalPaid(cmd.day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to compute total",
			},
		})
		return
	}
	renderListing(c, svc, total.StringFixed(2))
}

// renderListing writes the listing page context. totalPaid is non-nil
// only right after a paid-total report.
func renderListing(c *gin.Context, svc *services.OrderService, totalPaid any) {
	orders, err := svc.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list orders",
			},
		})
		return
	}

	c.JSON(http.StatusOK, listingContext(c, orders, false, totalPaid))
}

// listingContext assembles the page payload shared by the plain listing
// and the search render, draining flash messages in the process.
func listingContext(c *gin.Context, orders []services.OrderWithTotal, searchMode bool, totalPaid any) gin.H {
	return gin.H{
		"orders":             orders,
		"messages":           takeFlashes(c),
		"search_mode":        searchMode,
		"show_search_orders": searchMode,
		"total_paid":         totalPaid,
	}
}

func redirectToListing(c *gin.Context) {
	if flashes := pendingFlashes(c); len(flashes) > 0 {
		raw, _ := json.Marshal(flashes)
		c.SetCookie(flashCookie, base64.URLEncoding.EncodeToString(raw), 300, "/", "", false, true)
	}
	c.Redirect(http.StatusSeeOther, listingPath)
}
