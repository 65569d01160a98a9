package shop

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/sweetshop/console/internal/backend"
	"github.com/sweetshop/console/internal/shared/middleware"
)

type (
	Router struct {
		service servicer
	}
)

func NewRouter(service servicer) chi.Router {
	router := &Router{service: service}
	return router.Routes()
}

func (r *Router) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.ShopPage)
	router.Get("/sweets", r.Grid)
	router.Get("/search", r.Search)
	router.Get("/sweets/{id}/confirm", r.ConfirmPurchase)
	router.Post("/sweets/{id}/purchase", r.Purchase)

	return router
}

// HTMX template data structure
type GridTemplateData struct {
	Sweets     []backend.Sweet
	Categories []string
	Query      string
	Category   string
	MinPrice   string
	MaxPrice   string
}

// ShopPage renders the customer shell; the grid loads itself over HTMX.
func (r *Router) ShopPage(w http.ResponseWriter, req *http.Request) {
	logger := hlog.FromRequest(req)
	sess := middleware.FromContext(req.Context())

	tmpl, err := template.ParseFiles("templates/shop.html")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to parse shop template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := tmpl.Execute(w, sess.User); err != nil {
		logger.Error().Err(err).Msg("Failed to execute shop template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Grid returns the sweets grid without debouncing; used for the initial load
// and for post-purchase refreshes, which keep the current search and filter.
func (r *Router) Grid(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := hlog.FromRequest(req)
	sess := middleware.FromContext(ctx)

	params := req.URL.Query()
	query := params.Get("query")
	category := params.Get("category")

	var (
		sweets []backend.Sweet
		err    error
	)
	if query == "" && category == "" {
		sweets, err = r.service.Browse(ctx, sess.Token)
	} else {
		sweets, err = r.service.SearchNow(ctx, sess.Token, query, category)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Error fetching sweets")
		writeError(w, backend.ErrorMessage(err))
		return
	}

	r.renderGrid(w, req, sweets, params)
}

// Search is the debounced search-as-you-type endpoint. Requests superseded
// by a newer keystroke return 204 and leave the grid untouched.
func (r *Router) Search(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := hlog.FromRequest(req)
	sess := middleware.FromContext(ctx)

	params := req.URL.Query()
	query := params.Get("query")
	category := params.Get("category")

	sweets, superseded, err := r.service.Search(ctx, sess.ID, sess.Token, query, category)
	if superseded {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		logger.Error().Err(err).Str("query", query).Str("category", category).Msg("Search failed")
		writeError(w, backend.ErrorMessage(err))
		return
	}

	r.renderGrid(w, req, sweets, params)
}

// renderGrid applies the local price filter over the fetched list and
// renders the grid fragment.
func (r *Router) renderGrid(w http.ResponseWriter, req *http.Request, sweets []backend.Sweet, params url.Values) {
	logger := hlog.FromRequest(req)

	templateData := GridTemplateData{
		Sweets:     FilterByPrice(sweets, params.Get("min_price"), params.Get("max_price")),
		Categories: Categories(sweets),
		Query:      params.Get("query"),
		Category:   params.Get("category"),
		MinPrice:   params.Get("min_price"),
		MaxPrice:   params.Get("max_price"),
	}

	tmpl, err := template.ParseFiles("templates/shop_grid.html")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to parse grid template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	if err := tmpl.Execute(w, templateData); err != nil {
		logger.Error().Err(err).Msg("Failed to execute grid template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// ConfirmPurchase shows the quantity and the computed total before the
// purchase is submitted. The requested quantity is clamped into the valid
// range for display.
func (r *Router) ConfirmPurchase(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := hlog.FromRequest(req)
	sess := middleware.FromContext(ctx)

	id, err := sweetID(req)
	if err != nil {
		writeError(w, "Invalid sweet ID")
		return
	}

	sweet, err := r.service.GetSweet(ctx, sess.Token, id)
	if err != nil {
		logger.Error().Err(err).Int("id", id).Msg("Error getting sweet by ID")
		writeError(w, backend.ErrorMessage(err))
		return
	}
	if sweet.QuantityInStock == 0 {
		writeError(w, fmt.Sprintf("%s is out of stock", sweet.Name))
		return
	}

	quantity := 1
	if q, err := strconv.Atoi(req.URL.Query().Get("quantity")); err == nil {
		quantity = ClampQuantity(q, sweet.QuantityInStock)
	}
	total := Total(sweet.Price, quantity)

	confirmHTML := fmt.Sprintf(`
		<div id="confirm-%d" class="purchase-confirm">
			<form hx-post="/shop/sweets/%d/purchase" hx-target="#messages" hx-swap="innerHTML" hx-disabled-elt="find button">
				<p>Buying <strong>%s</strong> at &#8377;%.2f each.</p>
				<input type="number" name="quantity" value="%d" min="1" max="%d"
					hx-get="/shop/sweets/%d/confirm" hx-trigger="change" hx-target="#confirm-%d" hx-swap="outerHTML">
				<input type="hidden" name="stock" value="%d">
				<p class="total">Total: &#8377;%.2f</p>
				<button type="submit" class="btn btn-primary">Confirm Purchase</button>
			</form>
		</div>`,
		sweet.SweetID, sweet.SweetID,
		template.HTMLEscapeString(sweet.Name), sweet.Price,
		quantity, sweet.QuantityInStock,
		sweet.SweetID, sweet.SweetID,
		sweet.QuantityInStock, total)

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, confirmHTML)
}

// Purchase submits the order. Quantity is validated against the stock the
// user was shown before anything goes upstream; the backend still has the
// final word.
func (r *Router) Purchase(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := hlog.FromRequest(req)
	sess := middleware.FromContext(ctx)

	id, err := sweetID(req)
	if err != nil {
		writeError(w, "Invalid sweet ID")
		return
	}

	quantity, err := strconv.Atoi(req.FormValue("quantity"))
	if err != nil {
		writeError(w, "Quantity must be a whole number")
		return
	}
	stock, err := strconv.Atoi(req.FormValue("stock"))
	if err != nil {
		writeError(w, "Invalid form data")
		return
	}

	sweet, err := r.service.Purchase(ctx, sess.Token, id, quantity, stock)
	if err != nil {
		if err == ErrQuantityOutOfRange {
			writeError(w, fmt.Sprintf("Quantity must be between 1 and %d", stock))
			return
		}
		logger.Error().Err(err).Int("id", id).Int("quantity", quantity).Msg("Purchase failed")
		writeError(w, backend.ErrorMessage(err))
		return
	}

	logger.Debug().Int("sweet_id", sweet.SweetID).Int("quantity", quantity).Msg("Purchase completed")

	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("HX-Trigger", "refreshSweets")
	fmt.Fprintf(w, `<div class="message success">Successfully purchased %d %s!</div>`,
		quantity, template.HTMLEscapeString(sweet.Name))
}

func sweetID(req *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(req, "id"))
}

func writeError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<div class="message error">%s</div>`, template.HTMLEscapeString(msg))
}
