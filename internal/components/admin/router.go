package admin

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/sweetshop/console/internal/backend"
	"github.com/sweetshop/console/internal/shared/middleware"
)

// maxUploadSize bounds in-memory parsing of image uploads.
const maxUploadSize = 10 << 20

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

	router.Get("/", r.DashboardPage)
	router.Get("/dashboard", r.Dashboard)
	router.Post("/sweets", r.CreateSweet)
	router.Get("/sweets/{id}/edit", r.GetEditForm)
	router.Put("/sweets/{id}", r.UpdateSweet)
	router.Post("/sweets/{id}/restock", r.Restock)
	router.Delete("/sweets/{id}", r.DeleteSweet)
	router.Delete("/users/{id}", r.DeleteUser)

	return router
}

// HTMX template data structure
type DashboardTemplateData struct {
	Username  string
	CallerID  int
	Overview  Overview
	LowStock  []backend.Sweet
	Sweets    []backend.Sweet
	Users     []backend.UserProfile
	SweetsErr string
	UsersErr  string
}

// DashboardPage renders the admin shell; the dashboard fragment loads itself
// over HTMX and re-fetches after every mutation.
func (r *Router) DashboardPage(w http.ResponseWriter, req *http.Request) {
	logger := hlog.FromRequest(req)
	sess := middleware.FromContext(req.Context())

	tmpl, err := template.ParseFiles("templates/admin.html")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to parse admin template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := tmpl.Execute(w, sess.User); err != nil {
		logger.Error().Err(err).Msg("Failed to execute admin template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Dashboard returns the full dashboard fragment. Inventory and users are
// fetched concurrently and joined here; either half may fail on its own.
func (r *Router) Dashboard(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := hlog.FromRequest(req)
	sess := middleware.FromContext(ctx)

	data := r.service.LoadDashboard(ctx, sess.Token)

	templateData := DashboardTemplateData{
		Username: sess.User.Username,
		CallerID: sess.User.UserID,
		Overview: BuildOverview(data.Sweets, data.Users),
		LowStock: LowStock(data.Sweets),
		Sweets:   data.Sweets,
		Users:    data.Users,
	}
	if data.SweetsErr != nil {
		logger.Error().Err(data.SweetsErr).Msg("Error fetching sweets")
		templateData.SweetsErr = backend.ErrorMessage(data.SweetsErr)
	}
	if data.UsersErr != nil {
		logger.Error().Err(data.UsersErr).Msg("Error fetching users")
		templateData.UsersErr = backend.ErrorMessage(data.UsersErr)
	}

	tmpl, err := template.ParseFiles("templates/admin_dashboard.html")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to parse dashboard template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	if err := tmpl.Execute(w, templateData); err != nil {
		logger.Error().Err(err).Msg("Failed to execute dashboard template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// CreateSweet adds an inventory item from a multipart form; the image is
// optional and only attached when a file was chosen.
func (r *Router) CreateSweet(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := hlog.FromRequest(req)
	sess := middleware.FromContext(ctx)

	if err := req.ParseMultipartForm(maxUploadSize); err != nil {
		logger.Warn().Err(err).Msg("Failed to parse form")
		writeError(w, "Invalid form data")
		return
	}

	price, err := strconv.ParseFloat(req.FormValue("price"), 64)
	if err != nil || price < 0 {
		writeError(w, "Price must be a non-negative number")
		return
	}

	quantity, err := strconv.Atoi(req.FormValue("quantity_in_stock"))
	if err != nil || quantity < 0 {
		writeError(w, "Initial stock must be a non-negative whole number")
		return
	}

	fields := backend.SweetFields{
		Name:            req.FormValue("name"),
		Category:        req.FormValue("category"),
		Price:           price,
		QuantityInStock: quantity,
	}
	if fields.Name == "" || fields.Category == "" {
		writeError(w, "Name and category are required")
		return
	}

	image, err := readImage(req)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read image upload")
		writeError(w, "Could not read the image file")
		return
	}

	sweet, err := r.service.CreateSweet(ctx, sess.Token, fields, image)
	if err != nil {
		logger.Error().Err(err).Str("name", fields.Name).Msg("Error creating sweet")
		writeError(w, backend.ErrorMessage(err))
		return
	}

	logger.Debug().Int("sweet_id", sweet.SweetID).Str("name", sweet.Name).Msg("Sweet created")
	writeSuccess(w, fmt.Sprintf("%s added successfully!", sweet.Name))
}

// GetEditForm returns the inline edit form for a sweet.
func (r *Router) GetEditForm(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := hlog.FromRequest(req)
	sess := middleware.FromContext(ctx)

	id, err := sweetID(req)
	if err != nil {
		http.Error(w, "Invalid sweet ID", http.StatusBadRequest)
		return
	}

	sweet, err := r.service.GetSweet(ctx, sess.Token, id)
	if err != nil {
		logger.Error().Err(err).Int("id", id).Msg("Error getting sweet by ID")
		http.Error(w, "Sweet not found", http.StatusNotFound)
		return
	}

	editFormHTML := fmt.Sprintf(`
		<tr id="edit-row-%d">
			<td colspan="7">
			<form hx-put="/admin/sweets/%d" hx-encoding="multipart/form-data" hx-target="#messages" hx-swap="innerHTML" style="display: inline-flex; gap: 5px; align-items: center;">
				<input type="text" name="name" value="%s" required>
				<input type="text" name="category" value="%s" required>
				<input type="number" name="price" value="%.2f" step="0.01" min="0" required>
				<input type="number" name="quantity_in_stock" value="%d" min="0" required>
				<input type="file" name="image" accept="image/*">
				<button type="submit" class="btn btn-success btn-sm">Save</button>
				<button type="button" class="btn btn-secondary btn-sm"
						hx-get="/admin/dashboard"
						hx-target="#dashboard"
						hx-swap="innerHTML">Cancel</button>
			</form>
			</td>
		</tr>`,
		sweet.SweetID, sweet.SweetID,
		template.HTMLEscapeString(sweet.Name), template.HTMLEscapeString(sweet.Category),
		sweet.Price, sweet.QuantityInStock)

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, editFormHTML)
}

// UpdateSweet applies the two-step edit: field update, then an independent
// image upload when a file was attached. An image failure after a successful
// field update is surfaced as a partial-failure warning, not rolled back.
func (r *Router) UpdateSweet(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := hlog.FromRequest(req)
	sess := middleware.FromContext(ctx)

	id, err := sweetID(req)
	if err != nil {
		writeError(w, "Invalid sweet ID")
		return
	}

	if err := req.ParseMultipartForm(maxUploadSize); err != nil {
		logger.Warn().Err(err).Msg("Failed to parse form")
		writeError(w, "Invalid form data")
		return
	}

	update := backend.SweetUpdate{}
	if name := req.FormValue("name"); name != "" {
		update.Name = &name
	}
	if category := req.FormValue("category"); category != "" {
		update.Category = &category
	}
	if priceStr := req.FormValue("price"); priceStr != "" {
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price < 0 {
			writeError(w, "Price must be a non-negative number")
			return
		}
		update.Price = &price
	}
	if quantityStr := req.FormValue("quantity_in_stock"); quantityStr != "" {
		quantity, err := strconv.Atoi(quantityStr)
		if err != nil || quantity < 0 {
			writeError(w, "Stock must be a non-negative whole number")
			return
		}
		update.QuantityInStock = &quantity
	}

	image, err := readImage(req)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read image upload")
		writeError(w, "Could not read the image file")
		return
	}

	result, err := r.service.UpdateSweet(ctx, sess.Token, id, update, image)
	if err != nil {
		logger.Error().Err(err).Int("id", id).Msg("Error updating sweet")
		writeError(w, backend.ErrorMessage(err))
		return
	}

	if result.ImageErr != nil {
		logger.Warn().Err(result.ImageErr).Int("id", id).Msg("Image upload failed after field update")
		writeWarning(w, fmt.Sprintf("%s updated, but the image upload failed: %s",
			result.Sweet.Name, backend.ErrorMessage(result.ImageErr)))
		return
	}

	logger.Debug().Int("sweet_id", result.Sweet.SweetID).Msg("Sweet updated")
	writeSuccess(w, fmt.Sprintf("%s updated successfully!", result.Sweet.Name))
}

// Restock adds stock to an item; non-positive and non-numeric quantities are
// rejected before any upstream call.
func (r *Router) Restock(w http.ResponseWriter, req *http.Request) {
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
		writeError(w, ErrInvalidQuantity.Error())
		return
	}

	sweet, err := r.service.Restock(ctx, sess.Token, id, quantity)
	if err != nil {
		if err == ErrInvalidQuantity {
			writeError(w, err.Error())
			return
		}
		logger.Error().Err(err).Int("id", id).Msg("Error restocking sweet")
		writeError(w, backend.ErrorMessage(err))
		return
	}

	logger.Debug().Int("sweet_id", sweet.SweetID).Int("quantity", quantity).Msg("Sweet restocked")
	writeSuccess(w, fmt.Sprintf("Successfully restocked %d %s!", quantity, sweet.Name))
}

func (r *Router) DeleteSweet(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := hlog.FromRequest(req)
	sess := middleware.FromContext(ctx)

	id, err := sweetID(req)
	if err != nil {
		writeError(w, "Invalid sweet ID")
		return
	}

	if err := r.service.DeleteSweet(ctx, sess.Token, id); err != nil {
		logger.Error().Err(err).Int("id", id).Msg("Error deleting sweet")
		writeError(w, backend.ErrorMessage(err))
		return
	}

	logger.Debug().Int("sweet_id", id).Msg("Sweet deleted")
	writeSuccess(w, "Sweet deleted successfully!")
}

func (r *Router) DeleteUser(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := hlog.FromRequest(req)
	sess := middleware.FromContext(ctx)

	idStr := chi.URLParam(req, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		writeError(w, "Invalid user ID")
		return
	}

	if err := r.service.DeleteUser(ctx, sess.Token, sess.User.UserID, id); err != nil {
		if err == ErrSelfDelete {
			writeError(w, "You cannot delete your own account")
			return
		}
		logger.Error().Err(err).Int("id", id).Msg("Error deleting user")
		writeError(w, backend.ErrorMessage(err))
		return
	}

	logger.Debug().Int("user_id", id).Msg("User deleted")
	writeSuccess(w, "User deleted successfully!")
}

func sweetID(req *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(req, "id"))
}

// readImage pulls the optional image part from a multipart form; nil when no
// file was chosen.
func readImage(req *http.Request) (*backend.Image, error) {
	file, header, err := req.FormFile("image")
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if header.Filename == "" {
		return nil, nil
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &backend.Image{FileName: header.Filename, Data: data}, nil
}

// Mutation outcomes land in the shared message region; successes and partial
// failures also trigger a full dashboard re-fetch so the lists always show
// fresh server state.
func writeSuccess(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("HX-Trigger", "refreshDashboard")
	fmt.Fprintf(w, `<div class="message success">%s</div>`, template.HTMLEscapeString(msg))
}

func writeWarning(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("HX-Trigger", "refreshDashboard")
	fmt.Fprintf(w, `<div class="message warning">%s</div>`, template.HTMLEscapeString(msg))
}

func writeError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<div class="message error">%s</div>`, template.HTMLEscapeString(msg))
}
