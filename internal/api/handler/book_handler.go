package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"librarian/internal/api/middleware"
	"librarian/internal/app/service"
	"librarian/internal/common"

	"github.com/go-chi/chi/v5"
)

type BookHandler struct {
	bookService *service.BookService
}

func NewBookHandler(bookService *service.BookService) *BookHandler {
	return &BookHandler{bookService: bookService}
}

func (h *BookHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
}

func (h *BookHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *BookHandler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	search := r.URL.Query().Get("search")
	genre := r.URL.Query().Get("genre")

	result, err := h.bookService.ListBooks(r.Context(), page, limit, search, genre)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, "Books fetched", result)
}

func (h *BookHandler) get(w http.ResponseWriter, r *http.Request) {
	book, err := h.bookService.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, "Book fetched", book)
}

func (h *BookHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithJSON(w, http.StatusBadRequest, "Invalid request payload", nil)
		return
	}

	adminID, _ := middleware.GetUserIDFromContext(r.Context())
	book, err := h.bookService.AddBook(r.Context(), req, adminID)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, "Book added successfully", book)
}

func (h *BookHandler) update(w http.ResponseWriter, r *http.Request) {
	var req service.BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithJSON(w, http.StatusBadRequest, "Invalid request payload", nil)
		return
	}

	book, err := h.bookService.UpdateBook(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, "Book updated successfully", book)
}

func (h *BookHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.bookService.DeleteBook(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, "Book deleted successfully", nil)
}
