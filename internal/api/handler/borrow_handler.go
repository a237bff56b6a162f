package handler

import (
	"net/http"

	"librarian/internal/api/middleware"
	"librarian/internal/app/service"
	"librarian/internal/common"

	"github.com/go-chi/chi/v5"
)

type BorrowHandler struct {
	borrowService *service.BorrowService
}

func NewBorrowHandler(borrowService *service.BorrowService) *BorrowHandler {
	return &BorrowHandler{borrowService: borrowService}
}

func (h *BorrowHandler) RegisterRoutes(r chi.Router) {
	r.Post("/borrow/{id}", h.borrow)
	r.Post("/return/{id}", h.returnBook)
	r.Get("/history", h.history)
	r.Get("/status", h.status)
}

func (h *BorrowHandler) borrow(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithJSON(w, http.StatusUnauthorized, "Access token required", nil)
		return
	}

	record, err := h.borrowService.Borrow(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, "Book borrowed successfully", record)
}

func (h *BorrowHandler) returnBook(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithJSON(w, http.StatusUnauthorized, "Access token required", nil)
		return
	}

	record, err := h.borrowService.Return(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, "Book returned successfully", record)
}

func (h *BorrowHandler) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithJSON(w, http.StatusUnauthorized, "Access token required", nil)
		return
	}

	records, err := h.borrowService.History(r.Context(), userID)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, "Borrow history fetched", records)
}

func (h *BorrowHandler) status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithJSON(w, http.StatusUnauthorized, "Access token required", nil)
		return
	}

	ids, err := h.borrowService.ActiveBookIDs(r.Context(), userID)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, "Active borrows fetched", ids)
}
