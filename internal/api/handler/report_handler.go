package handler

import (
	"net/http"
	"strconv"

	"librarian/internal/app/service"
	"librarian/internal/common"

	"github.com/go-chi/chi/v5"
)

type ReportHandler struct {
	reportService *service.ReportService
}

func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/most-borrowed", h.mostBorrowed)
	r.Get("/active-members", h.activeMembers)
	r.Get("/book-availability", h.bookAvailability)
}

func (h *ReportHandler) mostBorrowed(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	result, err := h.reportService.MostBorrowedBooks(r.Context(), limit)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, "Most borrowed books fetched", result)
}

func (h *ReportHandler) activeMembers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	result, err := h.reportService.ActiveMembers(r.Context(), limit)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, "Active members fetched", result)
}

func (h *ReportHandler) bookAvailability(w http.ResponseWriter, r *http.Request) {
	result, err := h.reportService.BookAvailability(r.Context())
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, "Book availability fetched", result)
}
