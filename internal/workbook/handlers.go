package workbook

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-gpa/internal/common"
	"github.com/noah-isme/backend-gpa/internal/gpa"
)

// Handler exposes workbook sessions over HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	// CloseMiddleware wraps POST /semesters, typically with idempotency protection.
	CloseMiddleware func(http.Handler) http.Handler
}

// NewHandler builds a handler around svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, Validate: common.NewValidator()}
}

type addSubjectRequest struct {
	Name        string          `json:"name" validate:"max=120"`
	Marks       *int            `json:"marks"`
	CreditRange gpa.CreditRange `json:"creditRange" validate:"omitempty,oneof=20 40 60 80 100"`
}

type updateSubjectRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=120"`
	Marks       *int             `json:"marks"`
	ClearMarks  bool             `json:"clearMarks"`
	CreditRange *gpa.CreditRange `json:"creditRange" validate:"omitempty,oneof=20 40 60 80 100"`
}

type manualRequest struct {
	Name *string  `json:"name" validate:"omitempty,max=120"`
	GPA  *float64 `json:"gpa"`
}

// Routes mounts the workbook endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.requireID)
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Post("/subjects", h.AddSubject)
		r.Patch("/subjects/{subjectId}", h.UpdateSubject)
		r.Delete("/subjects/{subjectId}", h.RemoveSubject)
		r.Post("/gpa", h.CurrentGPA)
		if h.CloseMiddleware != nil {
			r.With(h.CloseMiddleware).Post("/semesters", h.CloseSemester)
		} else {
			r.Post("/semesters", h.CloseSemester)
		}
		r.Post("/manual-semesters", h.AddManualSemester)
		r.Patch("/manual-semesters/{entryId}", h.UpdateManualSemester)
		r.Delete("/manual-semesters/{entryId}", h.RemoveManualSemester)
		r.Get("/cgpa", h.CGPA)
	})
}

func (h *Handler) requireID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := uuid.Validate(chi.URLParam(r, "id")); err != nil {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "workbook not found", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Create starts a new workbook session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.Create(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/workbooks/"+v.Workbook.ID)
	common.Data(w, http.StatusCreated, v)
}

// Get returns a workbook with its derived figures.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, v)
}

// Delete discards a workbook.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddSubject appends a draft subject.
func (h *Handler) AddSubject(w http.ResponseWriter, r *http.Request) {
	var req addSubjectRequest
	if !common.BindJSON(w, r, h.Validate, &req) {
		return
	}
	s, v, err := h.Svc.AddSubject(r.Context(), chi.URLParam(r, "id"), req.Name, req.Marks, req.CreditRange)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, map[string]any{"subject": s, "workbook": v.Workbook, "summary": v.Summary})
}

// UpdateSubject patches a draft subject.
func (h *Handler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	var req updateSubjectRequest
	if !common.BindJSON(w, r, h.Validate, &req) {
		return
	}
	patch := SubjectPatch{Name: req.Name, Marks: req.Marks, ClearMarks: req.ClearMarks, CreditRange: req.CreditRange}
	s, v, err := h.Svc.UpdateSubject(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "subjectId"), patch)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"subject": s, "workbook": v.Workbook, "summary": v.Summary})
}

// RemoveSubject drops a draft subject.
func (h *Handler) RemoveSubject(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.RemoveSubject(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "subjectId"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, v)
}

// CurrentGPA computes the draft semester GPA without closing it.
func (h *Handler) CurrentGPA(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.CurrentGPA(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, res)
}

// CloseSemester freezes the draft into a computed semester.
func (h *Handler) CloseSemester(w http.ResponseWriter, r *http.Request) {
	sem, v, err := h.Svc.CloseSemester(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, map[string]any{"semester": sem, "workbook": v.Workbook, "summary": v.Summary})
}

// AddManualSemester appends a manual semester GPA.
func (h *Handler) AddManualSemester(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if !common.BindJSON(w, r, h.Validate, &req) {
		return
	}
	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	m, v, err := h.Svc.AddManualSemester(r.Context(), chi.URLParam(r, "id"), name, req.GPA)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, map[string]any{"manualSemester": m, "valid": m.Valid(), "workbook": v.Workbook, "summary": v.Summary})
}

// UpdateManualSemester renames or re-scores a manual semester.
func (h *Handler) UpdateManualSemester(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if !common.BindJSON(w, r, h.Validate, &req) {
		return
	}
	m, v, err := h.Svc.UpdateManualSemester(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "entryId"), req.Name, req.GPA)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"manualSemester": m, "valid": m.Valid(), "workbook": v.Workbook, "summary": v.Summary})
}

// RemoveManualSemester drops a manual semester.
func (h *Handler) RemoveManualSemester(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.RemoveManualSemester(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "entryId"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, v)
}

// CGPA reports the three CGPA views and the academic standing.
func (h *Handler) CGPA(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Svc.CGPA(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, sum)
}
