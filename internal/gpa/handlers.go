package gpa

import (
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-gpa/internal/common"
	"github.com/noah-isme/backend-gpa/internal/obs"
)

// NoValidSubjectsMessage is shown when a semester has no subject with usable marks.
const NoValidSubjectsMessage = "enter valid marks for at least one subject"

// Handler exposes the conversion engine over HTTP. Every endpoint is a pure computation.
type Handler struct {
	Engine   Engine
	Validate *validator.Validate
}

// NewHandler builds a handler for e with the shared request validator.
func NewHandler(e Engine) *Handler {
	return &Handler{Engine: e, Validate: common.NewValidator()}
}

type subjectRequest struct {
	Name        string      `json:"name" validate:"max=120"`
	Marks       *int        `json:"marks"`
	CreditRange CreditRange `json:"creditRange" validate:"required,oneof=20 40 60 80 100"`
}

type semesterRequest struct {
	Subjects []subjectRequest `json:"subjects" validate:"max=50,dive"`
}

type cgpaRequest struct {
	GPAs []float64 `json:"gpas" validate:"max=50"`
}

// SubjectResult is the engine outcome for one subject.
type SubjectResult struct {
	Name          string      `json:"name,omitempty"`
	Marks         *int        `json:"marks"`
	CreditRange   CreditRange `json:"creditRange"`
	GPA           *float64    `json:"gpa"`
	QualityPoints float64     `json:"qualityPoints"`
	Valid         bool        `json:"valid"`
}

// SemesterResult is the engine outcome for a list of subjects.
type SemesterResult struct {
	GPA      *float64        `json:"gpa"`
	Counted  int             `json:"counted"`
	Subjects []SubjectResult `json:"subjects"`
}

// CGPAResult is the engine outcome for a list of semester GPAs.
type CGPAResult struct {
	CGPA     *float64  `json:"cgpa"`
	Count    int       `json:"count"`
	Rejected []int     `json:"rejected"`
	Standing *Standing `json:"standing,omitempty"`
}

// CreditRangeInfo describes one supported credit range.
type CreditRangeInfo struct {
	CreditRange      CreditRange `json:"creditRange"`
	Divider          float64     `json:"divider"`
	MinimumMarks     int         `json:"minimumMarks"`
	MaxQualityPoints float64     `json:"maxQualityPoints"`
}

// DescribeSubject runs the engine for one subject and reports the intermediate lookup.
func (e Engine) DescribeSubject(s Subject) SubjectResult {
	res := SubjectResult{Name: s.Name, Marks: s.Marks, CreditRange: s.CreditRange}
	if g, ok := e.SubjectGPA(s.Marks, s.CreditRange); ok {
		res.GPA = &g
		res.Valid = true
		res.QualityPoints, _ = QualityPoints(*s.Marks, s.CreditRange)
	}
	return res
}

// DescribeSemester runs the engine for a semester and reports each subject.
func (e Engine) DescribeSemester(subjects []Subject) SemesterResult {
	res := SemesterResult{Subjects: make([]SubjectResult, 0, len(subjects))}
	for _, s := range subjects {
		sr := e.DescribeSubject(s)
		if sr.Valid {
			res.Counted++
		}
		res.Subjects = append(res.Subjects, sr)
	}
	if g, ok := e.SemesterGPA(subjects); ok {
		res.GPA = &g
	}
	return res
}

// DescribeCGPA filters out-of-range GPAs and averages the rest. CGPA stays nil when
// nothing is left to average.
func DescribeCGPA(gpas []float64) CGPAResult {
	valid, rejected := SplitValid(gpas)
	res := CGPAResult{Count: len(valid), Rejected: rejected}
	if res.Rejected == nil {
		res.Rejected = []int{}
	}
	if len(valid) > 0 {
		c := CGPA(valid)
		st := StandingFor(c)
		res.CGPA = &c
		res.Standing = &st
	}
	return res
}

// CreditRangesInfo lists every supported credit range with its table bounds.
func CreditRangesInfo() []CreditRangeInfo {
	out := make([]CreditRangeInfo, 0, len(creditRanges))
	for _, r := range creditRanges {
		maxQP, _ := QualityPoints(int(r), r)
		out = append(out, CreditRangeInfo{
			CreditRange:      r,
			Divider:          Divider(r),
			MinimumMarks:     MinimumMarks(r),
			MaxQualityPoints: maxQP,
		})
	}
	return out
}

// CreditRanges lists the supported credit ranges.
func (h *Handler) CreditRanges(w http.ResponseWriter, _ *http.Request) {
	common.Data(w, http.StatusOK, map[string]any{
		"creditRanges": CreditRangesInfo(),
		"belowMinimum": h.Engine.BelowMinimum.String(),
	})
}

// Subject computes the GPA of a single subject.
func (h *Handler) Subject(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if !common.BindJSON(w, r, h.Validate, &req) {
		return
	}
	_, span := otel.Tracer("gpa").Start(r.Context(), "gpa.subject")
	defer span.End()

	res := h.Engine.DescribeSubject(req.toSubject())
	span.SetAttributes(attribute.Int("gpa.credit_range", int(req.CreditRange)), attribute.Bool("gpa.valid", res.Valid))
	obs.ObserveCalculation("subject", res.GPA)
	common.Data(w, http.StatusOK, res)
}

// Semester computes the GPA of a list of subjects. A semester without any valid subject
// is reported as 422 so the caller can prompt for marks.
func (h *Handler) Semester(w http.ResponseWriter, r *http.Request) {
	var req semesterRequest
	if !common.BindJSON(w, r, h.Validate, &req) {
		return
	}
	_, span := otel.Tracer("gpa").Start(r.Context(), "gpa.semester")
	defer span.End()

	subjects := make([]Subject, 0, len(req.Subjects))
	for _, s := range req.Subjects {
		subjects = append(subjects, s.toSubject())
	}
	res := h.Engine.DescribeSemester(subjects)
	span.SetAttributes(attribute.Int("gpa.subjects", len(subjects)), attribute.Int("gpa.counted", res.Counted))
	obs.ObserveCalculation("semester", res.GPA)
	if res.GPA == nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "NO_VALID_SUBJECTS", NoValidSubjectsMessage, res)
		return
	}
	common.Data(w, http.StatusOK, res)
}

// CGPA averages semester GPAs, rejecting values outside [0, 4].
func (h *Handler) CGPA(w http.ResponseWriter, r *http.Request) {
	var req cgpaRequest
	if !common.BindJSON(w, r, h.Validate, &req) {
		return
	}
	_, span := otel.Tracer("gpa").Start(r.Context(), "gpa.cgpa")
	defer span.End()

	res := DescribeCGPA(req.GPAs)
	span.SetAttributes(attribute.Int("gpa.count", res.Count), attribute.Int("gpa.rejected", len(res.Rejected)))
	obs.ObserveManualRejected(len(res.Rejected))
	obs.ObserveCalculation("cgpa", res.CGPA)
	common.Data(w, http.StatusOK, res)
}

func (s subjectRequest) toSubject() Subject {
	return Subject{Name: s.Name, Marks: s.Marks, CreditRange: s.CreditRange}
}
