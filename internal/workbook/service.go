package workbook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-gpa/internal/common"
	"github.com/noah-isme/backend-gpa/internal/gpa"
	"github.com/noah-isme/backend-gpa/internal/lock"
	"github.com/noah-isme/backend-gpa/internal/obs"
	"github.com/noah-isme/backend-gpa/internal/resilience"
)

// View is a workbook together with its derived figures.
type View struct {
	Workbook *Workbook `json:"workbook"`
	Summary  Summary   `json:"summary"`
}

func viewOf(wb *Workbook) View {
	return View{Workbook: wb, Summary: wb.Summarize()}
}

// Service loads, mutates and saves workbooks. Mutations of one workbook are
// serialized through Locker.
type Service struct {
	Store   Store
	Locker  lock.Locker
	Policy  gpa.Policy
	LockTTL time.Duration
	Logger  zerolog.Logger
	Now     func() time.Time
}

// NewService constructs a workbook service. A nil locker falls back to an in-process one.
func NewService(store Store, locker lock.Locker, policy gpa.Policy, logger zerolog.Logger) *Service {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return &Service{Store: store, Locker: locker, Policy: policy, LockTTL: lock.DefaultTTL, Logger: logger, Now: time.Now}
}

// Create starts a new workbook.
func (s *Service) Create(ctx context.Context) (View, error) {
	wb := New(s.Policy, s.now())
	err := s.Store.Save(ctx, wb)
	obs.ObserveWorkbookOperation("create", err)
	if err != nil {
		return View{}, s.fail("create", wb.ID, err)
	}
	s.Logger.Info().Str("workbook_id", wb.ID).Str("policy", wb.Policy.String()).Msg("workbook_created")
	return viewOf(wb), nil
}

// Get returns the workbook with id.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	wb, err := s.Store.Get(ctx, id)
	if err != nil {
		return View{}, s.fail("get", id, err)
	}
	return viewOf(wb), nil
}

// Delete discards the workbook with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.Locker.WithLock(ctx, lockKey(id), s.lockTTL(), func(ctx context.Context) error {
		return s.Store.Delete(ctx, id)
	})
	obs.ObserveWorkbookOperation("delete", err)
	if err != nil {
		return s.fail("delete", id, err)
	}
	return nil
}

// AddSubject appends a draft subject.
func (s *Service) AddSubject(ctx context.Context, id, name string, marks *int, r gpa.CreditRange) (Subject, View, error) {
	var added Subject
	v, err := s.update(ctx, "add_subject", id, func(wb *Workbook) error {
		var err error
		added, err = wb.AddSubject(name, marks, r)
		return err
	})
	return added, v, err
}

// UpdateSubject patches a draft subject.
func (s *Service) UpdateSubject(ctx context.Context, id, subjectID string, p SubjectPatch) (Subject, View, error) {
	var updated Subject
	v, err := s.update(ctx, "update_subject", id, func(wb *Workbook) error {
		var err error
		updated, err = wb.UpdateSubject(subjectID, p)
		return err
	})
	return updated, v, err
}

// RemoveSubject drops a draft subject.
func (s *Service) RemoveSubject(ctx context.Context, id, subjectID string) (View, error) {
	return s.update(ctx, "remove_subject", id, func(wb *Workbook) error {
		return wb.RemoveSubject(subjectID)
	})
}

// CurrentGPA computes the GPA of the draft without changing the workbook.
func (s *Service) CurrentGPA(ctx context.Context, id string) (gpa.SemesterResult, error) {
	wb, err := s.Store.Get(ctx, id)
	if err != nil {
		return gpa.SemesterResult{}, s.fail("current_gpa", id, err)
	}
	res := wb.engine().DescribeSemester(wb.draft())
	obs.ObserveCalculation("semester", res.GPA)
	if res.GPA == nil {
		return res, s.fail("current_gpa", id, toAppError(ErrNoValidSubjects).WithDetails(res))
	}
	return res, nil
}

// CloseSemester freezes the draft into a computed semester.
func (s *Service) CloseSemester(ctx context.Context, id string) (Semester, View, error) {
	var closed Semester
	v, err := s.update(ctx, "close_semester", id, func(wb *Workbook) error {
		var err error
		closed, err = wb.CloseSemester(s.now())
		return err
	})
	if err == nil {
		g := closed.GPA
		obs.ObserveCalculation("semester", &g)
		s.Logger.Info().Str("workbook_id", id).Str("semester", closed.Name).Float64("gpa", closed.GPA).Msg("semester_closed")
	}
	return closed, v, err
}

// AddManualSemester appends a manually entered semester GPA.
func (s *Service) AddManualSemester(ctx context.Context, id, name string, value *float64) (ManualSemester, View, error) {
	var added ManualSemester
	v, err := s.update(ctx, "add_manual", id, func(wb *Workbook) error {
		added = wb.AddManualSemester(name, value)
		return nil
	})
	if err == nil && added.Set && !gpa.IsValidGPA(added.GPA) {
		obs.ObserveManualRejected(1)
	}
	return added, v, err
}

// UpdateManualSemester renames or re-scores a manual semester.
func (s *Service) UpdateManualSemester(ctx context.Context, id, entryID string, name *string, value *float64) (ManualSemester, View, error) {
	var updated ManualSemester
	v, err := s.update(ctx, "update_manual", id, func(wb *Workbook) error {
		var err error
		updated, err = wb.UpdateManualSemester(entryID, name, value)
		return err
	})
	if err == nil && value != nil && !gpa.IsValidGPA(*value) {
		obs.ObserveManualRejected(1)
	}
	return updated, v, err
}

// RemoveManualSemester drops a manual semester.
func (s *Service) RemoveManualSemester(ctx context.Context, id, entryID string) (View, error) {
	return s.update(ctx, "remove_manual", id, func(wb *Workbook) error {
		return wb.RemoveManualSemester(entryID)
	})
}

// CGPA returns the derived figures of the workbook.
func (s *Service) CGPA(ctx context.Context, id string) (Summary, error) {
	wb, err := s.Store.Get(ctx, id)
	if err != nil {
		return Summary{}, s.fail("cgpa", id, err)
	}
	sum := wb.Summarize()
	obs.ObserveCalculation("cgpa", sum.CGPA)
	return sum, nil
}

func (s *Service) update(ctx context.Context, op, id string, fn func(*Workbook) error) (View, error) {
	ctx, span := otel.Tracer("workbook").Start(ctx, "workbook."+op)
	defer span.End()
	span.SetAttributes(attribute.String("workbook.id", id))

	var out *Workbook
	err := s.Locker.WithLock(ctx, lockKey(id), s.lockTTL(), func(ctx context.Context) error {
		wb, err := s.Store.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(wb); err != nil {
			return err
		}
		wb.UpdatedAt = s.now()
		if err := s.Store.Save(ctx, wb); err != nil {
			return err
		}
		out = wb
		return nil
	})
	obs.ObserveWorkbookOperation(op, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return View{}, s.fail(op, id, err)
	}
	return viewOf(out), nil
}

// fail converts err into an AppError, logging anything that is not a caller mistake.
func (s *Service) fail(op, id string, err error) error {
	appErr := toAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		s.Logger.Error().Err(err).Str("op", op).Str("workbook_id", id).Msg("workbook_operation_failed")
	} else {
		s.Logger.Debug().Err(err).Str("op", op).Str("workbook_id", id).Msg("workbook_operation_rejected")
	}
	return appErr
}

func toAppError(err error) *common.AppError {
	var appErr *common.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, ErrNotFound):
		return common.NewAppError("NOT_FOUND", "workbook not found", http.StatusNotFound, err)
	case errors.Is(err, ErrSubjectNotFound):
		return common.NewAppError("NOT_FOUND", "subject not found", http.StatusNotFound, err)
	case errors.Is(err, ErrManualSemesterNotFound):
		return common.NewAppError("NOT_FOUND", "manual semester not found", http.StatusNotFound, err)
	case errors.Is(err, ErrNoValidSubjects):
		return common.NewAppError("NO_VALID_SUBJECTS", gpa.NoValidSubjectsMessage, http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrLastManualSemester):
		return common.NewAppError("CONFLICT", ErrLastManualSemester.Error(), http.StatusConflict, err)
	case errors.Is(err, gpa.ErrUnknownCreditRange):
		return common.NewAppError("VALIDATION_FAILED", err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, resilience.ErrOpenCircuit):
		return common.NewAppError("STORE_UNAVAILABLE", "workbook store temporarily unavailable", http.StatusServiceUnavailable, err)
	case errors.Is(err, lock.ErrNotAcquired):
		return common.NewAppError("WORKBOOK_BUSY", "workbook is busy, retry shortly", http.StatusServiceUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return common.NewAppError("STORE_UNAVAILABLE", "workbook store timed out", http.StatusServiceUnavailable, err)
	default:
		return common.NewAppError("INTERNAL", "internal error", http.StatusInternalServerError, err)
	}
}

func lockKey(id string) string { return "lock:workbook:" + id }

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL <= 0 {
		return lock.DefaultTTL
	}
	return s.LockTTL
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
