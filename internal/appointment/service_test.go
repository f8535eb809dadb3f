package appointment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/practice-calendar/internal/calendar"
	redisclient "github.com/clinicdesk/practice-calendar/internal/redis"
)

type fakeRepo struct {
	patients      map[uuid.UUID]*Patient
	practitioners map[uuid.UUID]*Practitioner
	appointments  map[uuid.UUID]*calendar.Appointment

	updateCalls int
	events      []EventLog

	// staleStatus, when set, is the status GetAppointmentByID reports instead
	// of the stored one, simulating a concurrent change between load and CAS.
	staleStatus calendar.Status
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		patients:      map[uuid.UUID]*Patient{},
		practitioners: map[uuid.UUID]*Practitioner{},
		appointments:  map[uuid.UUID]*calendar.Appointment{},
	}
}

func (f *fakeRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	if p, ok := f.patients[id]; ok {
		return p, nil
	}
	return nil, ErrPatientNotFound
}

func (f *fakeRepo) GetPractitionerByID(_ context.Context, id uuid.UUID) (*Practitioner, error) {
	if p, ok := f.practitioners[id]; ok {
		return p, nil
	}
	return nil, ErrPractitionerNotFound
}

func (f *fakeRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*calendar.Appointment, error) {
	if a, ok := f.appointments[id]; ok {
		cp := *a
		if f.staleStatus != "" {
			cp.Status = f.staleStatus
		}
		return &cp, nil
	}
	return nil, ErrAppointmentNotFound
}

func (f *fakeRepo) ListRange(_ context.Context, from, to string, scope Scope) ([]calendar.Appointment, error) {
	var out []calendar.Appointment
	for _, a := range f.appointments {
		if a.Date < from || a.Date > to {
			continue
		}
		if scope.Kind == ScopeMine && (scope.PractitionerID == nil || a.PractitionerID != *scope.PractitionerID) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeRepo) InsertAppointment(_ context.Context, appt calendar.Appointment) (*calendar.Appointment, error) {
	cp := appt
	f.appointments[appt.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to calendar.Status, payload calendar.TransitionPayload) (*calendar.Appointment, error) {
	f.updateCalls++
	a, ok := f.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	if payload.Reason != nil {
		a.CancellationReason = payload.Reason
	}
	if payload.Notes != nil {
		a.PractitionerNotes = payload.Notes
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) InsertEvent(_ context.Context, ev EventLog) error {
	f.events = append(f.events, ev)
	return nil
}

type fakeLocker struct {
	held  bool
	calls int
}

func (l *fakeLocker) WithAppointmentLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	l.calls++
	if l.held {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

func newTestService(repo *fakeRepo, locker *fakeLocker) *Service {
	return NewService(repo, locker, zerolog.Nop())
}

func seedAppointment(repo *fakeRepo, status calendar.Status) *calendar.Appointment {
	practitionerID := uuid.New()
	repo.practitioners[practitionerID] = &Practitioner{ID: practitionerID, Name: "Dr. Reyes"}

	a := &calendar.Appointment{
		ID:             uuid.New(),
		PractitionerID: practitionerID,
		Date:           "2024-03-10",
		StartTime:      "09:00:00",
		EndTime:        "09:30:00",
		Status:         status,
		Source:         calendar.SourcePractice,
	}
	repo.appointments[a.ID] = a
	return a
}

func TestApplyTransitionConfirm(t *testing.T) {
	repo := newFakeRepo()
	locker := &fakeLocker{}
	svc := newTestService(repo, locker)

	a := seedAppointment(repo, calendar.StatusPending)

	updated, err := svc.ApplyTransition(context.Background(), a.ID, calendar.ActionConfirm, calendar.TransitionPayload{}, calendar.ActorPractitioner)
	require.NoError(t, err)
	assert.Equal(t, calendar.StatusConfirmed, updated.Status)
	assert.Equal(t, 1, locker.calls)
	require.Len(t, repo.events, 1)
	assert.Equal(t, EventStatusChanged, repo.events[0].EventType)
}

func TestApplyTransitionCapturesPayload(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLocker{})

	a := seedAppointment(repo, calendar.StatusConfirmed)
	reason := "patient called to reschedule"

	updated, err := svc.ApplyTransition(context.Background(), a.ID, calendar.ActionCancel, calendar.TransitionPayload{Reason: &reason}, calendar.ActorOrganizationStaff)
	require.NoError(t, err)
	assert.Equal(t, calendar.StatusCancelledByPractitioner, updated.Status)
	require.NotNil(t, updated.CancellationReason)
	assert.Equal(t, reason, *updated.CancellationReason)
}

func TestApplyTransitionRejectsIllegalBeforeWrite(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLocker{})

	a := seedAppointment(repo, calendar.StatusCompleted)

	_, err := svc.ApplyTransition(context.Background(), a.ID, calendar.ActionConfirm, calendar.TransitionPayload{}, calendar.ActorPractitioner)
	assert.ErrorIs(t, err, calendar.ErrIllegalTransition)
	assert.Zero(t, repo.updateCalls, "no write may happen for an illegal transition")
}

func TestApplyTransitionSerializesPerAppointment(t *testing.T) {
	repo := newFakeRepo()
	locker := &fakeLocker{held: true}
	svc := newTestService(repo, locker)

	a := seedAppointment(repo, calendar.StatusPending)

	_, err := svc.ApplyTransition(context.Background(), a.ID, calendar.ActionConfirm, calendar.TransitionPayload{}, calendar.ActorPractitioner)
	assert.ErrorIs(t, err, ErrTransitionInFlight)
	assert.Zero(t, repo.updateCalls)
}

func TestApplyTransitionConflictWhenStatusMoved(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLocker{})

	// Another actor wins the race between load and CAS: the load still sees
	// pending, but the row is no_show by the time the update runs.
	a := seedAppointment(repo, calendar.StatusNoShow)
	repo.staleStatus = calendar.StatusPending

	_, err := svc.ApplyTransition(context.Background(), a.ID, calendar.ActionConfirm, calendar.TransitionPayload{}, calendar.ActorPractitioner)
	assert.ErrorIs(t, err, ErrTransitionConflict)
}

func TestCreateDefaultsToPending(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLocker{})

	practitionerID := uuid.New()
	repo.practitioners[practitionerID] = &Practitioner{ID: practitionerID, Name: "Dr. Okafor"}
	patientID := uuid.New()
	repo.patients[patientID] = &Patient{ID: patientID, Name: "Sam Holt"}

	created, err := svc.Create(context.Background(), CreateParams{
		PractitionerID: practitionerID,
		PatientID:      &patientID,
		Date:           "2024-03-10",
		StartTime:      "9:00",
		EndTime:        "09:30",
	})
	require.NoError(t, err)
	assert.Equal(t, calendar.StatusPending, created.Status)
	assert.Equal(t, "09:00:00", created.StartTime, "clock values are normalized on the way in")
	assert.Equal(t, "09:30:00", created.EndTime)
	assert.False(t, created.Draft())
}

func TestCreateStaffCanConfirmDirectly(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLocker{})

	practitionerID := uuid.New()
	repo.practitioners[practitionerID] = &Practitioner{ID: practitionerID, Name: "Dr. Okafor"}

	confirmed := calendar.StatusConfirmed
	created, err := svc.Create(context.Background(), CreateParams{
		PractitionerID: practitionerID,
		Date:           "2024-03-10",
		StartTime:      "10:00",
		EndTime:        "10:30",
		Status:         &confirmed,
	})
	require.NoError(t, err)
	assert.Equal(t, calendar.StatusConfirmed, created.Status)
	assert.True(t, created.Draft(), "no patient bound means a draft appointment")
}

func TestCreateRejectsBadTimes(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLocker{})

	practitionerID := uuid.New()
	repo.practitioners[practitionerID] = &Practitioner{ID: practitionerID, Name: "Dr. Okafor"}

	_, err := svc.Create(context.Background(), CreateParams{
		PractitionerID: practitionerID,
		Date:           "2024-03-10",
		StartTime:      "10:00",
		EndTime:        "09:30",
	})
	assert.ErrorIs(t, err, ErrInvalidTimes)
}

func TestListRangeValidatesScope(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLocker{})

	_, err := svc.ListRange(context.Background(), calendar.DateRange{}, Scope{Kind: ScopeMine})
	assert.ErrorIs(t, err, ErrInvalidScope)

	_, err = svc.ListRange(context.Background(), calendar.DateRange{}, Scope{Kind: "everyone"})
	assert.ErrorIs(t, err, ErrInvalidScope)
}
