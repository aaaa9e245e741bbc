package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

type fakeDispatcher struct {
	outcome services.DispatchOutcome
	err     error
	calls   []time.Time
}

func (f *fakeDispatcher) DispatchUser(_ context.Context, _ int64, month time.Time, _ bool) (services.DispatchOutcome, error) {
	f.calls = append(f.calls, month)
	return f.outcome, f.err
}

func TestHandleReportJob(t *testing.T) {
	tests := []struct {
		name      string
		msg       amqp.ReportJobMessage
		dispErr   error
		outcome   services.DispatchOutcome
		wantErr   bool
		permanent bool
		stats     services.DispatchStats
	}{
		{"sent", amqp.ReportJobMessage{UserID: 1, Month: "2025-02"}, nil, services.OutcomeSent, false, false,
			services.DispatchStats{Users: 1, Sent: 1}},
		{"skipped", amqp.ReportJobMessage{UserID: 1, Month: "2025-02"}, nil, services.OutcomeSkipped, false, false,
			services.DispatchStats{Users: 1, Skipped: 1}},
		{"mail failure requeues", amqp.ReportJobMessage{UserID: 1, Month: "2025-02"}, services.ErrDeliveryFailed, services.OutcomeFailed, true, false,
			services.DispatchStats{Users: 1, Failed: 1}},
		{"repeated mail failure is dropped", amqp.ReportJobMessage{UserID: 1, Month: "2025-02", Redelivered: true}, services.ErrDeliveryFailed, services.OutcomeFailed, true, true,
			services.DispatchStats{Users: 1, Failed: 1}},
		{"redelivered store error requeues", amqp.ReportJobMessage{UserID: 1, Month: "2025-02", Redelivered: true}, errors.New("database is locked"), services.OutcomeFailed, true, false,
			services.DispatchStats{Users: 1, Failed: 1}},
		{"missing user is dropped", amqp.ReportJobMessage{UserID: 9, Month: "2025-02"}, fmt.Errorf("load user: %w", core.ErrNotFound), services.OutcomeFailed, true, true,
			services.DispatchStats{Users: 1, Failed: 1}},
		{"bad month is dropped", amqp.ReportJobMessage{UserID: 1, Month: "Feb"}, nil, services.OutcomeSent, true, true,
			services.DispatchStats{Users: 1, Failed: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{outcome: tt.outcome, err: tt.dispErr}
			w := NewReportWorker(d)
			msg := tt.msg

			err := w.HandleReportJob(context.Background(), &msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if amqp.IsPermanent(err) != tt.permanent {
				t.Fatalf("permanent = %v, want %v (err=%v)", amqp.IsPermanent(err), tt.permanent, err)
			}
			if tt.dispErr != nil && !errors.Is(err, tt.dispErr) {
				t.Fatalf("dispatcher error should be wrapped, got %v", err)
			}
			if got := w.Stats(); got != tt.stats {
				t.Fatalf("stats = %+v, want %+v", got, tt.stats)
			}
		})
	}
}

func TestHandleReportJobPassesMonthStart(t *testing.T) {
	d := &fakeDispatcher{}
	w := NewReportWorker(d)
	if err := w.HandleReportJob(context.Background(), &amqp.ReportJobMessage{UserID: 3, Month: "2024-02"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(d.calls) != 1 || !d.calls[0].Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("calls = %v", d.calls)
	}
}
