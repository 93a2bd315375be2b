package notify

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/mindnote/internal/client/models"
)

// Recorder implements Alerter, Notifier and Confirmer by recording calls
// and answering with preset values. It is used by tests of the services.
type Recorder struct {
	mu sync.Mutex

	alerts        []Alert
	notifications []Alert
	confirms      []Alert
	permissionAsk int

	ConfirmAnswer bool
	ConfirmErr    error
	Permission    models.NotificationPermission
	PermissionErr error
}

func NewRecorder() *Recorder {
	return &Recorder{ConfirmAnswer: true, Permission: models.PermissionGranted}
}

func (r *Recorder) Alert(_ context.Context, a Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

func (r *Recorder) Notify(_ context.Context, n Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *Recorder) RequestPermission(context.Context) (models.NotificationPermission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.permissionAsk++
	return r.Permission, r.PermissionErr
}

func (r *Recorder) Confirm(_ context.Context, a Alert) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirms = append(r.confirms, a)
	return r.ConfirmAnswer, r.ConfirmErr
}

func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}

// AlertTitles returns the title IDs of recorded alerts in order.
func (r *Recorder) AlertTitles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	titles := make([]string, 0, len(r.alerts))
	for _, a := range r.alerts {
		titles = append(titles, a.Title)
	}
	return titles
}

func (r *Recorder) Notifications() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.notifications...)
}

func (r *Recorder) Confirms() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.confirms...)
}

func (r *Recorder) PermissionRequests() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.permissionAsk
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = nil
	r.notifications = nil
	r.confirms = nil
	r.permissionAsk = 0
}
