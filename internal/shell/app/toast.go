package app

import (
	"strings"
	"time"
)

// ToastTTL is how long a notification stays up unless dismissed.
const ToastTTL = 5 * time.Second

type ToastKind string

const (
	ToastInfo    ToastKind = "info"
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Title is the heading shown above the message.
func (k ToastKind) Title() string {
	s := string(k)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type Toast struct {
	ID      int
	Kind    ToastKind
	Message string
	Expires time.Time
}

func (a *App) toast(kind ToastKind, msg string) {
	a.nextToast++
	a.toasts = append(a.toasts, Toast{
		ID:      a.nextToast,
		Kind:    kind,
		Message: msg,
		Expires: a.now().Add(ToastTTL),
	})
}

// Toasts returns the notifications still visible, oldest first. Expired ones
// are dropped.
func (a *App) Toasts() []Toast {
	now := a.now()
	live := a.toasts[:0]
	for _, t := range a.toasts {
		if now.Before(t.Expires) {
			live = append(live, t)
		}
	}
	a.toasts = live
	return append([]Toast(nil), live...)
}

// DismissToast removes one notification early.
func (a *App) DismissToast(id int) {
	for i, t := range a.toasts {
		if t.ID == id {
			a.toasts = append(a.toasts[:i], a.toasts[i+1:]...)
			return
		}
	}
}

// Notify raises a notification on behalf of the UI, such as a form that
// could not be parsed.
func (a *App) Notify(kind ToastKind, msg string) {
	a.toast(kind, msg)
}
