// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package notify renders service events as terminal feedback lines.
//
// A [Notifier] subscribes to the client services and writes one styled line
// per event that matters to the user: upload progress and results, queue
// length, connectivity changes and survey refreshes.
package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/MKhiriev/go-form-keeper/internal/service"
	"github.com/MKhiriev/go-form-keeper/models"
)

// Notifier writes rendered events to one writer. It is safe for concurrent
// use.
type Notifier struct {
	mu     sync.Mutex
	w      io.Writer
	styles styles
}

// New returns a Notifier writing to w. Colors are enabled only when w is a
// terminal.
func New(w io.Writer) *Notifier {
	return &Notifier{
		w:      w,
		styles: newStyles(lipgloss.NewRenderer(w)),
	}
}

// Attach subscribes n to every event source of s. The returned function
// removes all subscriptions.
func (n *Notifier) Attach(s *service.ClientServices) (detach func()) {
	unsubscribe := []func(){
		s.Pipeline.Subscribe(n.Submission),
		s.Queue.Subscribe(n.Queue),
		s.Monitor.Subscribe(n.Online),
		s.Cache.Subscribe(n.Cache),
	}
	return func() {
		for _, fn := range unsubscribe {
			fn()
		}
	}
}

// Submission renders pipeline events. Record-level success is reported by
// the queue summary, so EventRecordSubmitted renders nothing.
func (n *Notifier) Submission(ev models.SubmissionEvent) {
	switch ev.Kind {
	case models.EventSubmissionStart:
		n.println(n.styles.faint.Render("uploading " + ev.Name))
	case models.EventBatchComplete:
		if ev.Result == nil {
			return
		}
		r := ev.Result
		switch {
		case r.Outcome.Success() && r.Partial:
			n.println(n.styles.info.Render(fmt.Sprintf("%s: part %d of %d uploaded", r.Name, r.BatchIndex+1, r.BatchCount)))
		case !r.Outcome.Success():
			n.println(n.styles.warning.Render(r.Name + ": " + r.Message))
		}
	case models.EventAuthRequired:
		n.println(n.styles.warning.Render("authentication required, queued uploads were cancelled"))
	case models.EventQueueDrained:
		if ev.Summary == nil {
			return
		}
		if ev.Summary.Feedback != "" {
			n.println(n.styles.success.Render(ev.Summary.Feedback))
		}
		if ev.Summary.Alert != "" {
			n.println(n.styles.alert.Render(ev.Summary.Alert))
		}
	}
}

// Queue renders the queue length projection.
func (n *Notifier) Queue(ev models.QueueChanged) {
	n.println(n.styles.faint.Render(fmt.Sprintf(
		"%s: %d %s in queue (%d final, %d drafts)",
		ev.SurveyID, ev.Total, plural(ev.Total, "record", "records"), ev.Final, ev.Drafts,
	)))
}

// Online renders connectivity changes.
func (n *Notifier) Online(status models.OnlineStatus) {
	switch status {
	case models.StatusOnline:
		n.println(n.styles.success.Render("online"))
	case models.StatusOffline:
		n.println(n.styles.warning.Render("offline, records are kept until the connection is back"))
	}
}

// Cache renders survey cache notifications.
func (n *Notifier) Cache(ev models.CacheEvent) {
	switch ev.Kind {
	case models.CacheSurveyUpdated:
		n.println(n.styles.info.Render(fmt.Sprintf(
			"survey %s was updated (version %s), reload to use the new version", ev.SurveyID, shortHash(ev.Hash),
		)))
	case models.CacheSurveyRemoved:
		n.println(n.styles.warning.Render(fmt.Sprintf(
			"survey %s no longer exists on the server and was removed", ev.SurveyID,
		)))
	}
}

func (n *Notifier) println(line string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = io.WriteString(n.w, strings.TrimRight(line, " ")+"\n")
}

func plural(count int, one, many string) string {
	if count == 1 {
		return one
	}
	return many
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
