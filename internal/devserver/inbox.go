// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package devserver

import (
	"sort"
	"sync"
	"time"
)

// Submission is one instance as received, merged over all of its batches.
type Submission struct {
	SurveyID   string
	InstanceID string
	XML        string

	// Files maps attachment file names to their sizes.
	Files map[string]int64

	// Batches counts the requests that carried the instance.
	Batches int
	// TraceIDs lists the trace id of each of those requests in arrival order.
	TraceIDs   []string
	ReceivedAt time.Time
}

// inbox keeps received submissions in memory.
type inbox struct {
	mu          sync.Mutex
	submissions map[string]*Submission
}

func newInbox() *inbox {
	return &inbox{submissions: make(map[string]*Submission)}
}

func (i *inbox) add(surveyID, instanceID, traceID, xml string, files map[string]int64, at time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()

	s, ok := i.submissions[instanceID]
	if !ok {
		s = &Submission{SurveyID: surveyID, InstanceID: instanceID, Files: make(map[string]int64)}
		i.submissions[instanceID] = s
	}
	s.XML = xml
	s.Batches++
	if traceID != "" {
		s.TraceIDs = append(s.TraceIDs, traceID)
	}
	s.ReceivedAt = at
	for name, size := range files {
		s.Files[name] = size
	}
}

func (i *inbox) list() []Submission {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]Submission, 0, len(i.submissions))
	for _, s := range i.submissions {
		c := *s
		c.TraceIDs = append([]string(nil), s.TraceIDs...)
		c.Files = make(map[string]int64, len(s.Files))
		for k, v := range s.Files {
			c.Files[k] = v
		}
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].InstanceID < out[b].InstanceID })
	return out
}
