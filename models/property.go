// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "encoding/json"

// Well-known property names.
const (
	PropertyLastLaunched = "lastLaunched"
	PropertyBlobSupport  = "blobSupport"
	PropertyBlobProbe    = "blobProbe"
)

// Property is a small key-value setting used for store self-diagnosis.
type Property struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// SurveyStatsProperty returns the property name holding the stats of a
// survey.
func SurveyStatsProperty(surveyID string) string {
	return "stats:" + surveyID
}
