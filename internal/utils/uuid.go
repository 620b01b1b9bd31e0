// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"strings"

	"github.com/google/uuid"
)

// InstanceIDPrefix is the OpenRosa prefix of record instance ids.
const InstanceIDPrefix = "uuid:"

type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate returns a time-ordered v7 uuid, falling back to v4.
func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}

// InstanceID returns a fresh record instance id in the form "uuid:<v7>".
func (g *UUIDGenerator) InstanceID() string {
	return InstanceIDPrefix + g.Generate()
}

// IsInstanceID reports whether id carries the instance prefix followed by a
// parseable uuid.
func IsInstanceID(id string) bool {
	rest, ok := strings.CutPrefix(id, InstanceIDPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}
