// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package formmodel

import "errors"

var (
	ErrInvalidXML   = errors.New("invalid instance xml")
	ErrNoInstance   = errors.New("model has no instance")
	ErrPathNotFound = errors.New("instance path not found")
)
