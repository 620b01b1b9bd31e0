// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package markup

import "errors"

var ErrInvalidMarkup = errors.New("invalid form markup")
