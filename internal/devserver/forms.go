// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package devserver

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/MKhiriev/go-form-keeper/internal/utils"
	"github.com/MKhiriev/go-form-keeper/models"
)

const (
	formFile  = "form.html"
	modelFile = "model.xml"

	mediaPathPrefix = "/media/"
)

// mediaSchemes are the form-definition media prefixes rewritten to server
// URLs on transformation.
var mediaSchemes = []string{"jr://images/", "jr://audio/", "jr://video/", "jr://file/"}

// FormStore reads forms from a directory. Files are read on every call, so
// edits are picked up without a restart.
type FormStore struct {
	dir string
}

// NewFormStore returns a store over dir.
func NewFormStore(dir string) *FormStore {
	return &FormStore{dir: dir}
}

// Parts returns the transformed markup, the model and the content hash of
// form id. Media references in the markup point at the media route.
func (s *FormStore) Parts(id string) (models.FormParts, error) {
	formDir, err := s.formDir(id)
	if err != nil {
		return models.FormParts{}, err
	}

	form, err := readFormFile(formDir, formFile)
	if err != nil {
		return models.FormParts{}, err
	}
	model, err := readFormFile(formDir, modelFile)
	if err != nil {
		return models.FormParts{}, err
	}

	markup := mediaReplacer(id).Replace(string(form))

	hashParts := [][]byte{[]byte(markup), model}
	media, err := s.mediaNames(formDir)
	if err != nil {
		return models.FormParts{}, err
	}
	for _, name := range media {
		data, err := os.ReadFile(filepath.Join(formDir, name))
		if err != nil {
			return models.FormParts{}, fmt.Errorf("read media %s: %w", name, err)
		}
		hashParts = append(hashParts, []byte(name), data)
	}

	return models.FormParts{
		Form:  markup,
		Model: string(model),
		Hash:  utils.ContentHash(hashParts...),
	}, nil
}

// Media returns a media file of form id.
func (s *FormStore) Media(id, name string) (models.Blob, error) {
	formDir, err := s.formDir(id)
	if err != nil {
		return models.Blob{}, err
	}
	if !isPlainName(name) || name == formFile || name == modelFile {
		return models.Blob{}, fmt.Errorf("%w: %s", ErrMediaNotFound, name)
	}

	data, err := os.ReadFile(filepath.Join(formDir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return models.Blob{}, fmt.Errorf("%w: %s", ErrMediaNotFound, name)
	}
	if err != nil {
		return models.Blob{}, fmt.Errorf("read media %s: %w", name, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(name))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return models.Blob{MIMEType: mimeType, Data: data}, nil
}

// Exists reports whether id names a complete form.
func (s *FormStore) Exists(id string) bool {
	formDir, err := s.formDir(id)
	if err != nil {
		return false
	}
	for _, name := range []string{formFile, modelFile} {
		if _, err = os.Stat(filepath.Join(formDir, name)); err != nil {
			return false
		}
	}
	return true
}

func (s *FormStore) formDir(id string) (string, error) {
	if !isPlainName(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormID, id)
	}
	return filepath.Join(s.dir, id), nil
}

// mediaNames lists the regular files of formDir other than the form and the
// model, in lexical order.
func (s *FormStore) mediaNames(formDir string) ([]string, error) {
	entries, err := os.ReadDir(formDir)
	if err != nil {
		return nil, fmt.Errorf("list form directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || e.Name() == formFile || e.Name() == modelFile {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func readFormFile(formDir, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(formDir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, filepath.Base(formDir))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func mediaReplacer(id string) *strings.Replacer {
	target := mediaPathPrefix + url.PathEscape(id) + "/"
	pairs := make([]string, 0, len(mediaSchemes)*2)
	for _, scheme := range mediaSchemes {
		pairs = append(pairs, scheme, target)
	}
	return strings.NewReplacer(pairs...)
}

func isPlainName(name string) bool {
	return name != "" && filepath.IsLocal(name) && !strings.ContainsAny(name, `/\`)
}
