// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package formmodel is a small mutable view over XForm instance data. It
// covers what the offline runtime needs from a form engine: reading and
// setting the instance id, applying default values by path, collecting
// attachment nodes and serializing the instance back to a string.
//
// A [Model] can be opened either from a bare instance (a record's XML) or
// from a full data model, in which case the first instance is used.
package formmodel

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

const (
	modelTag      = "model"
	instanceTag   = "instance"
	metaTag       = "meta"
	instanceIDTag = "instanceID"
	typeAttr      = "type"
	fileType      = "file"
)

// Model is a live, mutable instance document.
type Model struct {
	root *etree.Element
}

// FileNode is an instance node holding an attachment reference.
type FileNode struct {
	// NodeName is the local name of the node; it names the multipart part.
	NodeName string

	// FileName is the text content of the node.
	FileName string
}

// Open parses xml and returns a Model of its instance.
func Open(xml string) (*Model, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xml); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidXML, err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrInvalidXML)
	}

	if root.Tag == modelTag {
		instance := firstChild(root, instanceTag)
		if instance == nil || len(instance.ChildElements()) == 0 {
			return nil, ErrNoInstance
		}
		root = instance.ChildElements()[0]
	}

	return &Model{root: root.Copy()}, nil
}

// RootName returns the local name of the instance root.
func (m *Model) RootName() string {
	return m.root.Tag
}

// InstanceID returns the text of meta/instanceID, or an empty string when the
// instance has none.
func (m *Model) InstanceID() string {
	if el := m.instanceIDElement(); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

// SetInstanceID sets meta/instanceID, creating the nodes when missing.
func (m *Model) SetInstanceID(id string) {
	el := m.instanceIDElement()
	if el == nil {
		meta := firstChild(m.root, metaTag)
		if meta == nil {
			meta = m.root.CreateElement(metaTag)
		}
		el = meta.CreateElement(instanceIDTag)
	}
	el.SetText(id)
}

// SetDefaults writes every value of defaults to the node addressed by its
// absolute path (e.g. "/data/group/enumerator"). Paths are resolved in full
// before anything is written, so an unknown path leaves the model unchanged.
func (m *Model) SetDefaults(defaults map[string]string) error {
	targets := make(map[*etree.Element]string, len(defaults))
	for path, value := range defaults {
		el, err := m.resolve(path)
		if err != nil {
			return err
		}
		targets[el] = value
	}

	for el, value := range targets {
		el.SetText(value)
	}
	return nil
}

// Value returns the text of the node addressed by path.
func (m *Model) Value(path string) (string, error) {
	el, err := m.resolve(path)
	if err != nil {
		return "", err
	}
	return el.Text(), nil
}

// FileNodes returns the nodes marked type="file" in document order and
// strips the marker from them. Nodes with an empty value are skipped.
func (m *Model) FileNodes() []FileNode {
	var nodes []FileNode
	walk(m.root, func(el *etree.Element) {
		attr := el.SelectAttr(typeAttr)
		if attr == nil || attr.Value != fileType {
			return
		}
		el.RemoveAttr(typeAttr)

		name := strings.TrimSpace(el.Text())
		if name == "" {
			return
		}
		nodes = append(nodes, FileNode{NodeName: el.Tag, FileName: name})
	})
	return nodes
}

// String serializes the instance.
func (m *Model) String() (string, error) {
	doc := etree.NewDocument()
	doc.SetRoot(m.root.Copy())

	s, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("serialize instance: %w", err)
	}
	return s, nil
}

// PrepareInstance applies defaults to a fresh instance of model and returns
// it serialized. It returns an empty string when defaults is empty, meaning
// the form engine should start from the model's own default instance.
func PrepareInstance(model string, defaults map[string]string) (string, error) {
	if len(defaults) == 0 {
		return "", nil
	}

	m, err := Open(model)
	if err != nil {
		return "", err
	}
	if err = m.SetDefaults(defaults); err != nil {
		return "", err
	}
	return m.String()
}

func (m *Model) resolve(path string) (*etree.Element, error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] != m.root.Tag {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}

	el := m.root
	for _, seg := range segments[1:] {
		el = firstChild(el, seg)
		if el == nil {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
	}
	return el, nil
}

func (m *Model) instanceIDElement() *etree.Element {
	meta := firstChild(m.root, metaTag)
	if meta == nil {
		return nil
	}
	return firstChild(meta, instanceIDTag)
}

// firstChild matches on the local name so that prefixed nodes such as
// orx:meta are found as well.
func firstChild(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func walk(el *etree.Element, fn func(*etree.Element)) {
	fn(el)
	for _, c := range el.ChildElements() {
		walk(c, fn)
	}
}
