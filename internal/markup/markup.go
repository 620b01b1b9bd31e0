// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package markup rewrites media references in rendered form markup so that a
// cached form never triggers network loads by itself.
//
// Before a form is stored every src attribute is moved to data-offline-src
// ([SwapMediaSrc]). Media is then acquired once per distinct URL
// ([GroupBySrc]) and, when the form is opened, the stored payloads are put
// back in place ([ApplySources]).
package markup

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	srcAttr        = "src"
	offlineSrcAttr = "data-offline-src"
)

// Group is one distinct media URL together with the number of elements that
// reference it.
type Group struct {
	URL   string
	Count int
}

// SwapMediaSrc moves every non-empty src attribute to data-offline-src and
// leaves an empty src behind. Elements already carrying data-offline-src are
// left untouched, so the operation is idempotent.
func SwapMediaSrc(form string) (string, error) {
	nodes, err := parse(form)
	if err != nil {
		return "", err
	}

	for _, n := range nodes {
		walk(n, func(el *html.Node) {
			if _, ok := attr(el, offlineSrcAttr); ok {
				return
			}
			src, ok := attr(el, srcAttr)
			if !ok || strings.TrimSpace(src) == "" {
				return
			}
			setAttr(el, offlineSrcAttr, src)
			setAttr(el, srcAttr, "")
		})
	}

	return render(nodes)
}

// GroupBySrc returns the distinct data-offline-src URLs of the form in
// document order, each with the count of elements referencing it.
func GroupBySrc(form string) ([]Group, error) {
	nodes, err := parse(form)
	if err != nil {
		return nil, err
	}

	var groups []Group
	index := make(map[string]int)
	for _, n := range nodes {
		walk(n, func(el *html.Node) {
			src, ok := attr(el, offlineSrcAttr)
			if !ok || src == "" {
				return
			}
			if i, seen := index[src]; seen {
				groups[i].Count++
				return
			}
			index[src] = len(groups)
			groups = append(groups, Group{URL: src, Count: 1})
		})
	}

	return groups, nil
}

// URLs returns the URLs of groups in order.
func URLs(groups []Group) []string {
	urls := make([]string, 0, len(groups))
	for _, g := range groups {
		urls = append(urls, g.URL)
	}
	return urls
}

// ApplySources sets src on every element whose data-offline-src has an entry
// in sources. Elements without an entry keep their empty src.
func ApplySources(form string, sources map[string]string) (string, error) {
	nodes, err := parse(form)
	if err != nil {
		return "", err
	}

	for _, n := range nodes {
		walk(n, func(el *html.Node) {
			offline, ok := attr(el, offlineSrcAttr)
			if !ok {
				return
			}
			if src, found := sources[offline]; found {
				setAttr(el, srcAttr, src)
			}
		})
	}

	return render(nodes)
}

func parse(form string) ([]*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(form), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMarkup, err)
	}
	return nodes, nil
}

func render(nodes []*html.Node) (string, error) {
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidMarkup, err)
		}
	}
	return buf.String(), nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
