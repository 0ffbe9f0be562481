// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Bus, Index and Simulator blocks: everything the
// generator talks to outside its own process, or pretends to.
//
// Why are all three optional?
//
// A scene file should run against a local socket.io relay with nothing more
// than the placement settings. Each block only needs to appear when its
// defaults are wrong for the deployment.
package model

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/specialistvlad/scenegrid/internal/msgs"
	"github.com/specialistvlad/scenegrid/internal/pose"
)

// Transports understood by the bus block.
const (
	TransportSocketIO = "socketio"
	TransportMemory   = "memory"
)

// Defaults applied when a block or attribute is absent.
const (
	DefaultURL       = "http://localhost:3000/socket.io/"
	DefaultNamespace = "/"
	DefaultTimeout   = 10 * time.Second
	DefaultIndexPath = "annotations.db"
	DefaultWidth     = 640
	DefaultHeight    = 480
	DefaultHFOV      = 60.0
)

// Bus selects and configures the message bus.
type Bus struct {
	Transport   string
	URL         string
	Namespace   string
	TopicPrefix string
	// Timeout bounds every acknowledgment wait. Zero waits without a bound.
	Timeout time.Duration
}

// Index configures the sqlite annotation index.
type Index struct {
	Enabled bool
	Path    string
}

// Simulator is the camera of the in-process loopback services.
type Simulator struct {
	Width  int
	Height int
	// HFOV is the horizontal field of view in radians.
	HFOV float64
}

type hclBus struct {
	Transport   *string `hcl:"transport,optional"`
	URL         *string `hcl:"url,optional"`
	Namespace   *string `hcl:"namespace,optional"`
	TopicPrefix *string `hcl:"topic_prefix,optional"`
	Timeout     *string `hcl:"timeout,optional"`
}

type hclIndex struct {
	Enabled *bool   `hcl:"enabled,optional"`
	Path    *string `hcl:"path,optional"`
}

type hclSimulator struct {
	Width  *int     `hcl:"width,optional"`
	Height *int     `hcl:"height,optional"`
	HFOV   *float64 `hcl:"hfov,optional"`
}

func newBus(h *hclBus) (Bus, error) {
	b := Bus{
		Transport:   TransportSocketIO,
		URL:         DefaultURL,
		Namespace:   DefaultNamespace,
		TopicPrefix: msgs.DefaultTopicPrefix,
		Timeout:     DefaultTimeout,
	}
	if h == nil {
		return b, nil
	}
	setString(&b.Transport, h.Transport)
	setString(&b.URL, h.URL)
	setString(&b.Namespace, h.Namespace)
	setString(&b.TopicPrefix, h.TopicPrefix)
	if h.Timeout != nil {
		d, err := time.ParseDuration(*h.Timeout)
		if err != nil {
			return b, fmt.Errorf("bus.timeout: %w", err)
		}
		b.Timeout = d
	}
	return b, nil
}

func newIndex(h *hclIndex, base string) Index {
	idx := Index{Path: DefaultIndexPath}
	if h != nil {
		idx.Enabled = true
		if h.Enabled != nil {
			idx.Enabled = *h.Enabled
		}
		setString(&idx.Path, h.Path)
	}
	if !filepath.IsAbs(idx.Path) {
		idx.Path = filepath.Join(base, idx.Path)
	}
	return idx
}

func newSimulator(h *hclSimulator) Simulator {
	s := Simulator{Width: DefaultWidth, Height: DefaultHeight, HFOV: DefaultHFOV}
	if h != nil {
		if h.Width != nil {
			s.Width = *h.Width
		}
		if h.Height != nil {
			s.Height = *h.Height
		}
		if h.HFOV != nil {
			s.HFOV = *h.HFOV
		}
	}
	s.HFOV = pose.Degrees(s.HFOV)
	return s
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}
