package server

import (
	"github.com/vango-dev/querysync/internal/config"
	"github.com/vango-dev/querysync/pkg/querysync"
	"github.com/vango-dev/querysync/pkg/vango"
)

// Param is the store of one configured query parameter. Its setter
// enforces the param's type and bounds, so the value it keeps may differ
// from the value it was given.
type Param struct {
	cfg   config.ParamConfig
	value *vango.Signal[querysync.Value]
	def   querysync.Value
}

// NewParam creates the store for cfg, holding its default.
func NewParam(cfg config.ParamConfig) *Param {
	p := &Param{cfg: cfg}
	if cfg.Default != "" {
		p.def = p.normalize(querysync.ParseQueryValue(cfg.Default), querysync.Absent())
	}
	p.value = vango.NewSignal(p.def)
	return p
}

// Key returns the param's effective query key.
func (p *Param) Key() string {
	return p.cfg.QueryKey()
}

// Get returns the current value, tracked.
func (p *Param) Get() querysync.Value {
	return p.value.Get()
}

// Peek returns the current value without subscribing.
func (p *Param) Peek() querysync.Value {
	return p.value.Peek()
}

// Set stores v after normalizing it.
func (p *Param) Set(v querysync.Value) {
	p.value.Set(p.normalize(v, p.def))
}

// Track implements vango.Source.
func (p *Param) Track() {
	p.value.Track()
}

// normalize converts v to the param's type. Numbers that cannot be read
// fall back to fallback; numbers out of bounds are clamped.
func (p *Param) normalize(v querysync.Value, fallback querysync.Value) querysync.Value {
	if v.IsAbsent() {
		return v
	}

	if p.cfg.Type != config.TypeNumber {
		return querysync.String(v.String())
	}

	n, ok := v.Num()
	if !ok {
		n, ok = querysync.ParseQueryValue(v.String()).Num()
	}
	if !ok {
		return fallback
	}
	if p.cfg.Min != nil && n < *p.cfg.Min {
		n = *p.cfg.Min
	}
	if p.cfg.Max != nil && n > *p.cfg.Max {
		n = *p.cfg.Max
	}
	return querysync.Number(n)
}
